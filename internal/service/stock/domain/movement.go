// internal/service/stock/domain/movement.go
package domain

import "time"

// MovementOp 是库存流水的操作类型。
type MovementOp string

const (
	OpStockIn  MovementOp = "STOCK_IN"
	OpStockOut MovementOp = "STOCK_OUT"
	OpLock     MovementOp = "LOCK"
	OpUnlock   MovementOp = "UNLOCK"
	OpDeduct   MovementOp = "DEDUCT"
	OpTransfer MovementOp = "TRANSFER"
)

// StockMovement 是账本每次成功变更追加的一条流水，只增不改，
// 用于审计和按仓库/SKU 重放核对。
type StockMovement struct {
	ID           int64
	SkuID        string
	WarehouseID  string
	Operation    MovementOp
	Delta        int
	StockBefore  int
	StockAfter   int
	LockedBefore int
	LockedAfter  int
	RelatedOrder string
	Note         string
	CreatedAt    time.Time
}
