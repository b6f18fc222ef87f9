// internal/service/stock/domain/repository.go
package domain

import "context"

// Ledger 定义了库存账本的条件变更原语。
// 每个原语都是针对单条记录的一次原子条件写: 守卫条件内嵌在写入本身，
// 竞争失败方得到 ErrInsufficientStock / ErrInvalidState，而不是阻塞等待。
// 每次成功变更必须在同一工作单元内追加一条 StockMovement 流水。
type Ledger interface {
	// Lock 锁定库存，守卫: actual - locked >= qty。
	Lock(ctx context.Context, skuID, warehouseID string, qty int, orderRef string) error

	// Unlock 释放锁定，守卫: locked >= qty。
	Unlock(ctx context.Context, skuID, warehouseID string, qty int, orderRef string) error

	// Deduct 锁定转实扣，守卫: actual >= qty && locked >= qty。
	Deduct(ctx context.Context, skuID, warehouseID string, qty int, orderRef string) error

	// AddStock 入库/调整，无条件增加实际库存，记录不存在时创建。
	AddStock(ctx context.Context, skuID, warehouseID string, qty int, note string) error

	// FindBySku 返回某个 SKU 在所有仓库的账本记录（含停用仓）。
	FindBySku(ctx context.Context, skuID string) ([]StockRecord, error)

	// FindCandidates 返回仓库选择策略所需的视图（含仓库优先级和启用状态）。
	FindCandidates(ctx context.Context, skuID string) ([]WarehouseStock, error)
}

// WorkOrderRepository 持久化预占工单及其明细。
type WorkOrderRepository interface {
	// Create 创建工单。同一 orderRef 已存在时返回 ErrWorkOrderExists。
	Create(ctx context.Context, wo *WorkOrder) error

	// Save 保存工单状态及全部明细。
	Save(ctx context.Context, wo *WorkOrder) error

	// FindByOrderRef 按订单号查找工单，不存在返回 ErrWorkOrderNotFound。
	FindByOrderRef(ctx context.Context, orderRef string) (*WorkOrder, error)

	// FindByID 按工单 ID 查找，不存在返回 ErrWorkOrderNotFound。
	FindByID(ctx context.Context, id string) (*WorkOrder, error)
}

// MovementLog 是流水的读取接口（写入由 Ledger 在同一事务内完成）。
type MovementLog interface {
	// FindBySku 按 SKU 查询流水，时间倒序，最多 limit 条。
	FindBySku(ctx context.Context, skuID string, limit int) ([]StockMovement, error)
}
