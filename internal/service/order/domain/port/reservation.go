// internal/service/order/domain/port/reservation.go
package port

import "context"

// LockLine 是一条库存锁定请求明细。
type LockLine struct {
	SkuID         string
	Qty           int
	WarehouseHint string
}

// LockLineResult 是单条明细的锁定结果。
type LockLineResult struct {
	SkuID       string
	Qty         int
	WarehouseID string
	Success     bool
	Reason      string
}

// LockStockResult 是整单锁定结果。
type LockStockResult struct {
	Success       bool
	WorkOrderID   string
	FailureReason string
	Lines         []LockLineResult
}

// ReservationService 是库存预占引擎的出站端口。
type ReservationService interface {
	// LockStock 为订单锁定库存，整单 all-or-nothing。
	LockStock(ctx context.Context, orderRef string, lines []LockLine) (*LockStockResult, error)

	// UnlockStock 释放订单的全部锁定，幂等。
	UnlockStock(ctx context.Context, orderRef string) error

	// DeductStock 支付成功后把锁定转为实扣，幂等。
	DeductStock(ctx context.Context, orderRef string) error

	// HasStock 查询各 SKU 是否仍有可售库存。
	HasStock(ctx context.Context, skuIDs []string) (map[string]bool, error)
}
