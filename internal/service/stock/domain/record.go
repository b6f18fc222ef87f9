// internal/service/stock/domain/record.go
package domain

import "time"

// RecordStatus 表示库存记录是否可参与交易。记录只停用，不删除。
type RecordStatus int8

const (
	RecordEnabled  RecordStatus = 1
	RecordDisabled RecordStatus = 0
)

// StockRecord 是 (SKU, 仓库) 维度的库存账本记录。
// 不变式: 0 <= LockedStock <= ActualStock 恒成立。
// 并发场景下只能通过条件写原语修改，不允许读-改-写。
type StockRecord struct {
	SkuID       string
	WarehouseID string
	ActualStock int
	LockedStock int
	MinStock    int
	MaxStock    int
	Status      RecordStatus
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailableStock 返回可售库存 = 实际库存 - 锁定库存。
func (r *StockRecord) AvailableStock() int {
	return r.ActualStock - r.LockedStock
}

// CanLock 判断锁定守卫条件是否满足。
func (r *StockRecord) CanLock(qty int) bool {
	return qty > 0 && r.Status == RecordEnabled && r.AvailableStock() >= qty
}

// ApplyLock 在内存中应用锁定。真正的并发安全由存储层的条件写保证，
// 这里的守卫用于内存实现和测试替身。
func (r *StockRecord) ApplyLock(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if !r.CanLock(qty) {
		return ErrInsufficientStock
	}
	r.LockedStock += qty
	r.Version++
	r.UpdatedAt = time.Now()
	return nil
}

// ApplyUnlock 在内存中应用解锁。
func (r *StockRecord) ApplyUnlock(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if r.LockedStock < qty {
		return ErrInvalidState
	}
	r.LockedStock -= qty
	r.Version++
	r.UpdatedAt = time.Now()
	return nil
}

// ApplyDeduct 在内存中应用扣减: 锁定转为实扣，实际库存和锁定库存同时减少。
func (r *StockRecord) ApplyDeduct(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if r.ActualStock < qty || r.LockedStock < qty {
		return ErrInvalidState
	}
	r.ActualStock -= qty
	r.LockedStock -= qty
	r.Version++
	r.UpdatedAt = time.Now()
	return nil
}

// ApplyInbound 入库/调整，无条件增加实际库存。
func (r *StockRecord) ApplyInbound(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	r.ActualStock += qty
	r.Version++
	r.UpdatedAt = time.Now()
	return nil
}
