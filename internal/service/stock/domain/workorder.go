// internal/service/stock/domain/workorder.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkOrderStatus 是预占工单的生命周期状态，封闭枚举。
// 状态只能单向推进: NEW -> LOCKED -> (UNLOCKED | DEDUCTED)，终态不可回退。
type WorkOrderStatus string

const (
	WorkOrderNew      WorkOrderStatus = "NEW"
	WorkOrderLocked   WorkOrderStatus = "LOCKED"
	WorkOrderUnlocked WorkOrderStatus = "UNLOCKED"
	WorkOrderDeducted WorkOrderStatus = "DEDUCTED"
)

// LineStatus 是工单明细行的状态。
type LineStatus string

const (
	LineLocked   LineStatus = "LOCKED"
	LineUnlocked LineStatus = "UNLOCKED"
	LineDeducted LineStatus = "DEDUCTED"
)

// ReservationLine 是工单下的一条 SKU 明细，归属且仅归属于一个工单。
// 部分失败回滚时可以单独解锁某一行。
type ReservationLine struct {
	ID                string
	SkuID             string
	RequestedQty      int
	LockedQty         int
	AssignedWarehouse string
	Status            LineStatus
	FailureReason     string
}

// WorkOrder 跟踪一次锁定请求（可能跨多个 SKU/仓库）的整体结果，
// 并承担请求级 all-or-nothing 的职责。每个 orderRef 只有一个工单，
// unlock/deduct 通过 orderRef 查找工单来实现幂等。
type WorkOrder struct {
	ID            string
	OrderRef      string
	Status        WorkOrderStatus
	FailureReason string
	Lines         []ReservationLine
	CreatedAt     time.Time
	LockedAt      *time.Time
	UnlockedAt    *time.Time
	DeductedAt    *time.Time
}

// NewWorkOrder 创建一张新工单，初始状态 NEW。
func NewWorkOrder(orderRef string) *WorkOrder {
	return &WorkOrder{
		ID:        uuid.New().String(),
		OrderRef:  orderRef,
		Status:    WorkOrderNew,
		CreatedAt: time.Now(),
	}
}

// AddLockedLine 记录一条锁定成功的明细。
func (w *WorkOrder) AddLockedLine(skuID string, qty int, warehouseID string) {
	w.Lines = append(w.Lines, ReservationLine{
		ID:                uuid.New().String(),
		SkuID:             skuID,
		RequestedQty:      qty,
		LockedQty:         qty,
		AssignedWarehouse: warehouseID,
		Status:            LineLocked,
	})
}

// MarkLocked 全部明细锁定成功后调用。
func (w *WorkOrder) MarkLocked() error {
	if w.Status != WorkOrderNew {
		return ErrInvalidStateTransition
	}
	now := time.Now()
	w.Status = WorkOrderLocked
	w.LockedAt = &now
	return nil
}

// MarkUnlocked 整单解锁（请求失败回滚或订单取消/超时释放）。
// 对已解锁的工单重复调用是 no-op；已扣减的工单不允许回到解锁态。
func (w *WorkOrder) MarkUnlocked(reason string) error {
	switch w.Status {
	case WorkOrderUnlocked:
		return nil
	case WorkOrderDeducted:
		return ErrInvalidStateTransition
	case WorkOrderNew, WorkOrderLocked:
	}
	now := time.Now()
	w.Status = WorkOrderUnlocked
	w.UnlockedAt = &now
	if reason != "" {
		w.FailureReason = reason
	}
	for i := range w.Lines {
		if w.Lines[i].Status == LineLocked {
			w.Lines[i].Status = LineUnlocked
		}
	}
	return nil
}

// MarkDeducted 支付成功后把锁定转为实扣。只允许从 LOCKED 进入。
func (w *WorkOrder) MarkDeducted() error {
	switch w.Status {
	case WorkOrderDeducted:
		return nil
	case WorkOrderLocked:
	default:
		return ErrInvalidStateTransition
	}
	now := time.Now()
	w.Status = WorkOrderDeducted
	w.DeductedAt = &now
	for i := range w.Lines {
		if w.Lines[i].Status == LineLocked {
			w.Lines[i].Status = LineDeducted
		}
	}
	return nil
}

// LockedLines 返回仍处于 LOCKED 状态的明细。
func (w *WorkOrder) LockedLines() []ReservationLine {
	var lines []ReservationLine
	for _, l := range w.Lines {
		if l.Status == LineLocked {
			lines = append(lines, l)
		}
	}
	return lines
}
