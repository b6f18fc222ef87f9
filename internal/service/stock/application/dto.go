// internal/service/stock/application/dto.go
package application

import (
	"time"

	"mall/internal/service/stock/domain"
)

// LockLine 是一条锁定请求明细。WarehouseHint 可选，指定后只在该仓尝试。
type LockLine struct {
	SkuID         string `json:"skuId"`
	Qty           int    `json:"qty"`
	WarehouseHint string `json:"warehouseHint,omitempty"`
}

// LockRequest 是一次锁定请求，整单 all-or-nothing。
type LockRequest struct {
	OrderRef string     `json:"orderRef"`
	Lines    []LockLine `json:"lines"`
}

// LineResult 是单条明细的锁定结果。
type LineResult struct {
	SkuID       string `json:"skuId"`
	Qty         int    `json:"qty"`
	WarehouseID string `json:"warehouseId,omitempty"`
	Success     bool   `json:"success"`
	Reason      string `json:"reason,omitempty"`
}

// LockResult 是整单锁定结果。失败时 Lines 枚举每条明细的结局。
type LockResult struct {
	Success       bool         `json:"success"`
	WorkOrderID   string       `json:"workOrderId,omitempty"`
	FailureReason string       `json:"failureReason,omitempty"`
	Lines         []LineResult `json:"lines"`
}

// StockView 是对外暴露的 SKU 维度库存视图。
type StockView struct {
	SkuID      string          `json:"skuId"`
	Available  int             `json:"available"`
	Actual     int             `json:"actual"`
	Locked     int             `json:"locked"`
	Warehouses []WarehouseView `json:"warehouses,omitempty"`
}

// WarehouseView 是单仓明细。
type WarehouseView struct {
	WarehouseID string `json:"warehouseId"`
	Available   int    `json:"available"`
	Actual      int    `json:"actual"`
	Locked      int    `json:"locked"`
}

// WorkOrderView 是工单查询结果。
type WorkOrderView struct {
	ID            string                 `json:"id"`
	OrderRef      string                 `json:"orderRef"`
	Status        domain.WorkOrderStatus `json:"status"`
	FailureReason string                 `json:"failureReason,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
}

func lockResultFromWorkOrder(wo *domain.WorkOrder) *LockResult {
	result := &LockResult{
		Success:       wo.Status == domain.WorkOrderLocked || wo.Status == domain.WorkOrderDeducted,
		WorkOrderID:   wo.ID,
		FailureReason: wo.FailureReason,
	}
	for _, l := range wo.Lines {
		result.Lines = append(result.Lines, LineResult{
			SkuID:       l.SkuID,
			Qty:         l.RequestedQty,
			WarehouseID: l.AssignedWarehouse,
			Success:     l.Status == domain.LineLocked || l.Status == domain.LineDeducted,
			Reason:      l.FailureReason,
		})
	}
	return result
}
