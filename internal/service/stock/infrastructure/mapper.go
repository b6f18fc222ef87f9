// internal/service/stock/infrastructure/mapper.go
package infrastructure

import "mall/internal/service/stock/domain"

func toDomainRecord(m *StockRecordModel) domain.StockRecord {
	return domain.StockRecord{
		SkuID:       m.SkuID,
		WarehouseID: m.WarehouseID,
		ActualStock: m.ActualStock,
		LockedStock: m.LockedStock,
		MinStock:    m.MinStock,
		MaxStock:    m.MaxStock,
		Status:      m.Status,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDomainMovement(m *StockMovementModel) domain.StockMovement {
	return domain.StockMovement{
		ID:           m.ID,
		SkuID:        m.SkuID,
		WarehouseID:  m.WarehouseID,
		Operation:    m.Operation,
		Delta:        m.Delta,
		StockBefore:  m.StockBefore,
		StockAfter:   m.StockAfter,
		LockedBefore: m.LockedBefore,
		LockedAfter:  m.LockedAfter,
		RelatedOrder: m.RelatedOrder,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
	}
}

func toDomainWorkOrder(m *WorkOrderModel, lines []ReservationLineModel) *domain.WorkOrder {
	wo := &domain.WorkOrder{
		ID:            m.ID,
		OrderRef:      m.OrderRef,
		Status:        m.Status,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		LockedAt:      m.LockedAt,
		UnlockedAt:    m.UnlockedAt,
		DeductedAt:    m.DeductedAt,
	}
	for _, l := range lines {
		wo.Lines = append(wo.Lines, domain.ReservationLine{
			ID:                l.ID,
			SkuID:             l.SkuID,
			RequestedQty:      l.RequestedQty,
			LockedQty:         l.LockedQty,
			AssignedWarehouse: l.AssignedWarehouse,
			Status:            l.Status,
			FailureReason:     l.FailureReason,
		})
	}
	return wo
}

func toWorkOrderModel(wo *domain.WorkOrder) *WorkOrderModel {
	return &WorkOrderModel{
		ID:            wo.ID,
		OrderRef:      wo.OrderRef,
		Status:        wo.Status,
		FailureReason: wo.FailureReason,
		CreatedAt:     wo.CreatedAt,
		LockedAt:      wo.LockedAt,
		UnlockedAt:    wo.UnlockedAt,
		DeductedAt:    wo.DeductedAt,
	}
}

func toLineModels(wo *domain.WorkOrder) []ReservationLineModel {
	models := make([]ReservationLineModel, 0, len(wo.Lines))
	for _, l := range wo.Lines {
		models = append(models, ReservationLineModel{
			ID:                l.ID,
			WorkOrderID:       wo.ID,
			SkuID:             l.SkuID,
			RequestedQty:      l.RequestedQty,
			LockedQty:         l.LockedQty,
			AssignedWarehouse: l.AssignedWarehouse,
			Status:            l.Status,
			FailureReason:     l.FailureReason,
		})
	}
	return models
}
