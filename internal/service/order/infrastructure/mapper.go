// internal/service/order/infrastructure/mapper.go
package infrastructure

import (
	"strings"

	"mall/internal/service/order/domain"
)

func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		OrderRef:        o.OrderRef,
		BuyerID:         o.BuyerID,
		Status:          string(o.Status),
		GoodsTotal:      o.GoodsTotal,
		Freight:         o.Freight,
		CouponDiscount:  o.CouponDiscount,
		PointsDeduction: o.PointsDeduction,
		Payable:         o.Payable,
		DiscountID:      o.DiscountID,
		UsedPoints:      o.UsedPoints,
		ReceiverName:    o.Shipping.ReceiverName,
		ReceiverPhone:   o.Shipping.ReceiverPhone,
		Province:        o.Shipping.Province,
		City:            o.Shipping.City,
		Detail:          o.Shipping.Detail,
		PayType:         o.PayType,
		TransactionRef:  o.TransactionRef,
		CloseReason:     o.CloseReason,
		CartLineIDs:     strings.Join(o.CartLineIDs, ","),
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		ReceivedAt:      o.ReceivedAt,
		SettledAt:       o.SettledAt,
	}
}

func toItemModels(o *domain.Order) []OrderItemModel {
	models := make([]OrderItemModel, 0, len(o.Items))
	for _, item := range o.Items {
		models = append(models, OrderItemModel{
			OrderRef:  o.OrderRef,
			SkuID:     item.SkuID,
			SkuName:   item.SkuName,
			Price:     item.Price,
			Qty:       item.Qty,
			Total:     item.Total,
			Weight:    item.Weight,
			Warehouse: item.Warehouse,
		})
	}
	return models
}

func toHistoryModel(h *domain.OperateHistory) *OperateHistoryModel {
	return &OperateHistoryModel{
		ID:              h.ID,
		OrderRef:        h.OrderRef,
		Actor:           h.Actor,
		ResultingStatus: string(h.ResultingStatus),
		Note:            h.Note,
		CreatedAt:       h.CreatedAt,
	}
}

func toDomainOrder(m *OrderModel, items []OrderItemModel) *domain.Order {
	order := &domain.Order{
		OrderRef:        m.OrderRef,
		BuyerID:         m.BuyerID,
		Status:          domain.Status(m.Status),
		GoodsTotal:      m.GoodsTotal,
		Freight:         m.Freight,
		CouponDiscount:  m.CouponDiscount,
		PointsDeduction: m.PointsDeduction,
		Payable:         m.Payable,
		DiscountID:      m.DiscountID,
		UsedPoints:      m.UsedPoints,
		Shipping: domain.ShippingSnapshot{
			ReceiverName:  m.ReceiverName,
			ReceiverPhone: m.ReceiverPhone,
			Province:      m.Province,
			City:          m.City,
			Detail:        m.Detail,
		},
		PayType:        m.PayType,
		TransactionRef: m.TransactionRef,
		CloseReason:    m.CloseReason,
		CreatedAt:      m.CreatedAt,
		PaidAt:         m.PaidAt,
		ShippedAt:      m.ShippedAt,
		ReceivedAt:     m.ReceivedAt,
		SettledAt:      m.SettledAt,
	}
	if m.CartLineIDs != "" {
		order.CartLineIDs = strings.Split(m.CartLineIDs, ",")
	}
	for _, im := range items {
		order.Items = append(order.Items, domain.OrderItem{
			SkuID:     im.SkuID,
			SkuName:   im.SkuName,
			Price:     im.Price,
			Qty:       im.Qty,
			Total:     im.Total,
			Weight:    im.Weight,
			Warehouse: im.Warehouse,
		})
	}
	return order
}
