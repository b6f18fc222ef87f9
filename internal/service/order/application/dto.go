// internal/service/order/application/dto.go
package application

import (
	"time"

	"mall/internal/service/order/domain"
)

// CreateOrderResult 是下单成功后返回给接口层的结果。
type CreateOrderResult struct {
	OrderRef string `json:"orderRef"`
	Status   string `json:"status"`
	Payable  int64  `json:"payable"`
}

// OrderItemView 是订单明细的只读视图。
type OrderItemView struct {
	SkuID     string  `json:"skuId"`
	SkuName   string  `json:"skuName"`
	Price     int64   `json:"price"`
	Qty       int     `json:"qty"`
	Total     int64   `json:"total"`
	Weight    float64 `json:"weight"`
	Warehouse string  `json:"warehouse,omitempty"`
}

// OrderView 是订单聚合的只读视图。
type OrderView struct {
	OrderRef string `json:"orderRef"`
	BuyerID  string `json:"buyerId"`
	Status   string `json:"status"`

	GoodsTotal      int64 `json:"goodsTotal"`
	Freight         int64 `json:"freight"`
	CouponDiscount  int64 `json:"couponDiscount"`
	PointsDeduction int64 `json:"pointsDeduction"`
	Payable         int64 `json:"payable"`

	ReceiverName  string `json:"receiverName"`
	ReceiverPhone string `json:"receiverPhone"`
	Province      string `json:"province"`
	City          string `json:"city"`
	Detail        string `json:"detail"`

	PayType        string `json:"payType,omitempty"`
	TransactionRef string `json:"transactionRef,omitempty"`
	CloseReason    string `json:"closeReason,omitempty"`

	Items []OrderItemView `json:"items"`

	CreatedAt  time.Time  `json:"createdAt"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	ShippedAt  *time.Time `json:"shippedAt,omitempty"`
	ReceivedAt *time.Time `json:"receivedAt,omitempty"`
	SettledAt  *time.Time `json:"settledAt,omitempty"`
}

func orderViewFrom(o *domain.Order) *OrderView {
	view := &OrderView{
		OrderRef:        o.OrderRef,
		BuyerID:         o.BuyerID,
		Status:          string(o.Status),
		GoodsTotal:      o.GoodsTotal,
		Freight:         o.Freight,
		CouponDiscount:  o.CouponDiscount,
		PointsDeduction: o.PointsDeduction,
		Payable:         o.Payable,
		ReceiverName:    o.Shipping.ReceiverName,
		ReceiverPhone:   o.Shipping.ReceiverPhone,
		Province:        o.Shipping.Province,
		City:            o.Shipping.City,
		Detail:          o.Shipping.Detail,
		PayType:         o.PayType,
		TransactionRef:  o.TransactionRef,
		CloseReason:     o.CloseReason,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		ReceivedAt:      o.ReceivedAt,
		SettledAt:       o.SettledAt,
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, OrderItemView{
			SkuID:     item.SkuID,
			SkuName:   item.SkuName,
			Price:     item.Price,
			Qty:       item.Qty,
			Total:     item.Total,
			Weight:    item.Weight,
			Warehouse: item.Warehouse,
		})
	}
	return view
}
