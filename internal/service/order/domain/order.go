// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem 是订单的一条商品明细，价格在下单时快照。
// 金额一律使用货币最小单位（分）的整数，避免浮点误差。
type OrderItem struct {
	SkuID     string
	SkuName   string
	Price     int64
	Qty       int
	Total     int64
	Weight    float64 // 千克，用于运费计算
	Warehouse string  // 预占分配到的仓库
}

// ShippingSnapshot 是下单时收货信息的快照，后续地址变更不影响已下订单。
type ShippingSnapshot struct {
	ReceiverName  string
	ReceiverPhone string
	Province      string
	City          string
	Detail        string
}

// Order 是订单聚合的根实体。
// 状态流转只能由生命周期服务驱动，除 UNPAID->CLOSED 外全部单向。
type Order struct {
	OrderRef string
	BuyerID  string
	Status   Status

	// 金额拆解，单位: 分
	GoodsTotal      int64
	Freight         int64
	CouponDiscount  int64
	PointsDeduction int64
	Payable         int64

	DiscountID string
	UsedPoints int64

	Shipping    ShippingSnapshot
	Items       []OrderItem
	CartLineIDs []string // 来源购物车行，下单成功后 best-effort 清理

	PayType        string
	TransactionRef string
	CloseReason    string

	CreatedAt  time.Time
	PaidAt     *time.Time
	ShippedAt  *time.Time
	ReceivedAt *time.Time
	SettledAt  *time.Time
}

// NewOrder 工厂函数，生成带全局唯一订单号的新订单。
func NewOrder(buyerID string, shipping ShippingSnapshot) *Order {
	return &Order{
		OrderRef:  uuid.New().String(),
		BuyerID:   buyerID,
		Status:    StatusUnpaid,
		Shipping:  shipping,
		CreatedAt: time.Now(),
	}
}

// MarkPaid 支付成功回调驱动: UNPAID -> AWAITING_SHIPMENT。
// 返回值 changed=false 表示订单已不在 UNPAID（重复回调），按幂等处理。
func (o *Order) MarkPaid(payType, transactionRef string) (changed bool) {
	if o.Status != StatusUnpaid {
		return false
	}
	now := time.Now()
	o.Status = StatusAwaitingShipment
	o.PayType = payType
	o.TransactionRef = transactionRef
	o.PaidAt = &now
	return true
}

// Cancel 关单: 仅允许 UNPAID -> CLOSED。已关闭的订单幂等返回。
func (o *Order) Cancel(reason string) (changed bool, err error) {
	switch o.Status {
	case StatusClosed:
		return false, nil
	case StatusUnpaid:
	default:
		return false, ErrNotCancellable
	}
	o.Status = StatusClosed
	o.CloseReason = reason
	return true, nil
}

// Ship 发货: AWAITING_SHIPMENT -> SHIPPED。
func (o *Order) Ship() error {
	if o.Status != StatusAwaitingShipment {
		return ErrInvalidTransition
	}
	now := time.Now()
	o.Status = StatusShipped
	o.ShippedAt = &now
	return nil
}

// ConfirmReceipt 确认收货: SHIPPED -> COMPLETED。用户确认和超时自动确认走同一条路径。
func (o *Order) ConfirmReceipt() error {
	if o.Status != StatusShipped {
		return ErrInvalidTransition
	}
	now := time.Now()
	o.Status = StatusCompleted
	o.ReceivedAt = &now
	return nil
}

// Settle 结算: 已完成且未结算的订单返还积分后标记结算。
func (o *Order) Settle() error {
	if o.Status != StatusCompleted || o.SettledAt != nil {
		return ErrInvalidTransition
	}
	now := time.Now()
	o.SettledAt = &now
	return nil
}

// EarnedPoints 是订单完成后返还的积分数（实付每满 1 元返 1 积分）。
func (o *Order) EarnedPoints() int64 {
	return o.Payable / 100
}

// NewOperateHistory 生成一条操作流水。
func NewOperateHistory(orderRef, actor string, resulting Status, note string) *OperateHistory {
	return &OperateHistory{
		ID:              uuid.New().String(),
		OrderRef:        orderRef,
		Actor:           actor,
		ResultingStatus: resulting,
		Note:            note,
		CreatedAt:       time.Now(),
	}
}

// OperateHistory 是订单操作的只增流水，记录每次状态流转的操作者与结果。
type OperateHistory struct {
	ID              string
	OrderRef        string
	Actor           string
	ResultingStatus Status
	Note            string
	CreatedAt       time.Time
}
