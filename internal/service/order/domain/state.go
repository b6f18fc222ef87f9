// internal/service/order/domain/state.go
package domain

// Status 定义了订单的生命周期状态。
// 流转单向: UNPAID -> AWAITING_SHIPMENT -> SHIPPED -> COMPLETED；
// UNPAID -> CLOSED（用户取消或超时关单）是唯一的旁路终态。
type Status string

const (
	StatusUnpaid           Status = "UNPAID"            // 已创建，等待支付
	StatusAwaitingShipment Status = "AWAITING_SHIPMENT" // 已支付，等待发货
	StatusShipped          Status = "SHIPPED"           // 已发货，等待收货
	StatusCompleted        Status = "COMPLETED"         // 已确认收货
	StatusClosed           Status = "CLOSED"            // 已关闭（取消/超时）
	StatusInvalid          Status = "INVALID"           // 异常单，需人工介入
)
