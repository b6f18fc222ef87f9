// internal/service/order/domain/event.go
package domain

import "time"

// PaymentTimeoutCheckEvent 是延迟调度器到期后投递的支付超时检查任务。
// 消费方只在订单仍 UNPAID 且超过支付窗口时关单，提早到达是 no-op。
type PaymentTimeoutCheckEvent struct {
	OrderRef  string    `json:"orderRef"`
	Deadline  time.Time `json:"deadline"`
	CreatedAt time.Time `json:"createdAt"`
}
