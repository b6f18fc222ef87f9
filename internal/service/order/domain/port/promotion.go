// internal/service/order/domain/port/promotion.go
package port

import "context"

// PromotionService 是优惠券服务的出站端口。
type PromotionService interface {
	// Quote 返回优惠券在给定小计下可抵扣的金额（分），不产生副作用。
	Quote(ctx context.Context, discountID, shopperID string, subtotal int64) (int64, error)

	// Consume 核销优惠券，返回 false 表示券不可用（已用/过期/不符门槛）。
	Consume(ctx context.Context, discountID, shopperID string) (bool, error)

	// Release 是 Consume 的补偿操作，把券退回可用状态。
	Release(ctx context.Context, discountID, shopperID string) (bool, error)
}
