// internal/service/order/domain/port/points.go
package port

import "context"

// PointsService 是会员积分的出站端口。amount 一律为积分数量。
type PointsService interface {
	// Deduct 扣减积分（下单抵扣）。
	Deduct(ctx context.Context, shopperID string, amount int64) (bool, error)

	// Refund 是 Deduct 的补偿操作。
	Refund(ctx context.Context, shopperID string, amount int64) (bool, error)

	// Credit 返还积分（订单完成结算）。
	Credit(ctx context.Context, shopperID string, amount int64) (bool, error)
}
