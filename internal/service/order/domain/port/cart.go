// internal/service/order/domain/port/cart.go
package port

import "context"

// CartService 是购物车服务的出站端口。
// Clear 是 best-effort: 失败只记日志，不触发补偿。
type CartService interface {
	Clear(ctx context.Context, cartLineIDs []string, shopperID string) (bool, error)
}
