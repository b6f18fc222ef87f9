package saga

import (
	"go.opentelemetry.io/otel/attribute"

	"mall/internal/pkg/logger"
)

// PostCommitHandler 负责订单落库后的收尾动作。
// 购物车清理是 best-effort: 失败只记日志，订单已经创建成功。
type PostCommitHandler struct {
	NextHandler
}

func (h *PostCommitHandler) Handle(orderCtx *OrderContext) error {
	if len(orderCtx.Command.CartLineIDs) == 0 {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ClearCart")
	defer span.End()

	order := orderCtx.Order
	span.SetAttributes(
		attribute.String("order_ref", order.OrderRef),
		attribute.StringSlice("cart_line_ids", orderCtx.Command.CartLineIDs),
	)

	if _, err := orderCtx.Carts.Clear(ctx, orderCtx.Command.CartLineIDs, order.BuyerID); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).
			Str("order_ref", order.OrderRef).
			Msg("cart cleanup failed after order creation")
	}

	return h.executeNext(orderCtx)
}
