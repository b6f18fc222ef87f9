package saga

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mall/internal/pkg/logger"
	"mall/internal/service/order/domain"
)

// DiscountHandler 负责核销优惠券。未使用优惠券时直接放行。
type DiscountHandler struct {
	NextHandler
}

func (h *DiscountHandler) Handle(orderCtx *OrderContext) error {
	if orderCtx.Command.DiscountID == "" {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ConsumeDiscount")
	defer span.End()

	order := orderCtx.Order
	discountID := orderCtx.Command.DiscountID
	span.SetAttributes(attribute.String("discount_id", discountID))

	ok, err := orderCtx.Promotions.Consume(ctx, discountID, order.BuyerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discount consume call failed")
		return fmt.Errorf("consume discount %s: %w", discountID, err)
	}
	if !ok {
		span.SetStatus(codes.Error, "discount not usable")
		return fmt.Errorf("discount %s rejected: %w", discountID, domain.ErrDiscountFailed)
	}

	orderCtx.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.ReleaseDiscount")
		defer compSpan.End()

		if _, err := orderCtx.Promotions.Release(compCtx, discountID, order.BuyerID); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).
				Str("order_ref", order.OrderRef).
				Str("discount_id", discountID).
				Msg("CRITICAL: discount release compensation failed, manual intervention required")
		}
	})

	span.AddEvent("discount consumed")

	return h.executeNext(orderCtx)
}
