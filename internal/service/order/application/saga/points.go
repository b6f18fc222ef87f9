package saga

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mall/internal/pkg/logger"
	"mall/internal/service/order/domain"
)

// PointsHandler 负责扣减下单抵扣的积分。未使用积分时直接放行。
type PointsHandler struct {
	NextHandler
}

func (h *PointsHandler) Handle(orderCtx *OrderContext) error {
	if orderCtx.Command.UsePoints <= 0 {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.DeductPoints")
	defer span.End()

	order := orderCtx.Order
	usePoints := orderCtx.Command.UsePoints
	span.SetAttributes(attribute.Int64("use_points", usePoints))

	ok, err := orderCtx.Points.Deduct(ctx, order.BuyerID, usePoints)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "points deduct call failed")
		return fmt.Errorf("deduct %d points: %w", usePoints, err)
	}
	if !ok {
		span.SetStatus(codes.Error, "points balance insufficient")
		return fmt.Errorf("deduct %d points rejected: %w", usePoints, domain.ErrPointsFailed)
	}

	orderCtx.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.RefundPoints")
		defer compSpan.End()

		if _, err := orderCtx.Points.Refund(compCtx, order.BuyerID, usePoints); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).
				Str("order_ref", order.OrderRef).
				Int64("points", usePoints).
				Msg("CRITICAL: points refund compensation failed, manual intervention required")
		}
	})

	span.AddEvent("points deducted")

	return h.executeNext(orderCtx)
}
