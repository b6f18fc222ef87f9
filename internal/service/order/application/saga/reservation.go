package saga

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mall/internal/pkg/logger"
	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// ReservationHandler 负责整单锁定库存。
// 锁定成功后注册解锁补偿；引擎侧 all-or-nothing，失败时无需本地回滚。
type ReservationHandler struct {
	NextHandler
}

func (h *ReservationHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ReserveStock")
	defer span.End()

	order := orderCtx.Order
	span.SetAttributes(attribute.String("order_ref", order.OrderRef))

	hints := make(map[string]string, len(orderCtx.Command.Lines))
	for _, line := range orderCtx.Command.Lines {
		hints[line.SkuID] = line.WarehouseHint
	}

	lines := make([]port.LockLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, port.LockLine{
			SkuID:         item.SkuID,
			Qty:           item.Qty,
			WarehouseHint: hints[item.SkuID],
		})
	}

	result, err := orderCtx.Reservation.LockStock(ctx, order.OrderRef, lines)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock lock call failed")
		return fmt.Errorf("lock stock: %w", err)
	}
	if !result.Success {
		span.SetStatus(codes.Error, "stock lock rejected")
		span.SetAttributes(attribute.String("failure_reason", result.FailureReason))
		return fmt.Errorf("%s: %w", result.FailureReason, domain.ErrInsufficientStock)
	}

	// 把引擎分配的仓库回填到订单明细。
	warehouseBySku := make(map[string]string, len(result.Lines))
	for _, lr := range result.Lines {
		warehouseBySku[lr.SkuID] = lr.WarehouseID
	}
	for i := range order.Items {
		order.Items[i].Warehouse = warehouseBySku[order.Items[i].SkuID]
	}

	orderCtx.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.UnlockStock")
		defer compSpan.End()

		if err := orderCtx.Reservation.UnlockStock(compCtx, order.OrderRef); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).
				Str("order_ref", order.OrderRef).
				Msg("CRITICAL: stock unlock compensation failed, manual intervention required")
		}
	})

	span.AddEvent("stock locked for all lines")

	return h.executeNext(orderCtx)
}
