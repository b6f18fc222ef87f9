package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mall/internal/service/order/domain"
)

// PersistHandler 负责把订单聚合落库。
// 落库失败会触发前序全部补偿（解锁库存、退券、退积分）。
type PersistHandler struct {
	NextHandler
	repo domain.OrderRepository
}

func NewPersistHandler(repo domain.OrderRepository) *PersistHandler {
	return &PersistHandler{repo: repo}
}

func (h *PersistHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PersistOrder")
	defer span.End()

	order := orderCtx.Order
	span.SetAttributes(
		attribute.String("order_ref", order.OrderRef),
		attribute.Int64("payable", order.Payable),
	)

	history := domain.NewOperateHistory(order.OrderRef, order.BuyerID,
		domain.StatusUnpaid, "order created")
	if err := h.repo.Create(ctx, order, history); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order persistence failed")
		return fmt.Errorf("persist order %s: %w", order.OrderRef, err)
	}

	span.AddEvent("order persisted with items and history")

	return h.executeNext(orderCtx)
}
