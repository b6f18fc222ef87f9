// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mall/internal/pkg/logger"
	"mall/internal/service/order/application/saga"
	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// ShopperLocker 是买家级互斥锁的出站端口，用于拦截重复提交。
// 锁竞争失败时实现方返回 domain.ErrDuplicateSubmission。
type ShopperLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// OrderApplicationService 编排订单生命周期的全部用例。
type OrderApplicationService struct {
	repo   domain.OrderRepository
	locker ShopperLocker
	tracer trace.Tracer

	reservation port.ReservationService
	users       port.UserService
	catalog     port.CatalogService
	promotions  port.PromotionService
	points      port.PointsService
	carts       port.CartService
	freight     port.FreightCalculator

	pointsRate int64
}

func NewOrderApplicationService(
	repo domain.OrderRepository, locker ShopperLocker, tracer trace.Tracer,
	reservation port.ReservationService, users port.UserService,
	catalog port.CatalogService, promotions port.PromotionService,
	points port.PointsService, carts port.CartService,
	freight port.FreightCalculator, pointsRate int64,
) *OrderApplicationService {
	return &OrderApplicationService{
		repo: repo, locker: locker, tracer: tracer,
		reservation: reservation, users: users, catalog: catalog,
		promotions: promotions, points: points, carts: carts,
		freight: freight, pointsRate: pointsRate,
	}
}

// CreateOrder 是下单入口: 买家级互斥 -> 责任链 -> 失败时触发补偿。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, cmd *domain.CreateOrderCommand) (*CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	span.SetAttributes(attribute.String("buyer_id", cmd.BuyerID))

	var result *CreateOrderResult
	err := s.locker.WithLock(ctx, "order:submit:"+cmd.BuyerID, func(ctx context.Context) error {
		var err error
		result, err = s.createOrder(ctx, cmd)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation failed")
		switch {
		case errors.Is(err, domain.ErrDuplicateSubmission):
			orderCreations.WithLabelValues("duplicate").Inc()
		case errors.Is(err, domain.ErrInsufficientStock):
			orderCreations.WithLabelValues("no_stock").Inc()
		case errors.Is(err, domain.ErrPriceChanged):
			orderCreations.WithLabelValues("price_changed").Inc()
		default:
			orderCreations.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	orderCreations.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("order_ref", result.OrderRef))
	return result, nil
}

func (s *OrderApplicationService) createOrder(ctx context.Context, cmd *domain.CreateOrderCommand) (*CreateOrderResult, error) {
	order := domain.NewOrder(cmd.BuyerID, domain.ShippingSnapshot{})
	order.CartLineIDs = cmd.CartLineIDs

	orderCtx := &saga.OrderContext{
		Ctx:         ctx,
		Tracer:      s.tracer,
		Command:     cmd,
		Order:       order,
		Reservation: s.reservation,
		Users:       s.users,
		Catalog:     s.catalog,
		Promotions:  s.promotions,
		Points:      s.points,
		Carts:       s.carts,
		Freight:     s.freight,
	}

	if err := s.buildChain().Handle(orderCtx); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_ref", order.OrderRef).
			Msg("order creation chain failed, triggering compensation")

		// 补偿在不带超时的派生上下文里执行，只保留链路信息。
		spanContext := trace.SpanContextFromContext(ctx)
		compCtx := trace.ContextWithRemoteSpanContext(context.Background(), spanContext)
		orderCtx.TriggerCompensation(compCtx)
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("order_ref", order.OrderRef).
		Int64("payable", order.Payable).
		Msg("order created, awaiting payment")

	return &CreateOrderResult{
		OrderRef: order.OrderRef,
		Status:   string(order.Status),
		Payable:  order.Payable,
	}, nil
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := new(saga.ProfileHandler)
	chain.
		SetNext(new(saga.CatalogHandler)).
		SetNext(saga.NewPricingHandler(s.pointsRate)).
		SetNext(new(saga.ReservationHandler)).
		SetNext(new(saga.DiscountHandler)).
		SetNext(new(saga.PointsHandler)).
		SetNext(saga.NewPersistHandler(s.repo)).
		SetNext(new(saga.PostCommitHandler))
	return chain
}

// PaymentCallback 处理支付网关回调。重复回调幂等。
func (s *OrderApplicationService) PaymentCallback(ctx context.Context, orderRef, payType, transactionRef string) error {
	ctx, span := s.tracer.Start(ctx, "app.PaymentCallback")
	defer span.End()

	span.SetAttributes(attribute.String("order_ref", orderRef))

	order, err := s.repo.FindByRef(ctx, orderRef)
	if err != nil {
		span.RecordError(err)
		return err
	}

	switch order.Status {
	case domain.StatusUnpaid:
		now := time.Now()
		ok, err := s.repo.Transition(ctx, orderRef, domain.StatusUnpaid, domain.StatusAwaitingShipment,
			map[string]interface{}{
				"pay_type":        payType,
				"transaction_ref": transactionRef,
				"paid_at":         now,
			})
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !ok {
			// 并发回调抢先流转，按重复回调处理。
			return s.healDeduct(ctx, orderRef)
		}
		orderTransitions.WithLabelValues(string(domain.StatusAwaitingShipment)).Inc()

		if err := s.repo.AppendHistory(ctx, domain.NewOperateHistory(
			orderRef, "payment-gateway", domain.StatusAwaitingShipment, "payment confirmed")); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order_ref", orderRef).Msg("append payment history failed")
		}

		if err := s.reservation.DeductStock(ctx, orderRef); err != nil {
			span.RecordError(err)
			logger.Ctx(ctx).Error().Err(err).
				Str("order_ref", orderRef).
				Msg("CRITICAL: stock deduction failed after payment, callback retry will heal")
			compensationFailures.Inc()
			return err
		}
		return nil

	case domain.StatusClosed:
		// 超时关单和支付在途发生竞争，钱已经收了，需要人工退款。
		logger.Ctx(ctx).Error().
			Str("order_ref", orderRef).
			Str("transaction_ref", transactionRef).
			Msg("CRITICAL: payment received for closed order, manual refund required")
		compensationFailures.Inc()
		if err := s.repo.AppendHistory(ctx, domain.NewOperateHistory(
			orderRef, "payment-gateway", domain.StatusClosed, "payment after close, refund required")); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order_ref", orderRef).Msg("append refund history failed")
		}
		return nil

	default:
		// 已支付的重复回调: 重放实扣保证幂等收敛。
		return s.healDeduct(ctx, orderRef)
	}
}

func (s *OrderApplicationService) healDeduct(ctx context.Context, orderRef string) error {
	if err := s.reservation.DeductStock(ctx, orderRef); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_ref", orderRef).
			Msg("stock deduction replay failed on duplicate callback")
		return err
	}
	return nil
}

// CancelOrder 关单并释放预占资源: UNPAID 专属，已关闭幂等。
// 守卫流转保证用户取消与超时关单并发时资源只释放一次。
func (s *OrderApplicationService) CancelOrder(ctx context.Context, orderRef, actor, reason string) error {
	ctx, span := s.tracer.Start(ctx, "app.CancelOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_ref", orderRef),
		attribute.String("actor", actor),
	)

	ok, err := s.repo.Transition(ctx, orderRef, domain.StatusUnpaid, domain.StatusClosed,
		map[string]interface{}{"close_reason": reason})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		order, err := s.repo.FindByRef(ctx, orderRef)
		if err != nil {
			return err
		}
		if order.Status == domain.StatusClosed {
			return nil
		}
		return domain.ErrNotCancellable
	}
	orderTransitions.WithLabelValues(string(domain.StatusClosed)).Inc()

	order, err := s.repo.FindByRef(ctx, orderRef)
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.releaseResources(ctx, order)

	if err := s.repo.AppendHistory(ctx, domain.NewOperateHistory(
		orderRef, actor, domain.StatusClosed, reason)); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_ref", orderRef).Msg("append cancel history failed")
	}
	return nil
}

// releaseResources 释放关单订单占用的库存、优惠券和积分。
// 每步失败只记日志打点，不回滚已完成的释放。
func (s *OrderApplicationService) releaseResources(ctx context.Context, order *domain.Order) {
	if err := s.reservation.UnlockStock(ctx, order.OrderRef); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_ref", order.OrderRef).
			Msg("CRITICAL: stock unlock failed on cancel, manual intervention required")
		compensationFailures.Inc()
	}
	if order.DiscountID != "" {
		if _, err := s.promotions.Release(ctx, order.DiscountID, order.BuyerID); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("order_ref", order.OrderRef).
				Str("discount_id", order.DiscountID).
				Msg("CRITICAL: discount release failed on cancel, manual intervention required")
			compensationFailures.Inc()
		}
	}
	if order.UsedPoints > 0 {
		if _, err := s.points.Refund(ctx, order.BuyerID, order.UsedPoints); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("order_ref", order.OrderRef).
				Int64("points", order.UsedPoints).
				Msg("CRITICAL: points refund failed on cancel, manual intervention required")
			compensationFailures.Inc()
		}
	}
}

// ShipOrder 发货: AWAITING_SHIPMENT -> SHIPPED。
func (s *OrderApplicationService) ShipOrder(ctx context.Context, orderRef, actor string) error {
	ctx, span := s.tracer.Start(ctx, "app.ShipOrder")
	defer span.End()

	ok, err := s.repo.Transition(ctx, orderRef, domain.StatusAwaitingShipment, domain.StatusShipped,
		map[string]interface{}{"shipped_at": time.Now()})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		return domain.ErrInvalidTransition
	}
	orderTransitions.WithLabelValues(string(domain.StatusShipped)).Inc()

	if err := s.repo.AppendHistory(ctx, domain.NewOperateHistory(
		orderRef, actor, domain.StatusShipped, "order shipped")); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_ref", orderRef).Msg("append ship history failed")
	}
	return nil
}

// ConfirmReceipt 确认收货: SHIPPED -> COMPLETED。用户确认和超时自动确认共用。
func (s *OrderApplicationService) ConfirmReceipt(ctx context.Context, orderRef, actor string) error {
	ctx, span := s.tracer.Start(ctx, "app.ConfirmReceipt")
	defer span.End()

	ok, err := s.repo.Transition(ctx, orderRef, domain.StatusShipped, domain.StatusCompleted,
		map[string]interface{}{"received_at": time.Now()})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		return domain.ErrInvalidTransition
	}
	orderTransitions.WithLabelValues(string(domain.StatusCompleted)).Inc()

	if err := s.repo.AppendHistory(ctx, domain.NewOperateHistory(
		orderRef, actor, domain.StatusCompleted, "receipt confirmed")); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_ref", orderRef).Msg("append confirm history failed")
	}
	return nil
}

// GetOrder 查询订单详情。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderRef string) (*OrderView, error) {
	order, err := s.repo.FindByRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	return orderViewFrom(order), nil
}

// ProcessTimeoutCheck 处理延迟队列投递的支付超时检查事件。
// 已支付的订单守卫流转会失败，事件直接丢弃。
func (s *OrderApplicationService) ProcessTimeoutCheck(ctx context.Context, event *domain.PaymentTimeoutCheckEvent) error {
	ctx, span := s.tracer.Start(ctx, "app.ProcessTimeoutCheck",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(attribute.String("order_ref", event.OrderRef))

	err := s.CancelOrder(ctx, event.OrderRef, "system", "payment timeout")
	switch {
	case err == nil:
		logger.Ctx(ctx).Info().Str("order_ref", event.OrderRef).Msg("order auto-cancelled on payment timeout")
		return nil
	case errors.Is(err, domain.ErrNotCancellable):
		// 订单已支付或已发货，超时检查到此为止。
		return nil
	case errors.Is(err, domain.ErrNotFound):
		logger.Ctx(ctx).Warn().Str("order_ref", event.OrderRef).Msg("timeout check for unknown order")
		return nil
	default:
		span.RecordError(err)
		return err
	}
}
