package saga

import (
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// PricingHandler 负责金额拆解: 商品小计、运费、优惠券试算、积分抵扣。
// 运费和优惠券试算互不依赖，并发调用。
type PricingHandler struct {
	NextHandler
	pointsRate int64 // 一积分抵扣多少分
}

func NewPricingHandler(pointsRate int64) *PricingHandler {
	return &PricingHandler{pointsRate: pointsRate}
}

func (h *PricingHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Pricing")
	defer span.End()

	order := orderCtx.Order

	var subtotal int64
	var weight float64
	for _, item := range order.Items {
		subtotal += item.Total
		weight += item.Weight
	}
	order.GoodsTotal = subtotal

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	var freight, couponDiscount int64
	wg.Add(2)

	go func() {
		defer wg.Done()
		fee, err := orderCtx.Freight.Calculate(ctx, port.FreightInput{
			Subtotal: subtotal,
			Weight:   weight,
			Province: orderCtx.Address.Province,
		})
		if err != nil {
			errs <- fmt.Errorf("freight calculation: %w", err)
			return
		}
		freight = fee
	}()

	go func() {
		defer wg.Done()
		if orderCtx.Command.DiscountID == "" {
			return
		}
		amount, err := orderCtx.Promotions.Quote(ctx,
			orderCtx.Command.DiscountID, order.BuyerID, subtotal)
		if err != nil {
			errs <- fmt.Errorf("coupon quote: %w", err)
			return
		}
		couponDiscount = amount
	}()

	wg.Wait()
	close(errs)

	var combinedErr error
	for err := range errs {
		combinedErr = errors.Join(combinedErr, err)
	}
	if combinedErr != nil {
		span.RecordError(combinedErr)
		span.SetStatus(codes.Error, "freight/coupon quote failed")
		return combinedErr
	}

	usePoints := orderCtx.Command.UsePoints
	if usePoints > 0 && usePoints > orderCtx.Profile.Points {
		span.SetStatus(codes.Error, "insufficient points balance")
		return fmt.Errorf("use %d points, balance %d: %w",
			usePoints, orderCtx.Profile.Points, domain.ErrPointsFailed)
	}

	order.Freight = freight
	order.CouponDiscount = couponDiscount
	order.DiscountID = orderCtx.Command.DiscountID
	order.UsedPoints = usePoints
	order.PointsDeduction = usePoints * h.pointsRate

	payable := subtotal + freight - couponDiscount - order.PointsDeduction
	if payable < 0 {
		payable = 0
	}
	order.Payable = payable

	span.SetAttributes(
		attribute.Int64("goods_total", order.GoodsTotal),
		attribute.Int64("freight", order.Freight),
		attribute.Int64("coupon_discount", order.CouponDiscount),
		attribute.Int64("points_deduction", order.PointsDeduction),
		attribute.Int64("payable", order.Payable),
	)

	return h.executeNext(orderCtx)
}
