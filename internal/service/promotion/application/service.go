// internal/service/promotion/application/service.go
package application

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mall/internal/pkg/logger"
	"mall/internal/service/promotion/domain"
)

// PromotionService 提供优惠券的报价、核销和补偿退回。
// Quote 无副作用；Consume/Release 是订单侧 SAGA 的一对正反操作，
// 守卫写保证并发重复请求只有一次生效。
type PromotionService struct {
	repo   domain.CouponRepository
	rules  domain.RuleEngine
	tracer trace.Tracer
}

func NewPromotionService(repo domain.CouponRepository, rules domain.RuleEngine, tracer trace.Tracer) *PromotionService {
	return &PromotionService{repo: repo, rules: rules, tracer: tracer}
}

// Quote 返回券在给定小计下可抵扣的金额（分），不改变券状态。
func (s *PromotionService) Quote(ctx context.Context, code, shopperID string, subtotal int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Quote")
	defer span.End()

	span.SetAttributes(
		attribute.String("coupon_code", code),
		attribute.Int64("subtotal", subtotal),
	)

	coupon, err := s.loadOwned(ctx, code, shopperID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if !coupon.Usable(time.Now()) {
		return 0, domain.ErrNotUsable
	}

	eligible, err := s.rules.Eligible(coupon.Template.Eligibility, subtotal)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if !eligible {
		return 0, fmt.Errorf("subtotal below threshold: %w", domain.ErrNotUsable)
	}

	return coupon.Template.Quote(subtotal), nil
}

// Consume 核销券。返回 false 表示券不可用或已被并发核销。
func (s *PromotionService) Consume(ctx context.Context, code, shopperID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Consume")
	defer span.End()

	coupon, err := s.loadOwned(ctx, code, shopperID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if !coupon.Usable(time.Now()) {
		couponOps.WithLabelValues("consume", "rejected").Inc()
		return false, nil
	}

	ok, err := s.repo.MarkUsed(ctx, code)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if !ok {
		couponOps.WithLabelValues("consume", "lost_race").Inc()
		return false, nil
	}
	couponOps.WithLabelValues("consume", "success").Inc()
	logger.Ctx(ctx).Info().Str("coupon_code", code).Msg("coupon consumed")
	return true, nil
}

// Release 把已核销的券退回可用状态，重复退回幂等返回 true。
func (s *PromotionService) Release(ctx context.Context, code, shopperID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Release")
	defer span.End()

	coupon, err := s.loadOwned(ctx, code, shopperID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	ok, err := s.repo.MarkUnused(ctx, code)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if !ok && coupon.Status != domain.CouponUsed {
		// 券本来就没被核销，补偿视为已完成
		couponOps.WithLabelValues("release", "noop").Inc()
		return true, nil
	}
	couponOps.WithLabelValues("release", "success").Inc()
	logger.Ctx(ctx).Info().Str("coupon_code", code).Msg("coupon released")
	return true, nil
}

// Grant 按模板给买家发一张券。
func (s *PromotionService) Grant(ctx context.Context, templateID int64, shopperID string, validity time.Duration) (*GrantResult, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Grant")
	defer span.End()

	template, err := s.repo.FindTemplate(ctx, templateID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if validity <= 0 {
		validity = 30 * 24 * time.Hour
	}

	coupon := domain.NewCoupon(template, shopperID, validity)
	if err := s.repo.Save(ctx, coupon); err != nil {
		span.RecordError(err)
		return nil, err
	}
	couponOps.WithLabelValues("grant", "success").Inc()
	return &GrantResult{Code: coupon.Code, ValidTo: coupon.ValidTo}, nil
}

func (s *PromotionService) loadOwned(ctx context.Context, code, shopperID string) (*domain.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if coupon.ShopperID != shopperID {
		return nil, domain.ErrNotOwner
	}
	return coupon, nil
}
