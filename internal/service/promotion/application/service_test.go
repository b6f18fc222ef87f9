package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"mall/internal/service/promotion/domain"
)

// memCouponRepo 的守卫写语义与 GORM 实现一致。
type memCouponRepo struct {
	mu        sync.Mutex
	coupons   map[string]*domain.Coupon
	templates map[int64]*domain.Template
}

func newMemCouponRepo() *memCouponRepo {
	return &memCouponRepo{
		coupons:   make(map[string]*domain.Coupon),
		templates: make(map[int64]*domain.Template),
	}
}

func (r *memCouponRepo) FindByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupon, ok := r.coupons[code]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	cp := *coupon
	return &cp, nil
}

func (r *memCouponRepo) FindTemplate(_ context.Context, id int64) (*domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[id]
	if !ok || !tpl.Active {
		return nil, domain.ErrTemplateNotFound
	}
	return tpl, nil
}

func (r *memCouponRepo) Save(_ context.Context, coupon *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *coupon
	r.coupons[coupon.Code] = &cp
	return nil
}

func (r *memCouponRepo) MarkUsed(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupon, ok := r.coupons[code]
	if !ok || coupon.Status != domain.CouponUnused {
		return false, nil
	}
	now := time.Now()
	coupon.Status = domain.CouponUsed
	coupon.UsedAt = &now
	return true, nil
}

func (r *memCouponRepo) MarkUnused(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupon, ok := r.coupons[code]
	if !ok || coupon.Status != domain.CouponUsed {
		return false, nil
	}
	coupon.Status = domain.CouponUnused
	coupon.UsedAt = nil
	return true, nil
}

// thresholdRule 按固定门槛判定，替代 CEL 引擎。
type thresholdRule struct{ min int64 }

func (t thresholdRule) Eligible(rule string, subtotal int64) (bool, error) {
	if rule == "" {
		return true, nil
	}
	return subtotal >= t.min, nil
}

func newTestService(repo *memCouponRepo, minSubtotal int64) *PromotionService {
	return NewPromotionService(repo, thresholdRule{min: minSubtotal}, otel.Tracer("test"))
}

func seedCoupon(repo *memCouponRepo, shopperID string) string {
	tpl := &domain.Template{
		ID: 1, Name: "满200减20", Active: true,
		Eligibility:  "subtotal >= 20000",
		DiscountType: domain.DiscountFixedAmount,
		Amount:       2000,
	}
	repo.templates[tpl.ID] = tpl
	coupon := domain.NewCoupon(tpl, shopperID, 24*time.Hour)
	repo.coupons[coupon.Code] = coupon
	return coupon.Code
}

func TestQuoteEligibleCoupon(t *testing.T) {
	repo := newMemCouponRepo()
	code := seedCoupon(repo, "buyer-1")
	svc := newTestService(repo, 20000)

	amount, err := svc.Quote(context.Background(), code, "buyer-1", 25000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), amount)
}

func TestQuoteBelowThreshold(t *testing.T) {
	repo := newMemCouponRepo()
	code := seedCoupon(repo, "buyer-1")
	svc := newTestService(repo, 20000)

	_, err := svc.Quote(context.Background(), code, "buyer-1", 15000)
	assert.ErrorIs(t, err, domain.ErrNotUsable)
}

func TestQuoteRejectsForeignCoupon(t *testing.T) {
	repo := newMemCouponRepo()
	code := seedCoupon(repo, "buyer-1")
	svc := newTestService(repo, 0)

	_, err := svc.Quote(context.Background(), code, "buyer-2", 25000)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestConsumeThenReleaseRoundTrip(t *testing.T) {
	repo := newMemCouponRepo()
	code := seedCoupon(repo, "buyer-1")
	svc := newTestService(repo, 0)

	ok, err := svc.Consume(context.Background(), code, "buyer-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.CouponUsed, repo.coupons[code].Status)

	// 重复核销失败
	ok, err = svc.Consume(context.Background(), code, "buyer-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// 补偿退回后可再次核销
	ok, err = svc.Release(context.Background(), code, "buyer-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.CouponUnused, repo.coupons[code].Status)
}

func TestReleaseUnusedCouponIsIdempotent(t *testing.T) {
	repo := newMemCouponRepo()
	code := seedCoupon(repo, "buyer-1")
	svc := newTestService(repo, 0)

	ok, err := svc.Release(context.Background(), code, "buyer-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	repo := newMemCouponRepo()
	code := seedCoupon(repo, "buyer-1")
	svc := newTestService(repo, 0)

	var wg sync.WaitGroup
	var wins atomic.Int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Consume(context.Background(), code, "buyer-1")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
}

func TestGrantCreatesUsableCoupon(t *testing.T) {
	repo := newMemCouponRepo()
	seedCoupon(repo, "buyer-1")
	svc := newTestService(repo, 0)

	result, err := svc.Grant(context.Background(), 1, "buyer-2", 7*24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Code)

	coupon := repo.coupons[result.Code]
	require.NotNil(t, coupon)
	assert.Equal(t, "buyer-2", coupon.ShopperID)
	assert.Equal(t, domain.CouponUnused, coupon.Status)
}
