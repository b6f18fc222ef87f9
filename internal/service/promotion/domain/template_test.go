package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTemplateQuoteFixedAmount(t *testing.T) {
	tpl := &Template{DiscountType: DiscountFixedAmount, Amount: 2000}

	assert.Equal(t, int64(2000), tpl.Quote(25000))
	// 抵扣不超过小计
	assert.Equal(t, int64(1500), tpl.Quote(1500))
}

func TestTemplateQuotePercentage(t *testing.T) {
	// 88 折，最高优惠 5000 分
	tpl := &Template{DiscountType: DiscountPercentage, Percent: 88, Ceiling: 5000}

	assert.Equal(t, int64(1200), tpl.Quote(10000))
	assert.Equal(t, int64(5000), tpl.Quote(100000))
}

func TestTemplateQuotePercentageNoCeiling(t *testing.T) {
	tpl := &Template{DiscountType: DiscountPercentage, Percent: 90}

	assert.Equal(t, int64(10000), tpl.Quote(100000))
}

func TestCouponUsable(t *testing.T) {
	tpl := &Template{ID: 1, Active: true, DiscountType: DiscountFixedAmount, Amount: 100}
	coupon := NewCoupon(tpl, "buyer-1", 24*time.Hour)

	now := time.Now()
	assert.True(t, coupon.Usable(now))

	// 过期不可用
	assert.False(t, coupon.Usable(now.Add(25*time.Hour)))

	// 已核销不可用
	coupon.Status = CouponUsed
	assert.False(t, coupon.Usable(now))

	// 模板下线不可用
	coupon.Status = CouponUnused
	tpl.Active = false
	assert.False(t, coupon.Usable(now))
}
