// internal/service/promotion/domain/coupon.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CouponStatus 是用户券的生命周期状态。
// 核销发生在下单时，关单补偿把券退回 UNUSED。
type CouponStatus string

const (
	CouponUnused  CouponStatus = "UNUSED"
	CouponUsed    CouponStatus = "USED"
	CouponExpired CouponStatus = "EXPIRED"
)

// Coupon 是买家持有的一张券实例，Code 即订单侧引用的 discountId。
type Coupon struct {
	Code      string
	ShopperID string
	Status    CouponStatus

	TemplateID int64
	Template   *Template

	ValidFrom time.Time
	ValidTo   time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// NewCoupon 按模板给买家发一张券。
func NewCoupon(template *Template, shopperID string, validity time.Duration) *Coupon {
	now := time.Now()
	return &Coupon{
		Code:       uuid.New().String(),
		ShopperID:  shopperID,
		Status:     CouponUnused,
		TemplateID: template.ID,
		Template:   template,
		ValidFrom:  now,
		ValidTo:    now.Add(validity),
		CreatedAt:  now,
	}
}

// Usable 检查券当前是否可核销。
func (c *Coupon) Usable(at time.Time) bool {
	return c.Status == CouponUnused &&
		!at.Before(c.ValidFrom) && at.Before(c.ValidTo) &&
		c.Template != nil && c.Template.Active
}
