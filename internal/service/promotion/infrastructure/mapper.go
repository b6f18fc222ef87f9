// internal/service/promotion/infrastructure/mapper.go
package infrastructure

import "mall/internal/service/promotion/domain"

func toDomainTemplate(m *TemplateModel) *domain.Template {
	return &domain.Template{
		ID:           m.ID,
		Name:         m.Name,
		Active:       m.Active,
		Eligibility:  m.Eligibility,
		DiscountType: domain.DiscountType(m.DiscountType),
		Amount:       m.Amount,
		Percent:      m.Percent,
		Ceiling:      m.Ceiling,
		CreatedAt:    m.CreatedAt,
	}
}

func toDomainCoupon(m *CouponModel) *domain.Coupon {
	return &domain.Coupon{
		Code:       m.Code,
		ShopperID:  m.ShopperID,
		Status:     domain.CouponStatus(m.Status),
		TemplateID: m.TemplateID,
		Template:   toDomainTemplate(&m.Template),
		ValidFrom:  m.ValidFrom,
		ValidTo:    m.ValidTo,
		UsedAt:     m.UsedAt,
		CreatedAt:  m.CreatedAt,
	}
}

func toCouponModel(c *domain.Coupon) *CouponModel {
	return &CouponModel{
		Code:       c.Code,
		ShopperID:  c.ShopperID,
		Status:     string(c.Status),
		TemplateID: c.TemplateID,
		ValidFrom:  c.ValidFrom,
		ValidTo:    c.ValidTo,
		UsedAt:     c.UsedAt,
		CreatedAt:  c.CreatedAt,
	}
}
