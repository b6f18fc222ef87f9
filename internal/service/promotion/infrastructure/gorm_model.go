// internal/service/promotion/infrastructure/gorm_model.go
package infrastructure

import "time"

// TemplateModel 对应 coupon_template 表。
type TemplateModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:128;not null"`
	Active       bool   `gorm:"not null;default:true"`
	Eligibility  string `gorm:"size:512"`
	DiscountType string `gorm:"size:32;not null"`
	Amount       int64  `gorm:"not null;default:0"`
	Percent      int64  `gorm:"not null;default:0"`
	Ceiling      int64  `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

func (TemplateModel) TableName() string { return "coupon_template" }

// CouponModel 对应 user_coupon 表。状态流转全部走守卫 UPDATE。
type CouponModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Code       string `gorm:"size:64;uniqueIndex:uk_coupon_code;not null"`
	ShopperID  string `gorm:"size:64;index:idx_shopper;not null"`
	Status     string `gorm:"size:16;not null"`
	TemplateID int64  `gorm:"not null"`
	ValidFrom  time.Time
	ValidTo    time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time

	Template TemplateModel `gorm:"foreignKey:TemplateID"`
}

func (CouponModel) TableName() string { return "user_coupon" }
