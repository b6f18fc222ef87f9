// internal/service/promotion/infrastructure/gorm_coupon.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"mall/internal/service/promotion/domain"
)

// GormCouponRepository 是 domain.CouponRepository 的 GORM 实现。
// 核销与退回都是条件 UPDATE，并发竞争由数据库行锁裁决。
type GormCouponRepository struct {
	db *gorm.DB
}

func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var model CouponModel
	err := r.db.WithContext(ctx).Preload("Template").Where("code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}
	return toDomainCoupon(&model), nil
}

func (r *GormCouponRepository) FindTemplate(ctx context.Context, id int64) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return toDomainTemplate(&model), nil
}

func (r *GormCouponRepository) Save(ctx context.Context, coupon *domain.Coupon) error {
	return r.db.WithContext(ctx).Create(toCouponModel(coupon)).Error
}

func (r *GormCouponRepository) MarkUsed(ctx context.Context, code string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&CouponModel{}).
		Where("code = ? AND status = ?", code, string(domain.CouponUnused)).
		Updates(map[string]interface{}{
			"status":  string(domain.CouponUsed),
			"used_at": now,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *GormCouponRepository) MarkUnused(ctx context.Context, code string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&CouponModel{}).
		Where("code = ? AND status = ?", code, string(domain.CouponUsed)).
		Updates(map[string]interface{}{
			"status":  string(domain.CouponUnused),
			"used_at": nil,
		})
	return result.RowsAffected > 0, result.Error
}
