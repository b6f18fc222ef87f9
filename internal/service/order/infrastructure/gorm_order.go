// internal/service/order/infrastructure/gorm_order.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"mall/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM/MySQL 实现。
// 状态流转一律是守卫条件内嵌在 WHERE 里的 UPDATE，
// 并发流转方中只有守卫仍成立的那一个能改到行。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create 在一个本地事务里落库订单、明细和首条流水。
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order, history *domain.OperateHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toOrderModel(order)).Error; err != nil {
			return err
		}
		if items := toItemModels(order); len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		if history != nil {
			if err := tx.Create(toHistoryModel(history)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormOrderRepository) FindByRef(ctx context.Context, orderRef string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("order_ref = ?", orderRef).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var items []OrderItemModel
	if err := r.db.WithContext(ctx).Where("order_ref = ?", orderRef).Find(&items).Error; err != nil {
		return nil, err
	}
	return toDomainOrder(&model, items), nil
}

// Transition 守卫流转: WHERE 里带上 from 状态，竞争方拿到 0 行更新。
func (r *GormOrderRepository) Transition(ctx context.Context, orderRef string, from, to domain.Status, set map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": string(to)}
	for k, v := range set {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("order_ref = ? AND status = ?", orderRef, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormOrderRepository) AppendHistory(ctx context.Context, history *domain.OperateHistory) error {
	return r.db.WithContext(ctx).Create(toHistoryModel(history)).Error
}

func (r *GormOrderRepository) FindUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	return r.findRefs(ctx, "status = ? AND created_at < ?",
		[]interface{}{string(domain.StatusUnpaid), cutoff}, limit)
}

func (r *GormOrderRepository) FindShippedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	return r.findRefs(ctx, "status = ? AND shipped_at < ?",
		[]interface{}{string(domain.StatusShipped), cutoff}, limit)
}

func (r *GormOrderRepository) FindUnsettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	return r.findRefs(ctx, "status = ? AND settled_at IS NULL AND received_at < ?",
		[]interface{}{string(domain.StatusCompleted), cutoff}, limit)
}

func (r *GormOrderRepository) findRefs(ctx context.Context, where string, args []interface{}, limit int) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where(where, args...).
		Order("id asc").
		Limit(limit).
		Pluck("order_ref", &refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// MarkSettled 结算守卫写，保证积分返还只触发一次。
func (r *GormOrderRepository) MarkSettled(ctx context.Context, orderRef string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("order_ref = ? AND status = ? AND settled_at IS NULL",
			orderRef, string(domain.StatusCompleted)).
		Update("settled_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
