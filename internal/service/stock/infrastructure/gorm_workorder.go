// internal/service/stock/infrastructure/gorm_workorder.go
package infrastructure

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"mall/internal/service/stock/domain"
)

// GormWorkOrderRepository 是 domain.WorkOrderRepository 的 GORM 实现。
// order_ref 上的唯一索引是幂等的最后一道防线: 两个并发请求即便都越过了
// 分布式锁，也只有一个能创建出工单。
type GormWorkOrderRepository struct {
	db *gorm.DB
}

func NewGormWorkOrderRepository(db *gorm.DB) *GormWorkOrderRepository {
	return &GormWorkOrderRepository{db: db}
}

func (r *GormWorkOrderRepository) Create(ctx context.Context, wo *domain.WorkOrder) error {
	err := r.db.WithContext(ctx).Create(toWorkOrderModel(wo)).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return domain.ErrWorkOrderExists
		}
		return err
	}
	return nil
}

func (r *GormWorkOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(toWorkOrderModel(wo)).Error; err != nil {
			return err
		}
		// 明细行整体重写，行数很小（一单的 SKU 数）
		if err := tx.Where("work_order_id = ?", wo.ID).Delete(&ReservationLineModel{}).Error; err != nil {
			return err
		}
		lines := toLineModels(wo)
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
}

func (r *GormWorkOrderRepository) FindByOrderRef(ctx context.Context, orderRef string) (*domain.WorkOrder, error) {
	var model WorkOrderModel
	err := r.db.WithContext(ctx).Where("order_ref = ?", orderRef).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWorkOrderNotFound
		}
		return nil, err
	}
	return r.withLines(ctx, &model)
}

func (r *GormWorkOrderRepository) FindByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	var model WorkOrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWorkOrderNotFound
		}
		return nil, err
	}
	return r.withLines(ctx, &model)
}

func (r *GormWorkOrderRepository) withLines(ctx context.Context, model *WorkOrderModel) (*domain.WorkOrder, error) {
	var lines []ReservationLineModel
	if err := r.db.WithContext(ctx).
		Where("work_order_id = ?", model.ID).
		Order("created_at").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return toDomainWorkOrder(model, lines), nil
}

// GormMovementLog 是流水的只读查询实现。
type GormMovementLog struct {
	db *gorm.DB
}

func NewGormMovementLog(db *gorm.DB) *GormMovementLog {
	return &GormMovementLog{db: db}
}

func (r *GormMovementLog) FindBySku(ctx context.Context, skuID string, limit int) ([]domain.StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []StockMovementModel
	err := r.db.WithContext(ctx).
		Where("sku_id = ?", skuID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	movements := make([]domain.StockMovement, 0, len(models))
	for i := range models {
		movements = append(movements, toDomainMovement(&models[i]))
	}
	return movements, nil
}
