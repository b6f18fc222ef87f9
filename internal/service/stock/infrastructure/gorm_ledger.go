// internal/service/stock/infrastructure/gorm_ledger.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"mall/internal/service/stock/domain"
)

const mysqlErrDuplicateEntry = 1062

// MovementPublisher 把流水投递到事件总线（审计/实时订阅）。
// 投递失败不影响账本事务，由实现方记录日志。
type MovementPublisher interface {
	Publish(ctx context.Context, movement domain.StockMovement)
}

// GormLedger 是 domain.Ledger 的 GORM/MySQL 实现。
// 每个变更原语都是一条守卫条件内嵌在 WHERE 里的 UPDATE:
// 竞争的写入方中只有守卫仍然成立的那一个能改到行，
// 失败方得到 0 rows affected，不存在读-改-写的竞态窗口。
type GormLedger struct {
	db   *gorm.DB
	feed MovementPublisher
}

// NewGormLedger 创建账本实例。feed 可为 nil（不投递流水事件）。
func NewGormLedger(db *gorm.DB, feed MovementPublisher) *GormLedger {
	return &GormLedger{db: db, feed: feed}
}

// Lock 锁定库存。守卫: 记录启用且 actual - locked >= qty。
func (r *GormLedger) Lock(ctx context.Context, skuID, warehouseID string, qty int, orderRef string) error {
	return r.conditionalUpdate(ctx, skuID, warehouseID, qty, orderRef, domain.OpLock,
		func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&StockRecordModel{}).
				Where("sku_id = ? AND warehouse_id = ? AND status = ? AND actual_stock - locked_stock >= ?",
					skuID, warehouseID, domain.RecordEnabled, qty).
				Updates(map[string]interface{}{
					"locked_stock": gorm.Expr("locked_stock + ?", qty),
					"version":      gorm.Expr("version + 1"),
					"updated_at":   time.Now(),
				})
		},
		domain.ErrInsufficientStock)
}

// Unlock 释放锁定。守卫: locked >= qty。守卫失败意味着工单纪律被绕过。
func (r *GormLedger) Unlock(ctx context.Context, skuID, warehouseID string, qty int, orderRef string) error {
	return r.conditionalUpdate(ctx, skuID, warehouseID, qty, orderRef, domain.OpUnlock,
		func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&StockRecordModel{}).
				Where("sku_id = ? AND warehouse_id = ? AND locked_stock >= ?", skuID, warehouseID, qty).
				Updates(map[string]interface{}{
					"locked_stock": gorm.Expr("locked_stock - ?", qty),
					"version":      gorm.Expr("version + 1"),
					"updated_at":   time.Now(),
				})
		},
		domain.ErrInvalidState)
}

// Deduct 锁定转实扣。守卫: actual >= qty && locked >= qty。
func (r *GormLedger) Deduct(ctx context.Context, skuID, warehouseID string, qty int, orderRef string) error {
	return r.conditionalUpdate(ctx, skuID, warehouseID, qty, orderRef, domain.OpDeduct,
		func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&StockRecordModel{}).
				Where("sku_id = ? AND warehouse_id = ? AND actual_stock >= ? AND locked_stock >= ?",
					skuID, warehouseID, qty, qty).
				Updates(map[string]interface{}{
					"actual_stock": gorm.Expr("actual_stock - ?", qty),
					"locked_stock": gorm.Expr("locked_stock - ?", qty),
					"version":      gorm.Expr("version + 1"),
					"updated_at":   time.Now(),
				})
		},
		domain.ErrInvalidState)
}

// conditionalUpdate 执行一次条件写 + 同事务追加流水。
func (r *GormLedger) conditionalUpdate(ctx context.Context, skuID, warehouseID string, qty int, orderRef string,
	op domain.MovementOp, update func(tx *gorm.DB) *gorm.DB, guardErr error) error {

	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	var movement domain.StockMovement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := update(tx)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 区分"记录不存在/停用"与"守卫条件不满足"
			var count int64
			if err := tx.Model(&StockRecordModel{}).
				Where("sku_id = ? AND warehouse_id = ? AND status = ?", skuID, warehouseID, domain.RecordEnabled).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrRecordNotFound
			}
			return guardErr
		}

		// 守卫已经生效，这里读到的就是变更后的快照
		var after StockRecordModel
		if err := tx.Where("sku_id = ? AND warehouse_id = ?", skuID, warehouseID).First(&after).Error; err != nil {
			return err
		}

		row := movementRow(&after, op, qty, orderRef, "")
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		movement = toDomainMovement(row)
		return nil
	})
	if err != nil {
		return err
	}

	if r.feed != nil {
		r.feed.Publish(ctx, movement)
	}
	return nil
}

// AddStock 入库/调整。记录不存在时创建，与并发创建的竞争通过唯一键兜底。
func (r *GormLedger) AddStock(ctx context.Context, skuID, warehouseID string, qty int, note string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	var movement domain.StockMovement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&StockRecordModel{}).
			Where("sku_id = ? AND warehouse_id = ?", skuID, warehouseID).
			Updates(map[string]interface{}{
				"actual_stock": gorm.Expr("actual_stock + ?", qty),
				"version":      gorm.Expr("version + 1"),
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			record := &StockRecordModel{
				SkuID:       skuID,
				WarehouseID: warehouseID,
				ActualStock: qty,
				Status:      domain.RecordEnabled,
				Version:     1,
			}
			if err := tx.Create(record).Error; err != nil {
				var mysqlErr *mysql.MySQLError
				if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
					// 并发创建输掉了，退回到累加
					return tx.Model(&StockRecordModel{}).
						Where("sku_id = ? AND warehouse_id = ?", skuID, warehouseID).
						Updates(map[string]interface{}{
							"actual_stock": gorm.Expr("actual_stock + ?", qty),
							"version":      gorm.Expr("version + 1"),
						}).Error
				}
				return err
			}
		}

		var after StockRecordModel
		if err := tx.Where("sku_id = ? AND warehouse_id = ?", skuID, warehouseID).First(&after).Error; err != nil {
			return err
		}
		row := movementRow(&after, domain.OpStockIn, qty, "", note)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		movement = toDomainMovement(row)
		return nil
	})
	if err != nil {
		return err
	}

	if r.feed != nil {
		r.feed.Publish(ctx, movement)
	}
	return nil
}

// FindBySku 返回某 SKU 在所有仓库的账本记录。
func (r *GormLedger) FindBySku(ctx context.Context, skuID string) ([]domain.StockRecord, error) {
	var models []StockRecordModel
	if err := r.db.WithContext(ctx).Where("sku_id = ?", skuID).Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]domain.StockRecord, 0, len(models))
	for i := range models {
		records = append(records, toDomainRecord(&models[i]))
	}
	return records, nil
}

// FindCandidates 返回仓库选择所需的视图，带上仓库优先级。
func (r *GormLedger) FindCandidates(ctx context.Context, skuID string) ([]domain.WarehouseStock, error) {
	var rows []struct {
		WarehouseID string
		Priority    int
		Available   int
		Enabled     bool
	}
	err := r.db.WithContext(ctx).
		Table("stock_record s").
		Select("w.warehouse_id, w.priority, w.enabled, s.actual_stock - s.locked_stock AS available").
		Joins("JOIN warehouse w ON w.warehouse_id = s.warehouse_id").
		Where("s.sku_id = ? AND s.status = ?", skuID, domain.RecordEnabled).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	candidates := make([]domain.WarehouseStock, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, domain.WarehouseStock{
			WarehouseID: row.WarehouseID,
			Priority:    row.Priority,
			Available:   row.Available,
			Enabled:     row.Enabled,
		})
	}
	return candidates, nil
}

func movementRow(after *StockRecordModel, op domain.MovementOp, qty int, orderRef, note string) *StockMovementModel {
	delta := qty
	stockBefore := after.ActualStock
	lockedBefore := after.LockedStock
	switch op {
	case domain.OpLock:
		lockedBefore -= qty
	case domain.OpUnlock:
		lockedBefore += qty
	case domain.OpDeduct:
		stockBefore += qty
		lockedBefore += qty
		delta = -qty
	case domain.OpStockIn:
		stockBefore -= qty
	}
	return &StockMovementModel{
		SkuID:        after.SkuID,
		WarehouseID:  after.WarehouseID,
		Operation:    op,
		Delta:        delta,
		StockBefore:  stockBefore,
		StockAfter:   after.ActualStock,
		LockedBefore: lockedBefore,
		LockedAfter:  after.LockedStock,
		RelatedOrder: orderRef,
		Note:         note,
		CreatedAt:    time.Now(),
	}
}
