// internal/service/stock/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"mall/internal/service/stock/domain"
)

// WarehouseModel 对应 warehouse 表
type WarehouseModel struct {
	ID          uint   `gorm:"primaryKey"`
	WarehouseID string `gorm:"uniqueIndex;size:64"`
	Name        string `gorm:"size:128"`
	// Priority 越小越优先被选中
	Priority  int
	Enabled   bool `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WarehouseModel) TableName() string {
	return "warehouse"
}

// StockRecordModel 对应 stock_record 表，(sku_id, warehouse_id) 唯一
type StockRecordModel struct {
	ID          uint   `gorm:"primaryKey"`
	SkuID       string `gorm:"size:64;uniqueIndex:uk_sku_warehouse"`
	WarehouseID string `gorm:"size:64;uniqueIndex:uk_sku_warehouse"`
	ActualStock int
	LockedStock int
	MinStock    int
	MaxStock    int
	Status      domain.RecordStatus `gorm:"type:tinyint;default:1"`
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (StockRecordModel) TableName() string {
	return "stock_record"
}

// StockMovementModel 对应 stock_movement 流水表，只插入不更新
type StockMovementModel struct {
	ID           int64             `gorm:"primaryKey;autoIncrement"`
	SkuID        string            `gorm:"size:64;index:idx_sku_created"`
	WarehouseID  string            `gorm:"size:64"`
	Operation    domain.MovementOp `gorm:"size:16"`
	Delta        int
	StockBefore  int
	StockAfter   int
	LockedBefore int
	LockedAfter  int
	RelatedOrder string `gorm:"size:64;index"`
	Note         string `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"index:idx_sku_created"`
}

func (StockMovementModel) TableName() string {
	return "stock_movement"
}

// WorkOrderModel 对应 reservation_work_order 表，order_ref 唯一
type WorkOrderModel struct {
	ID            string                 `gorm:"primaryKey;size:36"`
	OrderRef      string                 `gorm:"uniqueIndex;size:64"`
	Status        domain.WorkOrderStatus `gorm:"size:16"`
	FailureReason string                 `gorm:"size:255"`
	CreatedAt     time.Time
	LockedAt      *time.Time
	UnlockedAt    *time.Time
	DeductedAt    *time.Time
}

func (WorkOrderModel) TableName() string {
	return "reservation_work_order"
}

// ReservationLineModel 对应 reservation_line 表
type ReservationLineModel struct {
	ID                string `gorm:"primaryKey;size:36"`
	WorkOrderID       string `gorm:"size:36;index"`
	SkuID             string `gorm:"size:64"`
	RequestedQty      int
	LockedQty         int
	AssignedWarehouse string            `gorm:"size:64"`
	Status            domain.LineStatus `gorm:"size:16"`
	FailureReason     string            `gorm:"size:255"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (ReservationLineModel) TableName() string {
	return "reservation_line"
}
