// internal/service/order/infrastructure/gorm_model.go
package infrastructure

import "time"

// OrderModel 对应订单主表。金额字段单位: 分。
type OrderModel struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	OrderRef string `gorm:"column:order_ref;type:varchar(64);uniqueIndex:uk_order_ref;not null"`
	BuyerID  string `gorm:"column:buyer_id;type:varchar(64);index:idx_buyer;not null"`
	Status   string `gorm:"column:status;type:varchar(32);index:idx_status_created;not null"`

	GoodsTotal      int64 `gorm:"column:goods_total;not null"`
	Freight         int64 `gorm:"column:freight;not null"`
	CouponDiscount  int64 `gorm:"column:coupon_discount;not null"`
	PointsDeduction int64 `gorm:"column:points_deduction;not null"`
	Payable         int64 `gorm:"column:payable;not null"`

	DiscountID string `gorm:"column:discount_id;type:varchar(64)"`
	UsedPoints int64  `gorm:"column:used_points;not null"`

	ReceiverName  string `gorm:"column:receiver_name;type:varchar(64)"`
	ReceiverPhone string `gorm:"column:receiver_phone;type:varchar(32)"`
	Province      string `gorm:"column:province;type:varchar(32)"`
	City          string `gorm:"column:city;type:varchar(32)"`
	Detail        string `gorm:"column:detail;type:varchar(255)"`

	PayType        string `gorm:"column:pay_type;type:varchar(32)"`
	TransactionRef string `gorm:"column:transaction_ref;type:varchar(64)"`
	CloseReason    string `gorm:"column:close_reason;type:varchar(255)"`

	CartLineIDs string `gorm:"column:cart_line_ids;type:varchar(1024)"`

	CreatedAt  time.Time  `gorm:"column:created_at;index:idx_status_created"`
	PaidAt     *time.Time `gorm:"column:paid_at"`
	ShippedAt  *time.Time `gorm:"column:shipped_at"`
	ReceivedAt *time.Time `gorm:"column:received_at"`
	SettledAt  *time.Time `gorm:"column:settled_at"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel 对应订单明细表，价格为下单时快照。
type OrderItemModel struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	OrderRef string `gorm:"column:order_ref;type:varchar(64);index:idx_order_ref;not null"`

	SkuID     string  `gorm:"column:sku_id;type:varchar(64);not null"`
	SkuName   string  `gorm:"column:sku_name;type:varchar(255)"`
	Price     int64   `gorm:"column:price;not null"`
	Qty       int     `gorm:"column:qty;not null"`
	Total     int64   `gorm:"column:total;not null"`
	Weight    float64 `gorm:"column:weight"`
	Warehouse string  `gorm:"column:warehouse;type:varchar(64)"`
}

func (OrderItemModel) TableName() string { return "order_item" }

// OperateHistoryModel 对应订单操作流水表，只增不改。
type OperateHistoryModel struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)"`
	OrderRef        string    `gorm:"column:order_ref;type:varchar(64);index:idx_order_ref;not null"`
	Actor           string    `gorm:"column:actor;type:varchar(64);not null"`
	ResultingStatus string    `gorm:"column:resulting_status;type:varchar(32);not null"`
	Note            string    `gorm:"column:note;type:varchar(255)"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (OperateHistoryModel) TableName() string { return "order_operate_history" }
