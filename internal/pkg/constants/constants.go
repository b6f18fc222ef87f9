// internal/pkg/constants/constants.go
package constants

// 注册中心里的服务名。
const (
	StockService     = "stock-service"
	OrderService     = "order-service"
	UserService      = "user-service"
	CatalogService   = "catalog-service"
	PromotionService = "promotion-service"
	PointsService    = "points-service"
	CartService      = "cart-service"
)

// 库存服务路径。
const (
	StockLockPath     = "/lock_stock"
	StockUnlockPath   = "/unlock_stock"
	StockDeductPath   = "/deduct_stock"
	StockHasStockPath = "/has_stock"
)

// 用户服务路径。
const (
	UserProfilePath = "/get_profile"
	UserAddressPath = "/get_address"
)

// 目录服务路径。
const (
	CatalogSkusPath = "/get_skus"
)

// 优惠券服务路径。
const (
	PromotionQuotePath   = "/quote_discount"
	PromotionConsumePath = "/consume_discount"
	PromotionReleasePath = "/release_discount"
)

// 积分服务路径。
const (
	PointsDeductPath = "/deduct_points"
	PointsRefundPath = "/refund_points"
	PointsCreditPath = "/credit_points"
)

// 购物车服务路径。
const (
	CartClearPath = "/clear_lines"
)
