// internal/service/promotion/domain/errors.go
package domain

import "errors"

var (
	// ErrCouponNotFound 表示券码不存在。
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrTemplateNotFound 表示优惠模板不存在或已下线。
	ErrTemplateNotFound = errors.New("promotion template not found")

	// ErrNotOwner 表示券不属于请求的买家。
	ErrNotOwner = errors.New("coupon does not belong to shopper")

	// ErrNotUsable 表示券不可核销（已用/过期/未到生效期/不符门槛）。
	ErrNotUsable = errors.New("coupon not usable")
)
