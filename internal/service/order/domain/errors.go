// internal/service/order/domain/errors.go
package domain

import "errors"

var (
	// ErrNotFound 表示买家/地址/订单等实体不存在。
	ErrNotFound = errors.New("not found")

	// ErrPriceChanged 表示提交价与目录权威价不一致，下单中止（此时尚无副作用）。
	ErrPriceChanged = errors.New("price changed")

	// ErrInsufficientStock 表示库存预占失败。
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDiscountFailed 表示优惠券核销失败，触发库存补偿。
	ErrDiscountFailed = errors.New("discount consumption failed")

	// ErrPointsFailed 表示积分扣减失败，触发库存/优惠券补偿。
	ErrPointsFailed = errors.New("points deduction failed")

	// ErrDuplicateSubmission 表示同一买家的并发重复提交被互斥锁挡下。
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrNotCancellable 表示订单当前状态不允许取消。
	ErrNotCancellable = errors.New("order is not cancellable")

	// ErrInvalidTransition 表示状态机不允许的流转被请求。
	ErrInvalidTransition = errors.New("invalid order state transition")
)
