// internal/service/stock/domain/errors.go
package domain

import "errors"

var (
	// ErrInsufficientStock 是业务上预期内的失败: 可用库存不足以锁定。
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrRecordNotFound 表示 (sku, warehouse) 维度的库存记录不存在或已停用。
	ErrRecordNotFound = errors.New("stock record not found")

	// ErrInvalidQuantity 表示请求数量非正。
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidState 表示账本上的守卫条件被违反（如解锁量超过锁定量）。
	// 工单纪律保证了它不应出现，出现即为内部错误，必须记录完整上下文。
	ErrInvalidState = errors.New("stock record in invalid state for operation")

	// ErrWorkOrderNotFound 表示 orderRef 没有对应的预占工单。
	ErrWorkOrderNotFound = errors.New("reservation work order not found")

	// ErrWorkOrderExists 表示同一 orderRef 已经有工单（幂等路径使用）。
	ErrWorkOrderExists = errors.New("reservation work order already exists")

	// ErrInvalidStateTransition 表示对工单执行了当前状态不允许的操作。
	ErrInvalidStateTransition = errors.New("invalid work order state transition")

	// ErrLockTimeout 表示没有在等待窗口内获得订单级互斥锁，调用方可重试。
	ErrLockTimeout = errors.New("lock acquisition timed out")
)
