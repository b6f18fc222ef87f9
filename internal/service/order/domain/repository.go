// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现。
type OrderRepository interface {
	// Create 在一个本地事务里持久化订单、全部明细和首条操作流水。
	Create(ctx context.Context, order *Order, history *OperateHistory) error

	// FindByRef 按订单号加载聚合（含明细），不存在返回 ErrNotFound。
	FindByRef(ctx context.Context, orderRef string) (*Order, error)

	// Transition 执行一次状态守卫流转: 只有当前状态等于 from 时才写入。
	// 返回 false 表示守卫失败（已被并发流转走），这是扫描任务防止
	// 双重处理的天然去重手段。set 携带随流转一起落库的字段。
	Transition(ctx context.Context, orderRef string, from, to Status, set map[string]interface{}) (bool, error)

	// AppendHistory 追加一条操作流水。
	AppendHistory(ctx context.Context, history *OperateHistory) error

	// FindUnpaidBefore 查询创建时间早于 cutoff 且仍 UNPAID 的订单号（限量）。
	FindUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)

	// FindShippedBefore 查询发货时间早于 cutoff 且仍 SHIPPED 的订单号（限量）。
	FindShippedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)

	// FindUnsettledBefore 查询收货时间早于 cutoff、已完成但未结算的订单号（限量）。
	FindUnsettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)

	// MarkSettled 结算守卫写: 仅当订单已完成且未结算时生效。
	MarkSettled(ctx context.Context, orderRef string, at time.Time) (bool, error)
}
