// internal/service/promotion/domain/repository.go
package domain

import "context"

// RuleEngine 评估模板的使用门槛。规则为空时实现方应返回 true。
type RuleEngine interface {
	Eligible(rule string, subtotal int64) (bool, error)
}

// CouponRepository 定义了券和模板的持久化接口，由基础设施层实现。
type CouponRepository interface {
	// FindByCode 按券码加载券（含模板），不存在返回 ErrCouponNotFound。
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// FindTemplate 按 id 加载模板，不存在返回 ErrTemplateNotFound。
	FindTemplate(ctx context.Context, id int64) (*Template, error)

	// Save 持久化一张新发的券。
	Save(ctx context.Context, coupon *Coupon) error

	// MarkUsed 守卫核销: 仅当券仍 UNUSED 时写入 USED。
	// 返回 false 表示守卫失败（并发核销或状态不符）。
	MarkUsed(ctx context.Context, code string) (bool, error)

	// MarkUnused 是 MarkUsed 的补偿写: 仅当券为 USED 时退回 UNUSED。
	MarkUnused(ctx context.Context, code string) (bool, error)
}
