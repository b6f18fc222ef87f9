// internal/service/promotion/domain/template.go
package domain

import "time"

// DiscountType 决定优惠金额的计算方式。
type DiscountType string

const (
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT" // 满减/立减
	DiscountPercentage  DiscountType = "PERCENTAGE"   // 折扣
)

// Template 是优惠券的权益定义，发放后不可变。
// 规则变更只能发新模板，已发出的券权益锁定在领取时的模板上。
type Template struct {
	ID     int64
	Name   string
	Active bool

	// Eligibility 是一段 CEL 表达式（入参 subtotal，返回 bool），
	// 为空表示无门槛。
	Eligibility string

	DiscountType DiscountType
	Amount       int64 // FIXED_AMOUNT: 抵扣金额，分
	Percent      int64 // PERCENTAGE: 折扣率，88 表示 88 折
	Ceiling      int64 // PERCENTAGE: 最高优惠金额，分，0 表示不封顶

	CreatedAt time.Time
}

// Quote 计算该模板在给定小计下可抵扣的金额（分）。
// 抵扣不会超过小计本身。
func (t *Template) Quote(subtotal int64) int64 {
	var amount int64
	switch t.DiscountType {
	case DiscountFixedAmount:
		amount = t.Amount
	case DiscountPercentage:
		amount = subtotal * (100 - t.Percent) / 100
		if t.Ceiling > 0 && amount > t.Ceiling {
			amount = t.Ceiling
		}
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
