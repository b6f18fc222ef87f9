// internal/service/order/domain/port/freight.go
package port

import "context"

// FreightInput 是运费规则的入参事实。
type FreightInput struct {
	Subtotal int64   // 商品小计，分
	Weight   float64 // 总重量，千克
	Province string  // 收货省份
}

// FreightCalculator 计算一单的运费（分）。
type FreightCalculator interface {
	Calculate(ctx context.Context, input FreightInput) (int64, error)
}
