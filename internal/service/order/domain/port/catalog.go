// internal/service/order/domain/port/catalog.go
package port

import "context"

// SkuSnapshot 是目录服务返回的权威商品快照。
type SkuSnapshot struct {
	ID     string
	Name   string
	Price  int64   // 分
	Weight float64 // 千克
}

// CatalogService 是商品目录的出站端口。
// GetSkusByIds 必须为每个请求的 id 返回恰好一个快照，否则下单中止。
type CatalogService interface {
	GetSkusByIds(ctx context.Context, skuIDs []string) ([]SkuSnapshot, error)
}
