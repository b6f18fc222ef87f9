// internal/service/order/infrastructure/adapter/catalog_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"mall/internal/pkg/constants"
	"mall/internal/pkg/httpclient"
	"mall/internal/service/order/domain/port"
)

// CatalogHTTPAdapter 实现 port.CatalogService。
// 返回数量与请求不一致视为错误，下单流程要求每个 SKU 恰好一个快照。
type CatalogHTTPAdapter struct {
	client *httpclient.Client
}

func NewCatalogHTTPAdapter(client *httpclient.Client) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client}
}

func (a *CatalogHTTPAdapter) GetSkusByIds(ctx context.Context, skuIDs []string) ([]port.SkuSnapshot, error) {
	params := url.Values{}
	params.Set("skuIds", strings.Join(skuIDs, ","))

	var reply []struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Price  int64   `json:"price"`
		Weight float64 `json:"weight"`
	}
	if err := a.client.GetJSON(ctx, constants.CatalogService, constants.CatalogSkusPath, params, &reply); err != nil {
		return nil, err
	}
	if len(reply) != len(skuIDs) {
		return nil, fmt.Errorf("catalog returned %d snapshots for %d skus", len(reply), len(skuIDs))
	}

	snapshots := make([]port.SkuSnapshot, 0, len(reply))
	for _, s := range reply {
		snapshots = append(snapshots, port.SkuSnapshot{
			ID:     s.ID,
			Name:   s.Name,
			Price:  s.Price,
			Weight: s.Weight,
		})
	}
	return snapshots, nil
}
