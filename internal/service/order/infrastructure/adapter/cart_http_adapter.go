// internal/service/order/infrastructure/adapter/cart_http_adapter.go
package adapter

import (
	"context"

	"mall/internal/pkg/constants"
	"mall/internal/pkg/httpclient"
)

// CartHTTPAdapter 实现 port.CartService。
type CartHTTPAdapter struct {
	client *httpclient.Client
}

func NewCartHTTPAdapter(client *httpclient.Client) *CartHTTPAdapter {
	return &CartHTTPAdapter{client: client}
}

func (a *CartHTTPAdapter) Clear(ctx context.Context, cartLineIDs []string, shopperID string) (bool, error) {
	req := map[string]interface{}{
		"cartLineIds": cartLineIDs,
		"shopperId":   shopperID,
	}
	var reply struct {
		Success bool `json:"success"`
	}
	if err := a.client.PostJSON(ctx, constants.CartService, constants.CartClearPath, req, &reply); err != nil {
		return false, err
	}
	return reply.Success, nil
}
