// internal/service/order/infrastructure/adapter/promotion_http_adapter.go
package adapter

import (
	"context"
	"net/url"
	"strconv"

	"mall/internal/pkg/constants"
	"mall/internal/pkg/httpclient"
)

// PromotionHTTPAdapter 实现 port.PromotionService。
type PromotionHTTPAdapter struct {
	client *httpclient.Client
}

func NewPromotionHTTPAdapter(client *httpclient.Client) *PromotionHTTPAdapter {
	return &PromotionHTTPAdapter{client: client}
}

func (a *PromotionHTTPAdapter) Quote(ctx context.Context, discountID, shopperID string, subtotal int64) (int64, error) {
	params := url.Values{}
	params.Set("discountId", discountID)
	params.Set("shopperId", shopperID)
	params.Set("subtotal", strconv.FormatInt(subtotal, 10))

	var reply struct {
		Amount int64 `json:"amount"`
	}
	if err := a.client.GetJSON(ctx, constants.PromotionService, constants.PromotionQuotePath, params, &reply); err != nil {
		return 0, err
	}
	return reply.Amount, nil
}

func (a *PromotionHTTPAdapter) Consume(ctx context.Context, discountID, shopperID string) (bool, error) {
	return a.postOutcome(ctx, constants.PromotionConsumePath, discountID, shopperID)
}

func (a *PromotionHTTPAdapter) Release(ctx context.Context, discountID, shopperID string) (bool, error) {
	return a.postOutcome(ctx, constants.PromotionReleasePath, discountID, shopperID)
}

func (a *PromotionHTTPAdapter) postOutcome(ctx context.Context, path, discountID, shopperID string) (bool, error) {
	req := map[string]string{
		"discountId": discountID,
		"shopperId":  shopperID,
	}
	var reply struct {
		Success bool `json:"success"`
	}
	if err := a.client.PostJSON(ctx, constants.PromotionService, path, req, &reply); err != nil {
		return false, err
	}
	return reply.Success, nil
}
