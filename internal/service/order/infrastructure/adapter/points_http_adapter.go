// internal/service/order/infrastructure/adapter/points_http_adapter.go
package adapter

import (
	"context"

	"mall/internal/pkg/constants"
	"mall/internal/pkg/httpclient"
)

// PointsHTTPAdapter 实现 port.PointsService。
type PointsHTTPAdapter struct {
	client *httpclient.Client
}

func NewPointsHTTPAdapter(client *httpclient.Client) *PointsHTTPAdapter {
	return &PointsHTTPAdapter{client: client}
}

func (a *PointsHTTPAdapter) Deduct(ctx context.Context, shopperID string, amount int64) (bool, error) {
	return a.postOutcome(ctx, constants.PointsDeductPath, shopperID, amount)
}

func (a *PointsHTTPAdapter) Refund(ctx context.Context, shopperID string, amount int64) (bool, error) {
	return a.postOutcome(ctx, constants.PointsRefundPath, shopperID, amount)
}

func (a *PointsHTTPAdapter) Credit(ctx context.Context, shopperID string, amount int64) (bool, error) {
	return a.postOutcome(ctx, constants.PointsCreditPath, shopperID, amount)
}

func (a *PointsHTTPAdapter) postOutcome(ctx context.Context, path, shopperID string, amount int64) (bool, error) {
	req := map[string]interface{}{
		"shopperId": shopperID,
		"amount":    amount,
	}
	var reply struct {
		Success bool `json:"success"`
	}
	if err := a.client.PostJSON(ctx, constants.PointsService, path, req, &reply); err != nil {
		return false, err
	}
	return reply.Success, nil
}
