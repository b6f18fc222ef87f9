// internal/service/order/infrastructure/adapter/stock_http_adapter.go
package adapter

import (
	"context"
	"net/url"

	"mall/internal/pkg/constants"
	"mall/internal/pkg/httpclient"
	"mall/internal/service/order/domain/port"
)

// StockHTTPAdapter 实现 port.ReservationService，通过注册中心调用库存服务。
type StockHTTPAdapter struct {
	client *httpclient.Client
}

func NewStockHTTPAdapter(client *httpclient.Client) *StockHTTPAdapter {
	return &StockHTTPAdapter{client: client}
}

type lockLinePayload struct {
	SkuID         string `json:"skuId"`
	Qty           int    `json:"qty"`
	WarehouseHint string `json:"warehouseHint,omitempty"`
}

type lockRequestPayload struct {
	OrderRef string            `json:"orderRef"`
	Lines    []lockLinePayload `json:"lines"`
}

type lockLineReply struct {
	SkuID       string `json:"skuId"`
	Qty         int    `json:"qty"`
	WarehouseID string `json:"warehouseId"`
	Success     bool   `json:"success"`
	Reason      string `json:"reason"`
}

type lockReply struct {
	Success       bool            `json:"success"`
	WorkOrderID   string          `json:"workOrderId"`
	FailureReason string          `json:"failureReason"`
	Lines         []lockLineReply `json:"lines"`
}

func (a *StockHTTPAdapter) LockStock(ctx context.Context, orderRef string, lines []port.LockLine) (*port.LockStockResult, error) {
	req := lockRequestPayload{OrderRef: orderRef}
	for _, line := range lines {
		req.Lines = append(req.Lines, lockLinePayload{
			SkuID:         line.SkuID,
			Qty:           line.Qty,
			WarehouseHint: line.WarehouseHint,
		})
	}

	var reply lockReply
	if err := a.client.PostJSON(ctx, constants.StockService, constants.StockLockPath, &req, &reply); err != nil {
		return nil, err
	}

	result := &port.LockStockResult{
		Success:       reply.Success,
		WorkOrderID:   reply.WorkOrderID,
		FailureReason: reply.FailureReason,
	}
	for _, lr := range reply.Lines {
		result.Lines = append(result.Lines, port.LockLineResult{
			SkuID:       lr.SkuID,
			Qty:         lr.Qty,
			WarehouseID: lr.WarehouseID,
			Success:     lr.Success,
			Reason:      lr.Reason,
		})
	}
	return result, nil
}

func (a *StockHTTPAdapter) UnlockStock(ctx context.Context, orderRef string) error {
	params := url.Values{}
	params.Set("orderRef", orderRef)
	return a.client.CallService(ctx, constants.StockService, constants.StockUnlockPath, params)
}

func (a *StockHTTPAdapter) DeductStock(ctx context.Context, orderRef string) error {
	params := url.Values{}
	params.Set("orderRef", orderRef)
	return a.client.CallService(ctx, constants.StockService, constants.StockDeductPath, params)
}

func (a *StockHTTPAdapter) HasStock(ctx context.Context, skuIDs []string) (map[string]bool, error) {
	params := url.Values{}
	params.Set("skuIds", joinIDs(skuIDs))
	var reply map[string]bool
	if err := a.client.GetJSON(ctx, constants.StockService, constants.StockHasStockPath, params, &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}
