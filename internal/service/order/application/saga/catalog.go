package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// CatalogHandler 负责拉取商品权威快照并核对提交价。
// 页面价与目录价不一致时整单中止，买家需要刷新后重新下单。
type CatalogHandler struct {
	NextHandler
}

func (h *CatalogHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Catalog")
	defer span.End()

	skuIDs := make([]string, 0, len(orderCtx.Command.Lines))
	for _, line := range orderCtx.Command.Lines {
		skuIDs = append(skuIDs, line.SkuID)
	}
	span.SetAttributes(attribute.StringSlice("sku_ids", skuIDs))

	snapshots, err := orderCtx.Catalog.GetSkusByIds(ctx, skuIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog lookup failed")
		return fmt.Errorf("get sku snapshots: %w", err)
	}

	bySku := make(map[string]port.SkuSnapshot, len(snapshots))
	for _, s := range snapshots {
		bySku[s.ID] = s
	}
	orderCtx.Snapshots = bySku

	items := make([]domain.OrderItem, 0, len(orderCtx.Command.Lines))
	for _, line := range orderCtx.Command.Lines {
		snapshot, ok := bySku[line.SkuID]
		if !ok {
			span.SetStatus(codes.Error, "sku missing from catalog")
			return fmt.Errorf("sku %s: %w", line.SkuID, domain.ErrNotFound)
		}
		if snapshot.Price != line.SubmittedPrice {
			span.SetStatus(codes.Error, "submitted price is stale")
			span.SetAttributes(
				attribute.String("stale_sku", line.SkuID),
				attribute.Int64("submitted_price", line.SubmittedPrice),
				attribute.Int64("catalog_price", snapshot.Price),
			)
			return fmt.Errorf("sku %s submitted=%d catalog=%d: %w",
				line.SkuID, line.SubmittedPrice, snapshot.Price, domain.ErrPriceChanged)
		}
		items = append(items, domain.OrderItem{
			SkuID:   snapshot.ID,
			SkuName: snapshot.Name,
			Price:   snapshot.Price,
			Qty:     line.Qty,
			Total:   snapshot.Price * int64(line.Qty),
			Weight:  snapshot.Weight * float64(line.Qty),
		})
	}
	orderCtx.Order.Items = items

	span.AddEvent("sku snapshots verified against submitted prices")

	return h.executeNext(orderCtx)
}
