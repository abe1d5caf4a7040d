// internal/service/billing/application/saga/fetch_views.go
package saga

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockbridge/internal/service/billing/domain"
)

// FetchViewsHandler 负责步骤 1：确认商品在两侧都存在，并取回两份视图。
// 任一侧缺失都在任何变更发生前拒绝整个销售。
type FetchViewsHandler struct {
	NextHandler
}

func (h *FetchViewsHandler) Handle(saleCtx *SaleContext) error {
	ctx, span := saleCtx.Tracer.Start(saleCtx.Ctx, "saga.FetchViews")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("item.id", saleCtx.ItemID),
		attribute.Int("sale.quantity", saleCtx.Quantity),
	)

	invView, err := saleCtx.Inventory.GetItem(ctx, saleCtx.ItemID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrItemNotFound) {
			span.SetStatus(codes.Error, "item missing on inventory side")
			return fmt.Errorf("inventory side: %w", domain.ErrItemNotFound)
		}
		return fmt.Errorf("inventory side read: %w", err)
	}

	catView, err := saleCtx.Catalog.GetItem(ctx, saleCtx.ItemID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrItemNotFound) {
			span.SetStatus(codes.Error, "item missing on catalog side")
			return fmt.Errorf("catalog side: %w", domain.ErrItemNotFound)
		}
		return fmt.Errorf("catalog side read: %w", err)
	}

	saleCtx.InventoryView = invView
	saleCtx.CatalogView = catView

	span.SetAttributes(
		attribute.Bool("inventory.degraded", invView.Degraded),
		attribute.Bool("catalog.degraded", catView.Degraded),
	)
	span.AddEvent("Both side views resolved.")

	return h.executeNext(saleCtx)
}
