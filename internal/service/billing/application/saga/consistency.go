// internal/service/billing/application/saga/consistency.go
package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockbridge/internal/service/billing/domain"
)

// ConsistencyHandler 负责步骤 2：比对两侧视图。
// 任何不一致（包括库存数漂移）都阻断销售——卖出一个两边账对不上的商品，
// 只会把漂移放大成真实损失。
type ConsistencyHandler struct {
	NextHandler
}

func (h *ConsistencyHandler) Handle(saleCtx *SaleContext) error {
	_, span := saleCtx.Tracer.Start(saleCtx.Ctx, "saga.ConsistencyCheck")
	defer span.End()

	verdict := domain.CompareViews(saleCtx.InventoryView, saleCtx.CatalogView)
	span.SetAttributes(attribute.String("consistency.verdict", verdict.Kind.String()))

	if !verdict.Identical() {
		span.SetStatus(codes.Error, "item views inconsistent")
		if verdict.Kind == domain.VerdictStockMismatch {
			return fmt.Errorf("stock mismatch inventory=%d catalog=%d: %w",
				verdict.InventoryStock, verdict.CatalogStock, domain.ErrInconsistentItem)
		}
		return fmt.Errorf("%s: %w", verdict.Kind, domain.ErrInconsistentItem)
	}

	span.AddEvent("Item views are synchronized between services.")
	return h.executeNext(saleCtx)
}
