// internal/service/billing/application/saga/availability.go
package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockbridge/internal/service/billing/domain"
)

// AvailabilityHandler 负责步骤 3：本地可用性检查。
// 这只是快速失败的预检；真正的余量裁决发生在目标侧的原子扣减上。
type AvailabilityHandler struct {
	NextHandler
}

func (h *AvailabilityHandler) Handle(saleCtx *SaleContext) error {
	_, span := saleCtx.Tracer.Start(saleCtx.Ctx, "saga.AvailabilityCheck")
	defer span.End()

	invStock := saleCtx.InventoryView.Quantity
	catStock := saleCtx.CatalogView.Quantity

	span.SetAttributes(
		attribute.Int("inventory.stock", invStock),
		attribute.Int("catalog.stock", catStock),
		attribute.Int("sale.quantity", saleCtx.Quantity),
	)

	if invStock <= 0 || catStock <= 0 {
		span.SetStatus(codes.Error, "out of stock")
		return fmt.Errorf("inventory=%d catalog=%d: %w", invStock, catStock, domain.ErrOutOfStock)
	}

	if invStock < saleCtx.Quantity || catStock < saleCtx.Quantity {
		span.SetStatus(codes.Error, "insufficient stock")
		return fmt.Errorf("required=%d available=%d: %w", saleCtx.Quantity, invStock, domain.ErrInsufficientStock)
	}

	return h.executeNext(saleCtx)
}
