// internal/service/billing/application/saga/record_sale.go
package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/service/billing/domain"
)

// RecordSaleHandler 负责步骤 7：生成销售记录并落账。
// 两侧都已扣减成功才会走到这里；如果落账失败，触发补偿把两侧库存加回，
// 避免「扣了库存却没有账」的孤儿扣减。
type RecordSaleHandler struct {
	NextHandler
}

func (h *RecordSaleHandler) Handle(saleCtx *SaleContext) error {
	ctx, span := saleCtx.Tracer.Start(saleCtx.Ctx, "saga.RecordSale")
	defer span.End()

	sale, err := domain.NewSale(saleCtx.RequestID, saleCtx.InventoryView, saleCtx.UnitPrice, saleCtx.Quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build sale record")
		saleCtx.TriggerCompensation(ctx)
		return fmt.Errorf("build sale record: %w", err)
	}

	id, err := saleCtx.Ledger.Append(ctx, sale)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to append sale to ledger")
		saleCtx.TriggerCompensation(ctx)
		return fmt.Errorf("append sale to ledger: %w", err)
	}
	sale.ID = id
	saleCtx.Sale = sale

	span.SetAttributes(
		attribute.Int64("sale.id", id),
		attribute.Float64("sale.total_amount", sale.TotalAmount),
	)
	logger.Ctx(ctx).Info().
		Int64("sale_id", id).
		Str("item", sale.ItemName).
		Float64("total", sale.TotalAmount).
		Msg("Sale recorded.")

	return h.executeNext(saleCtx)
}
