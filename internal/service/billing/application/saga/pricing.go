// internal/service/billing/application/saga/pricing.go
package saga

import (
	"go.opentelemetry.io/otel/attribute"

	"stockbridge/internal/pkg/logger"
)

// PricingHandler 负责步骤 4：锁定决策时刻的单价。
// 单价取目录侧（价格的权威来源），总额 = 单价 × 数量，此后永不重算。
type PricingHandler struct {
	NextHandler
}

func (h *PricingHandler) Handle(saleCtx *SaleContext) error {
	ctx, span := saleCtx.Tracer.Start(saleCtx.Ctx, "saga.Pricing")
	defer span.End()

	saleCtx.UnitPrice = saleCtx.CatalogView.Price
	total := saleCtx.UnitPrice * float64(saleCtx.Quantity)

	span.SetAttributes(
		attribute.Float64("sale.unit_price", saleCtx.UnitPrice),
		attribute.Float64("sale.total_amount", total),
	)

	logger.Ctx(ctx).Info().
		Str("request_id", saleCtx.RequestID).
		Int("quantity", saleCtx.Quantity).
		Float64("unit_price", saleCtx.UnitPrice).
		Float64("total", total).
		Msg("Bill calculated.")

	return h.executeNext(saleCtx)
}
