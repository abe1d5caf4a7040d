// internal/service/billing/application/saga/policy.go
package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockbridge/internal/service/billing/domain"
)

// PolicyHandler 在任何变更发生前咨询销售策略。
// 典型否决场景：任一侧视图是兜底数据（degraded），按默认策略拒绝销售。
type PolicyHandler struct {
	NextHandler
}

func (h *PolicyHandler) Handle(saleCtx *SaleContext) error {
	ctx, span := saleCtx.Tracer.Start(saleCtx.Ctx, "saga.PolicyCheck")
	defer span.End()

	allowed, err := saleCtx.Policy.Allow(ctx, saleCtx.InventoryView, saleCtx.CatalogView, saleCtx.Quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "policy evaluation failed")
		return fmt.Errorf("sale policy evaluation: %w", err)
	}

	span.SetAttributes(attribute.Bool("policy.allowed", allowed))

	if !allowed {
		span.SetStatus(codes.Error, "sale refused by policy")
		return fmt.Errorf("inventory degraded=%t catalog degraded=%t: %w",
			saleCtx.InventoryView.Degraded, saleCtx.CatalogView.Degraded, domain.ErrServiceDegraded)
	}

	return h.executeNext(saleCtx)
}
