// internal/service/billing/application/saga/catalog_debit.go
package saga

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/service/billing/domain"
)

// CatalogDebitHandler 负责步骤 6：扣减目录侧。
//
// 这里是协议已知的薄弱点：库存侧已经扣减成功，如果目录侧失败，
// 两侧就产生了漂移。我们【不】回滚库存侧——两个服务分属不同团队，
// 回滚同样可能失败，只会把一种故障变成两种。此处上报漂移事件并以
// ErrPartialStockUpdate 终止，缺口由对账服务事后收口。
// 这是刻意的最终一致性取舍，不是待修的缺陷。
type CatalogDebitHandler struct {
	NextHandler
}

func (h *CatalogDebitHandler) Handle(saleCtx *SaleContext) error {
	ctx, span := saleCtx.Tracer.Start(saleCtx.Ctx, "saga.DecrementCatalogSide")
	defer span.End()

	if err := saleCtx.Catalog.DebitStock(ctx, saleCtx.ItemID, saleCtx.Quantity); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog debit failed after inventory debit")

		logger.Ctx(ctx).Warn().Err(err).
			Int64("item_id", saleCtx.ItemID).
			Int("quantity", saleCtx.Quantity).
			Msg("Catalog-side debit failed; inventory already debited. Drift left for reconciliation.")

		if saleCtx.DriftEvents != nil {
			if pubErr := saleCtx.DriftEvents.PartialStockUpdate(ctx, saleCtx.ItemID, saleCtx.InventoryView.Name, saleCtx.Quantity); pubErr != nil {
				span.RecordError(pubErr)
				logger.Ctx(ctx).Error().Err(pubErr).Msg("Failed to publish partial-stock-update event.")
			}
		}

		return fmt.Errorf("%v: %w", err, domain.ErrPartialStockUpdate)
	}

	span.AddEvent("Catalog-side stock debited.")

	saleCtx.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := saleCtx.Tracer.Start(compCtx, "saga.compensation.CreditCatalog")
		defer compSpan.End()
		if err := saleCtx.Catalog.CreditStock(compCtx, saleCtx.ItemID, saleCtx.Quantity); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).
				Int64("item_id", saleCtx.ItemID).
				Msg("CRITICAL: failed to credit catalog stock back during compensation")
		}
	})

	return h.executeNext(saleCtx)
}
