// internal/service/billing/application/saga/inventory_debit.go
package saga

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/service/billing/domain"
)

// InventoryDebitHandler 负责步骤 5：扣减库存侧。
// 扣减本身是目标侧的原子 check-and-set，余量在目标侧重新验证——
// 本地的可用性预检挡不住并发销售之间的 lost update。
type InventoryDebitHandler struct {
	NextHandler
}

func (h *InventoryDebitHandler) Handle(saleCtx *SaleContext) error {
	ctx, span := saleCtx.Tracer.Start(saleCtx.Ctx, "saga.DecrementInventorySide")
	defer span.End()

	if err := saleCtx.Inventory.DebitStock(ctx, saleCtx.ItemID, saleCtx.Quantity); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inventory debit failed")
		// 目标侧在扣减时发现余量不足，保留这个更精确的拒绝原因
		if errors.Is(err, domain.ErrInsufficientStock) {
			return err
		}
		return fmt.Errorf("%v: %w", err, domain.ErrStockUpdateFailed)
	}

	span.AddEvent("Inventory-side stock debited.")

	// 补偿仅服务于后续记账失败的场景。目录侧扣减失败不触发补偿（见 CatalogDebitHandler）。
	saleCtx.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := saleCtx.Tracer.Start(compCtx, "saga.compensation.CreditInventory")
		defer compSpan.End()
		if err := saleCtx.Inventory.CreditStock(compCtx, saleCtx.ItemID, saleCtx.Quantity); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).
				Int64("item_id", saleCtx.ItemID).
				Msg("CRITICAL: failed to credit inventory stock back during compensation")
		}
	})

	return h.executeNext(saleCtx)
}
