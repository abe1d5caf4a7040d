// internal/service/billing/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/pkg/metrics"
	"stockbridge/internal/service/billing/application/saga"
	"stockbridge/internal/service/billing/domain"
	"stockbridge/internal/service/billing/domain/port"
)

// BillingApplicationService 编排销售完成协议：
// 校验、一致性检查、计价、双侧扣减、落账，以及取消销售的补偿路径。
type BillingApplicationService struct {
	ledger            domain.SaleLedger
	inventory         port.StockService
	catalog           port.StockService
	policy            port.SalePolicy
	guard             port.RequestGuard
	saleEvents        port.SaleEventProducer
	driftEvents       port.DriftEventProducer
	tracer            trace.Tracer
	processingTimeout time.Duration
}

func NewBillingApplicationService(
	ledger domain.SaleLedger,
	inventory, catalog port.StockService,
	policy port.SalePolicy,
	guard port.RequestGuard,
	saleEvents port.SaleEventProducer,
	driftEvents port.DriftEventProducer,
	tracer trace.Tracer,
	processingTimeout time.Duration,
) *BillingApplicationService {
	return &BillingApplicationService{
		ledger: ledger, inventory: inventory, catalog: catalog,
		policy: policy, guard: guard,
		saleEvents: saleEvents, driftEvents: driftEvents,
		tracer: tracer, processingTimeout: processingTimeout,
	}
}

// CompleteSale 执行一次完整的销售尝试，返回已落账的销售记录或有类型的拒绝错误。
//
// 销售之间没有任何进程内互斥：两次并发销售可以同时通过可用性预检，
// 余量的最终裁决在两个远端各自的原子扣减上。一旦库存侧扣减已发出，
// 流程必须跑到终态，不允许中途放弃。
func (s *BillingApplicationService) CompleteSale(ctx context.Context, req *CompleteSaleRequest) (*domain.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "app.CompleteSale")
	defer span.End()

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", req.Quantity)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	span.SetAttributes(
		attribute.String("sale.request_id", req.RequestID),
		attribute.Int64("item.id", req.ItemID),
		attribute.Int("sale.quantity", req.Quantity),
	)

	// 幂等闸门：同一请求 id 不允许触发两次扣减
	claimed, err := s.guard.Claim(ctx, req.RequestID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !claimed {
		metrics.SalesRejected.WithLabelValues(domain.RejectionReason(domain.ErrDuplicateRequest)).Inc()
		return nil, domain.ErrDuplicateRequest
	}

	// 整个流程的超时上限；一旦进入扣减阶段由各远端调用自己的超时兜底
	processingCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	saleCtx := &saga.SaleContext{
		Ctx:         processingCtx,
		Tracer:      s.tracer,
		RequestID:   req.RequestID,
		ItemID:      req.ItemID,
		Quantity:    req.Quantity,
		Inventory:   s.inventory,
		Catalog:     s.catalog,
		Policy:      s.policy,
		DriftEvents: s.driftEvents,
		Ledger:      s.ledger,
	}

	logger.Ctx(ctx).Info().
		Str("request_id", req.RequestID).
		Int64("item_id", req.ItemID).
		Int("quantity", req.Quantity).
		Msg("Starting bill generation.")

	if err := s.buildChain().Handle(saleCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sale attempt rejected")
		reason := domain.RejectionReason(err)
		metrics.SalesRejected.WithLabelValues(reason).Inc()
		logger.Ctx(ctx).Warn().Err(err).
			Str("request_id", req.RequestID).
			Str("reason", reason).
			Msg("Sale attempt rejected.")

		// partial update 已经产生副作用，请求 id 必须保持占用；
		// 其余拒绝都发生在任何变更之前，归还 id 允许重试。
		if !errors.Is(err, domain.ErrPartialStockUpdate) {
			if relErr := s.guard.Release(ctx, req.RequestID); relErr != nil {
				logger.Ctx(ctx).Warn().Err(relErr).Msg("Failed to release idempotency key.")
			}
		}
		return nil, err
	}

	metrics.SalesCompleted.Inc()
	span.AddEvent("Sale completed and recorded.")

	// 事件发送失败不影响销售结果，只记录
	if err := s.saleEvents.SaleCompleted(ctx, saleCtx.Sale); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("sale_id", saleCtx.Sale.ID).Msg("Failed to publish sale-completed event.")
	}

	logger.Ctx(ctx).Info().
		Int64("sale_id", saleCtx.Sale.ID).
		Float64("total", saleCtx.Sale.TotalAmount).
		Msg("Bill generated successfully.")
	return saleCtx.Sale, nil
}

// buildChain 组装销售责任链。依赖注入和链的构建在此分离，便于测试单独执行某段。
func (s *BillingApplicationService) buildChain() saga.Handler {
	chain := new(saga.FetchViewsHandler)
	chain.
		SetNext(new(saga.PolicyHandler)).
		SetNext(new(saga.ConsistencyHandler)).
		SetNext(new(saga.AvailabilityHandler)).
		SetNext(new(saga.PricingHandler)).
		SetNext(new(saga.InventoryDebitHandler)).
		SetNext(new(saga.CatalogDebitHandler)).
		SetNext(new(saga.RecordSaleHandler))
	return chain
}

// CancelSale 是销售的补偿路径：恢复库存侧库存后删除账目。
//
// 账目上对商品仅存的耐久引用是名称，因此要先在当前库存列表里按名称
// 找回商品 id。找不到就保守地失败——绝不在无法确认补偿目标的情况下删账。
func (s *BillingApplicationService) CancelSale(ctx context.Context, saleID int64) error {
	ctx, span := s.tracer.Start(ctx, "app.CancelSale")
	defer span.End()
	span.SetAttributes(attribute.Int64("sale.id", saleID))

	sale, err := s.ledger.Get(ctx, saleID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	listing, err := s.inventory.ListItems(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("list inventory for cancellation: %w", err)
	}

	view := listing.FindByName(sale.ItemName)
	if view == nil {
		span.SetStatus(codes.Error, "compensation target not found")
		logger.Ctx(ctx).Warn().
			Int64("sale_id", saleID).
			Str("item_name", sale.ItemName).
			Msg("Cannot cancel sale: item name no longer resolves in inventory.")
		return fmt.Errorf("item %q: %w", sale.ItemName, domain.ErrCompensationTargetLost)
	}

	// 先还库存，后删账。顺序不能反：删了账再还库存失败，就彻底丢了补偿依据。
	if err := s.inventory.CreditStock(ctx, view.ID, sale.QuantitySold); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock restoration failed")
		return fmt.Errorf("restore stock for sale %d: %w", saleID, err)
	}
	span.AddEvent("Inventory-side stock restored.")

	if err := s.ledger.Delete(ctx, saleID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete sale %d after stock restoration: %w", saleID, err)
	}

	metrics.SalesCancelled.Inc()
	if err := s.saleEvents.SaleCancelled(ctx, sale); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("sale_id", saleID).Msg("Failed to publish sale-cancelled event.")
	}

	logger.Ctx(ctx).Info().
		Int64("sale_id", saleID).
		Str("item", sale.ItemName).
		Int("restored", sale.QuantitySold).
		Msg("Sale cancelled and stock restored.")
	return nil
}

// Sales 返回账本中的全部销售记录。
func (s *BillingApplicationService) Sales(ctx context.Context) ([]domain.Sale, error) {
	return s.ledger.All(ctx)
}

// CategoryReport 按类目汇总销售额。
func (s *BillingApplicationService) CategoryReport(ctx context.Context) (map[string]float64, error) {
	return s.ledger.TotalsByCategory(ctx)
}

// AvailableItems 返回两侧都存在且两侧库存都大于零的商品（可开单列表）。
func (s *BillingApplicationService) AvailableItems(ctx context.Context) ([]domain.ItemView, error) {
	ctx, span := s.tracer.Start(ctx, "app.AvailableItems")
	defer span.End()

	invListing, err := s.inventory.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	catListing, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	var available []domain.ItemView
	for _, inv := range invListing.Items {
		cat := catListing.FindByID(inv.ID)
		if cat == nil {
			logger.Ctx(ctx).Debug().Str("item", inv.Name).Msg("Item exists in inventory but not in catalog.")
			continue
		}
		if inv.Quantity > 0 && cat.Quantity > 0 {
			view := inv
			view.Degraded = invListing.Degraded || catListing.Degraded
			available = append(available, view)
		}
	}
	span.SetAttributes(attribute.Int("available.count", len(available)))
	return available, nil
}

// StockStatus 探查单个商品在库存侧的余量。
func (s *BillingApplicationService) StockStatus(ctx context.Context, itemID int64, required int) (*StockStatus, error) {
	view, err := s.inventory.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &StockStatus{
		ItemID:           view.ID,
		ItemName:         view.Name,
		CurrentStock:     view.Quantity,
		RequiredQuantity: required,
		Available:        !view.Degraded && view.Quantity >= required,
		Degraded:         view.Degraded,
	}, nil
}
