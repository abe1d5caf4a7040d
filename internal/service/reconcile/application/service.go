// internal/service/reconcile/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/pkg/metrics"
	"stockbridge/internal/pkg/zklock"
	billing "stockbridge/internal/service/billing/domain"
	"stockbridge/internal/service/billing/domain/port"
	"stockbridge/internal/service/reconcile/domain"
)

// ReconcileApplicationService 负责漂移检测与库存同步。
// 同步方向固定为 库存侧 -> 目录侧：库存侧是销售扣减的第一落点，视为权威。
type ReconcileApplicationService struct {
	inventory port.StockService
	catalog   port.StockService
	locker    zklock.Locker
	tracer    trace.Tracer
}

func NewReconcileApplicationService(inventory, catalog port.StockService, locker zklock.Locker, tracer trace.Tracer) *ReconcileApplicationService {
	return &ReconcileApplicationService{inventory: inventory, catalog: catalog, locker: locker, tracer: tracer}
}

// ComputeDrift 并发读取两侧全量列表并生成漂移报告。纯观察，不做任何写入。
func (s *ReconcileApplicationService) ComputeDrift(ctx context.Context) (*domain.DriftReport, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.ComputeDrift")
	defer span.End()

	var invListing, catListing billing.ItemListing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invListing, err = s.inventory.ListItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		catListing, err = s.catalog.ListItems(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list both sides: %w", err)
	}

	report := buildDriftReport(invListing, catListing)
	metrics.DriftDetected.Set(float64(report.Mismatched))

	span.SetAttributes(
		attribute.Int("drift.total_compared", report.TotalCompared),
		attribute.Int("drift.mismatched", report.Mismatched),
		attribute.Int("drift.missing", report.MissingOnOneSide),
	)
	if report.HasDrift() {
		logger.Ctx(ctx).Warn().
			Int("mismatched", report.Mismatched).
			Int("missing", report.MissingOnOneSide).
			Msg("Drift scan found inconsistencies between inventory and catalog.")
	}
	return report, nil
}

// SyncItem 把单个商品的目录侧库存推平到库存侧的值。
// 整个「读两侧 -> 判断 -> 写目录侧」序列持有该商品的分布式锁，
// 避免两个对账实例同时推送互相覆盖。
func (s *ReconcileApplicationService) SyncItem(ctx context.Context, itemID int64) (*domain.SyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.SyncItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	var result *domain.SyncResult
	lockErr := s.locker.WithLock(ctx, fmt.Sprintf("stock-sync-%d", itemID), func() error {
		invView, err := s.inventory.GetItem(ctx, itemID)
		if err != nil {
			return translateSideError("inventory", itemID, err)
		}
		catView, err := s.catalog.GetItem(ctx, itemID)
		if err != nil {
			return translateSideError("catalog", itemID, err)
		}

		// 以兜底样本数据为准推平真实库存是灾难，宁可同步失败
		if invView.Degraded || catView.Degraded {
			return fmt.Errorf("item %d: %w", itemID, domain.ErrDegradedSource)
		}

		if invView.Quantity == catView.Quantity {
			result = &domain.SyncResult{
				Status:               domain.SyncNotNeeded,
				ItemID:               itemID,
				ItemName:             invView.Name,
				PreviousCatalogStock: catView.Quantity,
				NewStock:             catView.Quantity,
			}
			return nil
		}

		if err := s.catalog.SetStock(ctx, itemID, invView.Quantity); err != nil {
			return fmt.Errorf("push stock to catalog: %w", err)
		}
		metrics.SyncPushes.Inc()
		result = &domain.SyncResult{
			Status:               domain.SyncPerformed,
			ItemID:               itemID,
			ItemName:             invView.Name,
			PreviousCatalogStock: catView.Quantity,
			NewStock:             invView.Quantity,
		}
		logger.Ctx(ctx).Info().
			Int64("item_id", itemID).
			Int("previous", catView.Quantity).
			Int("new", invView.Quantity).
			Msg("Catalog stock synced to inventory value.")
		return nil
	})
	if lockErr != nil {
		span.RecordError(lockErr)
		span.SetStatus(codes.Error, "sync failed")
		return nil, lockErr
	}
	return result, nil
}

// buildDriftReport 逐商品比对两侧库存。以库存侧列表为遍历主序，
// 再补上仅存在于目录侧的商品。
func buildDriftReport(inv, cat billing.ItemListing) *domain.DriftReport {
	report := &domain.DriftReport{
		InventoryDegraded: inv.Degraded,
		CatalogDegraded:   cat.Degraded,
		GeneratedAt:       time.Now(),
	}

	seen := make(map[int64]bool, len(inv.Items))
	for _, invItem := range inv.Items {
		seen[invItem.ID] = true
		report.TotalCompared++
		catItem := cat.FindByID(invItem.ID)
		if catItem == nil {
			report.MissingOnOneSide++
			report.Mismatches = append(report.Mismatches, domain.DriftEntry{
				ID:             invItem.ID,
				Name:           invItem.Name,
				InventoryStock: invItem.Quantity,
				CatalogStock:   -1,
			})
			continue
		}
		if invItem.Quantity == catItem.Quantity {
			report.Synced++
			continue
		}
		report.Mismatched++
		report.Mismatches = append(report.Mismatches, domain.DriftEntry{
			ID:             invItem.ID,
			Name:           invItem.Name,
			InventoryStock: invItem.Quantity,
			CatalogStock:   catItem.Quantity,
		})
	}
	for _, catItem := range cat.Items {
		if seen[catItem.ID] {
			continue
		}
		report.TotalCompared++
		report.MissingOnOneSide++
		report.Mismatches = append(report.Mismatches, domain.DriftEntry{
			ID:             catItem.ID,
			Name:           catItem.Name,
			InventoryStock: -1,
			CatalogStock:   catItem.Quantity,
		})
	}
	return report
}

func translateSideError(side string, itemID int64, err error) error {
	if errors.Is(err, billing.ErrItemNotFound) {
		return fmt.Errorf("item %d missing on %s side: %w", itemID, side, domain.ErrItemNotComparable)
	}
	return fmt.Errorf("read %s side: %w", side, err)
}
