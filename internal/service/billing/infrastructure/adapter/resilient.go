// internal/service/billing/infrastructure/adapter/resilient.go
package adapter

import (
	"context"
	"errors"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/pkg/metrics"
	"stockbridge/internal/service/billing/domain"
	"stockbridge/internal/service/billing/domain/port"
)

// ResilientStockService 把远端适配器和兜底响应器装配成一个端口实现：
// 读请求在远端故障时切换到兜底（结果带 Degraded 标记），
// 写请求永远直通远端，失败就是失败。
//
// 注意 404 不触发兜底：远端明确回答「不存在」是一个权威答案，
// 只有传输层故障和 5xx 才算服务不可用。
type ResilientStockService struct {
	remote   port.StockService
	fallback port.StockService
	side     string
}

var _ port.StockService = (*ResilientStockService)(nil)

func NewResilientStockService(remote, fallback port.StockService) *ResilientStockService {
	return &ResilientStockService{remote: remote, fallback: fallback, side: remote.Side()}
}

func (r *ResilientStockService) Side() string { return r.side }

func (r *ResilientStockService) GetItem(ctx context.Context, id int64) (*domain.ItemView, error) {
	view, err := r.remote.GetItem(ctx, id)
	if err == nil {
		return view, nil
	}
	if !isServiceFailure(err) {
		return nil, err
	}
	metrics.RemoteCallFailures.WithLabelValues(r.side, "get_item").Inc()
	metrics.FallbackEngaged.WithLabelValues(r.side).Inc()
	logger.Ctx(ctx).Warn().Err(err).
		Str("side", r.side).
		Int64("item_id", id).
		Msg("Remote stock read failed, engaging static fallback.")
	return r.fallback.GetItem(ctx, id)
}

func (r *ResilientStockService) ListItems(ctx context.Context) (domain.ItemListing, error) {
	listing, err := r.remote.ListItems(ctx)
	if err == nil {
		return listing, nil
	}
	if !isServiceFailure(err) {
		return domain.ItemListing{}, err
	}
	metrics.RemoteCallFailures.WithLabelValues(r.side, "list_items").Inc()
	metrics.FallbackEngaged.WithLabelValues(r.side).Inc()
	logger.Ctx(ctx).Warn().Err(err).
		Str("side", r.side).
		Msg("Remote stock listing failed, engaging static fallback.")
	return r.fallback.ListItems(ctx)
}

func (r *ResilientStockService) DebitStock(ctx context.Context, id int64, quantity int) error {
	if err := r.remote.DebitStock(ctx, id, quantity); err != nil {
		metrics.RemoteCallFailures.WithLabelValues(r.side, "debit_stock").Inc()
		return err
	}
	return nil
}

func (r *ResilientStockService) CreditStock(ctx context.Context, id int64, quantity int) error {
	if err := r.remote.CreditStock(ctx, id, quantity); err != nil {
		metrics.RemoteCallFailures.WithLabelValues(r.side, "credit_stock").Inc()
		return err
	}
	return nil
}

func (r *ResilientStockService) SetStock(ctx context.Context, id int64, quantity int) error {
	if err := r.remote.SetStock(ctx, id, quantity); err != nil {
		metrics.RemoteCallFailures.WithLabelValues(r.side, "set_stock").Inc()
		return err
	}
	return nil
}

// isServiceFailure 区分「服务不可用」和「服务给出的明确业务答案」。
// 业务答案（不存在、余量不足）必须原样上浮，兜底只接管前者。
func isServiceFailure(err error) bool {
	return !errors.Is(err, domain.ErrItemNotFound) &&
		!errors.Is(err, domain.ErrInsufficientStock)
}
