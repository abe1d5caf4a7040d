// internal/service/billing/infrastructure/adapter/fallback.go
package adapter

import (
	"context"
	"fmt"

	"stockbridge/internal/pkg/config"
	"stockbridge/internal/service/billing/domain"
)

// StaticFallback 是某一侧的兜底响应器：远端不可达时用注入的固定样本数据
// 回答读请求，返回的视图一律带 Degraded 标记。
//
// 样本数据是不可变配置，不是进程内库存：同一个请求问两遍答案也相同，
// 绝不会被写操作改动。写操作在这里永远失败——兜底绝不假装扣减成功。
type StaticFallback struct {
	side  string
	items []domain.ItemView
}

func NewStaticFallback(side string, seeds []config.SeedItem) *StaticFallback {
	items := make([]domain.ItemView, 0, len(seeds))
	for _, s := range seeds {
		items = append(items, domain.ItemView{
			ID:          s.ID,
			Name:        s.Name,
			Category:    s.Category,
			Price:       s.Price,
			Quantity:    s.Quantity,
			Description: s.Description,
			SKU:         s.SKU,
			Active:      s.Active,
			Degraded:    true,
		})
	}
	return &StaticFallback{side: side, items: items}
}

func (f *StaticFallback) Side() string { return f.side }

func (f *StaticFallback) GetItem(_ context.Context, id int64) (*domain.ItemView, error) {
	for _, item := range f.items {
		if item.ID == id {
			view := item
			return &view, nil
		}
	}
	return nil, fmt.Errorf("fallback %s: item %d: %w", f.side, id, domain.ErrItemNotFound)
}

func (f *StaticFallback) ListItems(_ context.Context) (domain.ItemListing, error) {
	items := make([]domain.ItemView, len(f.items))
	copy(items, f.items)
	return domain.ItemListing{Items: items, Degraded: true}, nil
}

func (f *StaticFallback) DebitStock(_ context.Context, id int64, _ int) error {
	return fmt.Errorf("%s side unavailable, cannot debit item %d: %w", f.side, id, domain.ErrStockUpdateFailed)
}

func (f *StaticFallback) CreditStock(_ context.Context, id int64, _ int) error {
	return fmt.Errorf("%s side unavailable, cannot credit item %d: %w", f.side, id, domain.ErrStockUpdateFailed)
}

func (f *StaticFallback) SetStock(_ context.Context, id int64, _ int) error {
	return fmt.Errorf("%s side unavailable, cannot set stock of item %d: %w", f.side, id, domain.ErrStockUpdateFailed)
}
