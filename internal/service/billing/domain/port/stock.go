// internal/service/billing/domain/port/stock.go
package port

import (
	"context"

	"stockbridge/internal/service/billing/domain"
)

// StockService 是一侧库存服务的出站端口。
// 两个实例分别对接库存侧与目录侧；实现负责把传输层故障转化为降级读取，
// 写操作绝不允许被兜底「假装成功」。
type StockService interface {
	// GetItem 读取单个商品视图。商品不存在时返回 domain.ErrItemNotFound。
	GetItem(ctx context.Context, id int64) (*domain.ItemView, error)

	// ListItems 读取全量商品列表。
	ListItems(ctx context.Context) (domain.ItemListing, error)

	// DebitStock 在目标侧原子地检查并扣减库存。
	// 目标侧余量不足时返回 domain.ErrInsufficientStock，
	// 远端不可达或拒绝时返回 domain.ErrStockUpdateFailed。
	DebitStock(ctx context.Context, id int64, quantity int) error

	// CreditStock 增加库存（取消销售的补偿路径）。
	CreditStock(ctx context.Context, id int64, quantity int) error

	// SetStock 绝对设置库存值（对账推送用）。
	SetStock(ctx context.Context, id int64, quantity int) error

	// Side 返回该实例对应的侧别名，用于日志和指标。
	Side() string
}
