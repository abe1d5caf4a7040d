// internal/service/billing/domain/port/events.go
package port

import (
	"context"

	"stockbridge/internal/service/billing/domain"
)

// SaleEventProducer 把销售生命周期事件发往消息总线。
// 事件发送失败只记录，不影响销售本身的结果。
type SaleEventProducer interface {
	SaleCompleted(ctx context.Context, sale *domain.Sale) error
	SaleCancelled(ctx context.Context, sale *domain.Sale) error
}

// DriftEventProducer 上报已知会产生漂移的事实，
// 最典型的是目录侧扣减失败留下的 partial update。
type DriftEventProducer interface {
	PartialStockUpdate(ctx context.Context, itemID int64, itemName string, quantity int) error
}
