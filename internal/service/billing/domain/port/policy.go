// internal/service/billing/domain/port/policy.go
package port

import (
	"context"

	"stockbridge/internal/service/billing/domain"
)

// SalePolicy 决定一次销售在读取完两侧视图后是否允许继续。
// 当前唯一的策略维度是：降级读取（兜底数据）能否参与销售。
type SalePolicy interface {
	Allow(ctx context.Context, inventory, catalog *domain.ItemView, quantity int) (bool, error)
}

// RequestGuard 是销售请求的幂等闸门。
type RequestGuard interface {
	// Claim 占用一个请求 id，返回 false 表示重复请求。
	Claim(ctx context.Context, requestID string) (bool, error)
	// Release 在请求未产生任何副作用即被拒绝时归还请求 id。
	Release(ctx context.Context, requestID string) error
}
