// internal/pkg/redis/client.go
package redis

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis，屏蔽单机/集群的差异。
type Client struct {
	rdb goredis.UniversalClient
}

// NewClient 创建客户端。addrs 为逗号分隔的地址列表，多地址时走集群模式。
func NewClient(addrs string) (*Client, error) {
	addrList := strings.Split(addrs, ",")
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs: addrList,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Client{rdb: rdb}, nil
}

// SetIdempotency 以 SetNX 方式占用一个幂等键。
// 返回 false 表示该键已被占用（重复请求）。
func (c *Client) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, 1, ttl).Result()
}

// ReleaseIdempotency 主动释放幂等键，用于请求在任何副作用发生前被拒绝的场景。
func (c *Client) ReleaseIdempotency(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// GetClient 暴露底层客户端，供需要 pipeline 等高级用法的调用方使用。
func (c *Client) GetClient() goredis.UniversalClient {
	return c.rdb
}

// Close 关闭连接。
func (c *Client) Close() error {
	return c.rdb.Close()
}
