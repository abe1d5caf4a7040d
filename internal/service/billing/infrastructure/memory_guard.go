// internal/service/billing/infrastructure/memory_guard.go
package infrastructure

import (
	"context"
	"sync"

	"stockbridge/internal/service/billing/domain/port"
)

// MemoryRequestGuard 是进程内幂等闸门，单实例部署和测试用。
// 多实例部署必须换 RedisRequestGuard，否则闸门只在本进程内生效。
type MemoryRequestGuard struct {
	mu      sync.Mutex
	claimed map[string]bool
}

var _ port.RequestGuard = (*MemoryRequestGuard)(nil)

func NewMemoryRequestGuard() *MemoryRequestGuard {
	return &MemoryRequestGuard{claimed: make(map[string]bool)}
}

func (g *MemoryRequestGuard) Claim(_ context.Context, requestID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed[requestID] {
		return false, nil
	}
	g.claimed[requestID] = true
	return true, nil
}

func (g *MemoryRequestGuard) Release(_ context.Context, requestID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, requestID)
	return nil
}
