// internal/service/billing/infrastructure/memory_ledger.go
package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"stockbridge/internal/service/billing/domain"
)

// MemorySaleLedger 是进程内账本，供本地运行和测试使用。
// 并发安全由互斥锁保证，id 单调递增。
type MemorySaleLedger struct {
	mu     sync.Mutex
	nextID int64
	sales  map[int64]domain.Sale
}

var _ domain.SaleLedger = (*MemorySaleLedger)(nil)

func NewMemorySaleLedger() *MemorySaleLedger {
	return &MemorySaleLedger{nextID: 1, sales: make(map[int64]domain.Sale)}
}

func (l *MemorySaleLedger) Append(_ context.Context, sale *domain.Sale) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	stored := *sale
	stored.ID = id
	l.sales[id] = stored
	return id, nil
}

func (l *MemorySaleLedger) Get(_ context.Context, id int64) (*domain.Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sale, ok := l.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %d: %w", id, domain.ErrSaleNotFound)
	}
	return &sale, nil
}

func (l *MemorySaleLedger) Delete(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sales[id]; !ok {
		return fmt.Errorf("sale %d: %w", id, domain.ErrSaleNotFound)
	}
	delete(l.sales, id)
	return nil
}

func (l *MemorySaleLedger) All(_ context.Context) ([]domain.Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sales := make([]domain.Sale, 0, len(l.sales))
	for _, sale := range l.sales {
		sales = append(sales, sale)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].ID < sales[j].ID })
	return sales, nil
}

func (l *MemorySaleLedger) TotalsByCategory(_ context.Context) (map[string]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	totals := make(map[string]float64)
	for _, sale := range l.sales {
		totals[sale.Category] += sale.TotalAmount
	}
	return totals, nil
}
