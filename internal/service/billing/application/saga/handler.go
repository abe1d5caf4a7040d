// internal/service/billing/application/saga/handler.go
package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/service/billing/domain"
	"stockbridge/internal/service/billing/domain/port"
)

// SaleContext 在一次销售尝试的各个步骤之间传递上下文数据。
// 所有外部依赖都是抽象端口，便于测试替换。
type SaleContext struct {
	Ctx    context.Context
	Tracer trace.Tracer

	RequestID string
	ItemID    int64
	Quantity  int

	// 出站端口
	Inventory   port.StockService
	Catalog     port.StockService
	Policy      port.SalePolicy
	DriftEvents port.DriftEventProducer
	Ledger      domain.SaleLedger

	// 步骤间传递的工作状态
	InventoryView *domain.ItemView
	CatalogView   *domain.ItemView
	UnitPrice     float64
	Sale          *domain.Sale

	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 注册一个补偿动作，后注册的先执行。
func (c *SaleContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 逆序执行全部已注册的补偿动作。
// 注意：目录侧扣减失败的 partial update 路径【不会】走到这里，
// 那条路径的漂移由对账服务收口，而不是回滚。
func (c *SaleContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().
		Str("request_id", c.RequestID).
		Int("count", len(c.compensations)).
		Msg("Executing compensation functions.")
	for _, comp := range c.compensations {
		comp(ctx)
	}
}

// Handler 是销售链上一个步骤的接口。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(saleCtx *SaleContext) error
}

// NextHandler 提供链式调用的公共实现，各步骤内嵌它。
type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(saleCtx *SaleContext) error {
	if h.next != nil {
		return h.next.Handle(saleCtx)
	}
	return nil
}
