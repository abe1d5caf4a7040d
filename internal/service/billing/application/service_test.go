// internal/service/billing/application/service_test.go
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"stockbridge/internal/service/billing/domain"
	"stockbridge/internal/service/billing/infrastructure"
)

// fakeStock 是进程内的单侧库存服务，支持故障注入。
type fakeStock struct {
	side      string
	mu        sync.Mutex
	items     map[int64]domain.ItemView
	getErr    error
	listErr   error
	debitErr  error
	creditErr error
}

func newFakeStock(side string, items ...domain.ItemView) *fakeStock {
	m := make(map[int64]domain.ItemView, len(items))
	for _, item := range items {
		m[item.ID] = item
	}
	return &fakeStock{side: side, items: m}
}

func (f *fakeStock) Side() string { return f.side }

func (f *fakeStock) GetItem(_ context.Context, id int64) (*domain.ItemView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("%s item %d: %w", f.side, id, domain.ErrItemNotFound)
	}
	return &item, nil
}

func (f *fakeStock) ListItems(_ context.Context) (domain.ItemListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return domain.ItemListing{}, f.listErr
	}
	listing := domain.ItemListing{}
	for _, item := range f.items {
		listing.Items = append(listing.Items, item)
	}
	return listing, nil
}

func (f *fakeStock) DebitStock(_ context.Context, id int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return f.debitErr
	}
	item, ok := f.items[id]
	if !ok {
		return fmt.Errorf("%s item %d: %w", f.side, id, domain.ErrItemNotFound)
	}
	if item.Quantity < quantity {
		return fmt.Errorf("%s item %d: %w", f.side, id, domain.ErrInsufficientStock)
	}
	item.Quantity -= quantity
	f.items[id] = item
	return nil
}

func (f *fakeStock) CreditStock(_ context.Context, id int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	item, ok := f.items[id]
	if !ok {
		return fmt.Errorf("%s item %d: %w", f.side, id, domain.ErrItemNotFound)
	}
	item.Quantity += quantity
	f.items[id] = item
	return nil
}

func (f *fakeStock) SetStock(_ context.Context, id int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return fmt.Errorf("%s item %d: %w", f.side, id, domain.ErrItemNotFound)
	}
	item.Quantity = quantity
	f.items[id] = item
	return nil
}

func (f *fakeStock) stock(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Quantity
}

func (f *fakeStock) rename(id int64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[id]
	item.Name = name
	f.items[id] = item
}

type fakePolicy struct {
	allow bool
	err   error
}

func (p *fakePolicy) Allow(context.Context, *domain.ItemView, *domain.ItemView, int) (bool, error) {
	return p.allow, p.err
}

type fakeEvents struct {
	mu        sync.Mutex
	completed []int64
	cancelled []int64
	err       error
}

func (e *fakeEvents) SaleCompleted(_ context.Context, sale *domain.Sale) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.completed = append(e.completed, sale.ID)
	return nil
}

func (e *fakeEvents) SaleCancelled(_ context.Context, sale *domain.Sale) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.cancelled = append(e.cancelled, sale.ID)
	return nil
}

type fakeDrift struct {
	mu    sync.Mutex
	items []int64
}

func (d *fakeDrift) PartialStockUpdate(_ context.Context, itemID int64, _ string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, itemID)
	return nil
}

// failingLedger 让 Append 失败，其余委托给内存账本。
type failingLedger struct {
	*infrastructure.MemorySaleLedger
	appendErr error
}

func (l *failingLedger) Append(ctx context.Context, sale *domain.Sale) (int64, error) {
	if l.appendErr != nil {
		return 0, l.appendErr
	}
	return l.MemorySaleLedger.Append(ctx, sale)
}

type harness struct {
	inv    *fakeStock
	cat    *fakeStock
	ledger domain.SaleLedger
	policy *fakePolicy
	events *fakeEvents
	drift  *fakeDrift
	svc    *BillingApplicationService
}

func laptop(quantity int) domain.ItemView {
	return domain.ItemView{ID: 1, Name: "Laptop", Category: "Electronics", Price: 50000, Quantity: quantity}
}

func newHarness(inv, cat *fakeStock) *harness {
	h := &harness{
		inv:    inv,
		cat:    cat,
		ledger: infrastructure.NewMemorySaleLedger(),
		policy: &fakePolicy{allow: true},
		events: &fakeEvents{},
		drift:  &fakeDrift{},
	}
	h.build()
	return h
}

func (h *harness) build() {
	h.svc = NewBillingApplicationService(
		h.ledger,
		h.inv,
		h.cat,
		h.policy,
		infrastructure.NewMemoryRequestGuard(),
		h.events,
		h.drift,
		otel.Tracer("test"),
		5*time.Second,
	)
}

func completeSale(t *testing.T, h *harness, itemID int64, quantity int) (*domain.Sale, error) {
	t.Helper()
	return h.svc.CompleteSale(context.Background(), &CompleteSaleRequest{
		RequestID: fmt.Sprintf("req-%s", t.Name()),
		ItemID:    itemID,
		Quantity:  quantity,
	})
}

func TestCompleteSale_HappyPath(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))

	sale, err := completeSale(t, h, 1, 3)
	if err != nil {
		t.Fatalf("CompleteSale() error = %v", err)
	}
	if sale.TotalAmount != 150000 {
		t.Fatalf("TotalAmount = %v, want 150000", sale.TotalAmount)
	}
	if got := h.inv.stock(1); got != 7 {
		t.Fatalf("inventory stock = %d, want 7", got)
	}
	if got := h.cat.stock(1); got != 7 {
		t.Fatalf("catalog stock = %d, want 7", got)
	}
	stored, err := h.ledger.Get(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("sale not found in ledger: %v", err)
	}
	if stored.TotalAmount != sale.TotalAmount {
		t.Fatalf("ledger total = %v, want %v", stored.TotalAmount, sale.TotalAmount)
	}
	if len(h.events.completed) != 1 {
		t.Fatalf("completed events = %d, want 1", len(h.events.completed))
	}
}

func TestCompleteSale_CatalogPriceIsAuthority(t *testing.T) {
	cat := laptop(10)
	cat.Price = 52000
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", cat))

	sale, err := completeSale(t, h, 1, 2)
	if err != nil {
		t.Fatalf("CompleteSale() error = %v", err)
	}
	if sale.TotalAmount != 104000 {
		t.Fatalf("TotalAmount = %v, want 104000 (catalog price x quantity)", sale.TotalAmount)
	}
}

func TestCompleteSale_StockMismatchBlocksSale(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(5)), newFakeStock("catalog", laptop(3)))

	_, err := completeSale(t, h, 1, 1)
	if !errors.Is(err, domain.ErrInconsistentItem) {
		t.Fatalf("error = %v, want ErrInconsistentItem", err)
	}
	if h.inv.stock(1) != 5 || h.cat.stock(1) != 3 {
		t.Fatal("stocks must be untouched after consistency rejection")
	}
	sales, _ := h.ledger.All(context.Background())
	if len(sales) != 0 {
		t.Fatalf("ledger has %d sales, want 0", len(sales))
	}
}

func TestCompleteSale_NameMismatchBlocksSale(t *testing.T) {
	cat := laptop(10)
	cat.Name = "Gaming Laptop"
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", cat))

	if _, err := completeSale(t, h, 1, 1); !errors.Is(err, domain.ErrInconsistentItem) {
		t.Fatalf("error = %v, want ErrInconsistentItem", err)
	}
}

func TestCompleteSale_MissingOnCatalogSide(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog"))

	if _, err := completeSale(t, h, 1, 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound", err)
	}
	if h.inv.stock(1) != 10 {
		t.Fatal("inventory stock must be untouched")
	}
}

func TestCompleteSale_OutOfStock(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(0)), newFakeStock("catalog", laptop(0)))

	if _, err := completeSale(t, h, 1, 1); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("error = %v, want ErrOutOfStock", err)
	}
}

func TestCompleteSale_InsufficientStock(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(2)), newFakeStock("catalog", laptop(2)))

	if _, err := completeSale(t, h, 1, 5); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("error = %v, want ErrInsufficientStock", err)
	}
	if h.inv.stock(1) != 2 || h.cat.stock(1) != 2 {
		t.Fatal("stocks must be untouched")
	}
}

func TestCompleteSale_PartialUpdateLeavesDrift(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))
	h.cat.debitErr = errors.New("catalog exploded")

	_, err := completeSale(t, h, 1, 3)
	if !errors.Is(err, domain.ErrPartialStockUpdate) {
		t.Fatalf("error = %v, want ErrPartialStockUpdate", err)
	}
	// 库存侧已扣、目录侧未动、未记账：这是协议明文保留的中间态
	if got := h.inv.stock(1); got != 7 {
		t.Fatalf("inventory stock = %d, want 7 (debited, not rolled back)", got)
	}
	if got := h.cat.stock(1); got != 10 {
		t.Fatalf("catalog stock = %d, want 10", got)
	}
	sales, _ := h.ledger.All(context.Background())
	if len(sales) != 0 {
		t.Fatal("no sale must be recorded after a partial update")
	}
	if len(h.drift.items) != 1 || h.drift.items[0] != 1 {
		t.Fatalf("drift events = %v, want one event for item 1", h.drift.items)
	}
}

func TestCompleteSale_PartialUpdateKeepsRequestIDClaimed(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))
	h.cat.debitErr = errors.New("catalog exploded")

	req := &CompleteSaleRequest{RequestID: "req-partial", ItemID: 1, Quantity: 1}
	if _, err := h.svc.CompleteSale(context.Background(), req); !errors.Is(err, domain.ErrPartialStockUpdate) {
		t.Fatalf("first attempt error = %v, want ErrPartialStockUpdate", err)
	}

	// 已产生副作用的请求 id 不允许重放
	h.cat.debitErr = nil
	if _, err := h.svc.CompleteSale(context.Background(), req); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("replay error = %v, want ErrDuplicateRequest", err)
	}
}

func TestCompleteSale_CleanRejectionReleasesRequestID(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(5)), newFakeStock("catalog", laptop(3)))

	req := &CompleteSaleRequest{RequestID: "req-retry", ItemID: 1, Quantity: 1}
	if _, err := h.svc.CompleteSale(context.Background(), req); !errors.Is(err, domain.ErrInconsistentItem) {
		t.Fatalf("first attempt error = %v, want ErrInconsistentItem", err)
	}

	// 无副作用的拒绝归还请求 id，修复数据后同一 id 可以重试成功
	_ = h.cat.SetStock(context.Background(), 1, 5)
	if _, err := h.svc.CompleteSale(context.Background(), req); err != nil {
		t.Fatalf("retry after fix error = %v, want success", err)
	}
}

func TestCompleteSale_LedgerFailureTriggersCompensation(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))
	h.ledger = &failingLedger{
		MemorySaleLedger: infrastructure.NewMemorySaleLedger(),
		appendErr:        errors.New("ledger down"),
	}
	h.build()

	if _, err := completeSale(t, h, 1, 3); err == nil {
		t.Fatal("CompleteSale() expected error when ledger append fails")
	}
	// 两侧都已扣减成功却没记上账，补偿要把两侧都加回去
	if got := h.inv.stock(1); got != 10 {
		t.Fatalf("inventory stock = %d, want 10 after compensation", got)
	}
	if got := h.cat.stock(1); got != 10 {
		t.Fatalf("catalog stock = %d, want 10 after compensation", got)
	}
}

func TestCompleteSale_PolicyRejectsDegradedData(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))
	h.policy.allow = false

	if _, err := completeSale(t, h, 1, 1); !errors.Is(err, domain.ErrServiceDegraded) {
		t.Fatalf("error = %v, want ErrServiceDegraded", err)
	}
	if h.inv.stock(1) != 10 || h.cat.stock(1) != 10 {
		t.Fatal("stocks must be untouched after policy rejection")
	}
}

func TestCompleteSale_InvalidQuantity(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))

	for _, quantity := range []int{0, -3} {
		if _, err := completeSale(t, h, 1, quantity); err == nil {
			t.Fatalf("quantity %d: expected validation error", quantity)
		}
	}
}

func TestCompleteSale_DuplicateRequest(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))

	req := &CompleteSaleRequest{RequestID: "req-dup", ItemID: 1, Quantity: 1}
	if _, err := h.svc.CompleteSale(context.Background(), req); err != nil {
		t.Fatalf("first request error = %v", err)
	}
	if _, err := h.svc.CompleteSale(context.Background(), req); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("second request error = %v, want ErrDuplicateRequest", err)
	}
}

func TestCompleteSale_EventFailureDoesNotFailSale(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))
	h.events.err = errors.New("kafka down")

	if _, err := completeSale(t, h, 1, 1); err != nil {
		t.Fatalf("CompleteSale() error = %v, event failure must not fail the sale", err)
	}
}

func TestCancelSale_RestoresStockAndDeletesSale(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))

	sale, err := completeSale(t, h, 1, 4)
	if err != nil {
		t.Fatalf("CompleteSale() error = %v", err)
	}

	if err := h.svc.CancelSale(context.Background(), sale.ID); err != nil {
		t.Fatalf("CancelSale() error = %v", err)
	}
	if got := h.inv.stock(1); got != 10 {
		t.Fatalf("inventory stock = %d, want 10 after cancellation", got)
	}
	if _, err := h.ledger.Get(context.Background(), sale.ID); !errors.Is(err, domain.ErrSaleNotFound) {
		t.Fatalf("ledger Get after cancel = %v, want ErrSaleNotFound", err)
	}
	if len(h.events.cancelled) != 1 {
		t.Fatalf("cancelled events = %d, want 1", len(h.events.cancelled))
	}

	// 二次取消幂等地失败：账已删，没有重复加库存的机会
	if err := h.svc.CancelSale(context.Background(), sale.ID); !errors.Is(err, domain.ErrSaleNotFound) {
		t.Fatalf("second cancel error = %v, want ErrSaleNotFound", err)
	}
	if got := h.inv.stock(1); got != 10 {
		t.Fatalf("inventory stock = %d, want 10 (no double credit)", got)
	}
}

func TestCancelSale_TargetLostKeepsSale(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))

	sale, err := completeSale(t, h, 1, 2)
	if err != nil {
		t.Fatalf("CompleteSale() error = %v", err)
	}

	// 商品改名后按名称找不回补偿目标，保守地保留账目
	h.inv.rename(1, "Laptop v2")
	if err := h.svc.CancelSale(context.Background(), sale.ID); !errors.Is(err, domain.ErrCompensationTargetLost) {
		t.Fatalf("CancelSale() error = %v, want ErrCompensationTargetLost", err)
	}
	if _, err := h.ledger.Get(context.Background(), sale.ID); err != nil {
		t.Fatalf("sale must remain in ledger, Get() = %v", err)
	}
}

func TestCancelSale_UnknownSale(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(10)), newFakeStock("catalog", laptop(10)))
	if err := h.svc.CancelSale(context.Background(), 999); !errors.Is(err, domain.ErrSaleNotFound) {
		t.Fatalf("CancelSale() error = %v, want ErrSaleNotFound", err)
	}
}

func TestAvailableItems_RequiresBothSidesInStock(t *testing.T) {
	mouse := domain.ItemView{ID: 2, Name: "Mouse", Category: "Electronics", Price: 1500, Quantity: 0}
	cable := domain.ItemView{ID: 3, Name: "Cable", Category: "Electronics", Price: 500, Quantity: 8}
	inv := newFakeStock("inventory", laptop(10), mouse, cable)
	catCable := cable
	catCable.Quantity = 0
	cat := newFakeStock("catalog", laptop(10), mouse, catCable)
	h := newHarness(inv, cat)

	items, err := h.svc.AvailableItems(context.Background())
	if err != nil {
		t.Fatalf("AvailableItems() error = %v", err)
	}
	// mouse 库存侧为 0，cable 目录侧为 0，都不可开单
	if len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("available = %+v, want only item 1", items)
	}
}

func TestStockStatus(t *testing.T) {
	h := newHarness(newFakeStock("inventory", laptop(4)), newFakeStock("catalog", laptop(4)))

	status, err := h.svc.StockStatus(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("StockStatus() error = %v", err)
	}
	if status.Available {
		t.Fatal("Available = true, want false when required exceeds stock")
	}
	if status.CurrentStock != 4 {
		t.Fatalf("CurrentStock = %d, want 4", status.CurrentStock)
	}

	if _, err := h.svc.StockStatus(context.Background(), 42, 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("StockStatus(42) error = %v, want ErrItemNotFound", err)
	}
}
