// internal/service/billing/infrastructure/adapter/adapter_test.go
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"stockbridge/internal/pkg/config"
	"stockbridge/internal/pkg/httpclient"
	"stockbridge/internal/service/billing/domain"
)

func clientFor(t *testing.T, serviceName string, server *httptest.Server) *httpclient.Client {
	t.Helper()
	addr := strings.TrimPrefix(server.URL, "http://")
	resolver := httpclient.StaticResolver{serviceName: addr}
	return httpclient.NewClient(otel.Tracer("test"), resolver, 2*time.Second)
}

func TestInventoryAdapter_GetItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/items/1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": 1, "name": "Laptop", "category": "Electronics", "price": 50000.0, "quantity": 10,
		})
	}))
	defer server.Close()

	a := NewInventoryHTTPAdapter(clientFor(t, "inventory-service", server), "inventory-service")
	view, err := a.GetItem(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if view.Name != "Laptop" || view.Quantity != 10 || view.Price != 50000 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Degraded {
		t.Fatal("remote reads must not be marked degraded")
	}
}

func TestInventoryAdapter_GetItem_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	a := NewInventoryHTTPAdapter(clientFor(t, "inventory-service", server), "inventory-service")
	if _, err := a.GetItem(context.Background(), 42); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound", err)
	}
}

func TestInventoryAdapter_DebitStock(t *testing.T) {
	var gotMethod, gotPath, gotQuantity string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuantity = r.URL.Query().Get("quantity")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := NewInventoryHTTPAdapter(clientFor(t, "inventory-service", server), "inventory-service")
	if err := a.DebitStock(context.Background(), 1, 3); err != nil {
		t.Fatalf("DebitStock() error = %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/items/1/stock" || gotQuantity != "3" {
		t.Fatalf("request = %s %s?quantity=%s, want PUT /api/items/1/stock?quantity=3", gotMethod, gotPath, gotQuantity)
	}
}

func TestInventoryAdapter_DebitStock_Rejected(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"conflict means insufficient", http.StatusConflict, domain.ErrInsufficientStock},
		{"bad request means insufficient", http.StatusBadRequest, domain.ErrInsufficientStock},
		{"not found", http.StatusNotFound, domain.ErrItemNotFound},
		{"server error means update failed", http.StatusInternalServerError, domain.ErrStockUpdateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			a := NewInventoryHTTPAdapter(clientFor(t, "inventory-service", server), "inventory-service")
			if err := a.DebitStock(context.Background(), 1, 3); !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCatalogAdapter_StockFieldMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "name": "Gaming Laptop", "description": "High-performance", "price": 75000.0,
				"stock": 5, "category": "Electronics", "sku": "ELEGAL001", "active": true},
		})
	}))
	defer server.Close()

	a := NewCatalogHTTPAdapter(clientFor(t, "product-service", server), "product-service")
	listing, err := a.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(listing.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(listing.Items))
	}
	item := listing.Items[0]
	if item.Quantity != 5 || item.SKU != "ELEGAL001" || !item.Active {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestCatalogAdapter_CreditStockIsReadThenSet(t *testing.T) {
	var setStock string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/products/1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": 1, "name": "Laptop", "price": 50000.0, "stock": 10, "category": "Electronics",
			})
		case r.Method == http.MethodPut && r.URL.Path == "/api/products/1/stock":
			setStock = r.URL.Query().Get("stock")
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	a := NewCatalogHTTPAdapter(clientFor(t, "product-service", server), "product-service")
	if err := a.CreditStock(context.Background(), 1, 2); err != nil {
		t.Fatalf("CreditStock() error = %v", err)
	}
	if setStock != "12" {
		t.Fatalf("set stock = %q, want \"12\" (10 current + 2 credit)", setStock)
	}
}

func TestStaticFallback_DeterministicDegradedReads(t *testing.T) {
	fallback := NewStaticFallback("inventory", config.DefaultInventorySeed())

	first, err := fallback.GetItem(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	second, _ := fallback.GetItem(context.Background(), 1)
	if *first != *second {
		t.Fatal("fallback reads must be deterministic")
	}
	if !first.Degraded {
		t.Fatal("fallback views must carry the degraded mark")
	}

	listing, err := fallback.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if !listing.Degraded || len(listing.Items) != 5 {
		t.Fatalf("listing = degraded:%v items:%d, want degraded listing of 5", listing.Degraded, len(listing.Items))
	}

	if _, err := fallback.GetItem(context.Background(), 99); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("unknown item error = %v, want ErrItemNotFound", err)
	}
}

func TestStaticFallback_WritesAlwaysFail(t *testing.T) {
	fallback := NewStaticFallback("catalog", config.DefaultCatalogSeed())
	ctx := context.Background()

	if err := fallback.DebitStock(ctx, 1, 1); !errors.Is(err, domain.ErrStockUpdateFailed) {
		t.Fatalf("DebitStock() = %v, want ErrStockUpdateFailed", err)
	}
	if err := fallback.CreditStock(ctx, 1, 1); !errors.Is(err, domain.ErrStockUpdateFailed) {
		t.Fatalf("CreditStock() = %v, want ErrStockUpdateFailed", err)
	}
	if err := fallback.SetStock(ctx, 1, 5); !errors.Is(err, domain.ErrStockUpdateFailed) {
		t.Fatalf("SetStock() = %v, want ErrStockUpdateFailed", err)
	}
}

func TestResilient_ReadEngagesFallbackWhenRemoteIsDown(t *testing.T) {
	// 指向一个已经关闭的服务器，读请求必须切到兜底并带降级标记
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	client := clientFor(t, "inventory-service", server)
	server.Close()

	svc := NewResilientStockService(
		NewInventoryHTTPAdapter(client, "inventory-service"),
		NewStaticFallback("inventory", config.DefaultInventorySeed()),
	)

	view, err := svc.GetItem(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetItem() error = %v, want fallback data", err)
	}
	if !view.Degraded || view.Name != "Laptop" {
		t.Fatalf("view = %+v, want degraded Laptop from fallback", view)
	}

	listing, err := svc.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if !listing.Degraded {
		t.Fatal("listing from fallback must be degraded")
	}
}

func TestResilient_NotFoundIsAuthoritative(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewResilientStockService(
		NewInventoryHTTPAdapter(clientFor(t, "inventory-service", server), "inventory-service"),
		NewStaticFallback("inventory", config.DefaultInventorySeed()),
	)

	// 远端明确说不存在，不许拿兜底样本数据顶替
	if _, err := svc.GetItem(context.Background(), 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound (no fallback)", err)
	}
}

func TestResilient_WritesNeverFallBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	client := clientFor(t, "inventory-service", server)
	server.Close()

	svc := NewResilientStockService(
		NewInventoryHTTPAdapter(client, "inventory-service"),
		NewStaticFallback("inventory", config.DefaultInventorySeed()),
	)

	if err := svc.DebitStock(context.Background(), 1, 1); err == nil {
		t.Fatal("DebitStock() must fail when remote is down, fallback cannot mutate stock")
	}
	if err := svc.CreditStock(context.Background(), 1, 1); err == nil {
		t.Fatal("CreditStock() must fail when remote is down")
	}
}
