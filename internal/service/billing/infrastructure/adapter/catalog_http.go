// internal/service/billing/infrastructure/adapter/catalog_http.go
package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"stockbridge/internal/pkg/httpclient"
	"stockbridge/internal/service/billing/domain"
)

// catalogProductDTO 是目录服务的线上格式。
// 库存字段叫 stock 而不是 quantity，这是对方服务的历史包袱，在此收口。
type catalogProductDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	SKU         string  `json:"sku"`
	Active      bool    `json:"active"`
}

func (d catalogProductDTO) toView() domain.ItemView {
	return domain.ItemView{
		ID:          d.ID,
		Name:        d.Name,
		Category:    d.Category,
		Price:       d.Price,
		Quantity:    d.Stock,
		Description: d.Description,
		SKU:         d.SKU,
		Active:      d.Active,
	}
}

// CatalogHTTPAdapter 对接目录（商品）侧服务的 REST 接口。
type CatalogHTTPAdapter struct {
	client      *httpclient.Client
	serviceName string
}

func NewCatalogHTTPAdapter(client *httpclient.Client, serviceName string) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client, serviceName: serviceName}
}

func (a *CatalogHTTPAdapter) Side() string { return "catalog" }

func (a *CatalogHTTPAdapter) GetItem(ctx context.Context, id int64) (*domain.ItemView, error) {
	var dto catalogProductDTO
	path := fmt.Sprintf("/api/products/%d", id)
	if err := a.client.GetJSON(ctx, a.serviceName, path, nil, &dto); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrItemNotFound)
		}
		return nil, err
	}
	view := dto.toView()
	return &view, nil
}

func (a *CatalogHTTPAdapter) ListItems(ctx context.Context) (domain.ItemListing, error) {
	var dtos []catalogProductDTO
	if err := a.client.GetJSON(ctx, a.serviceName, "/api/products", nil, &dtos); err != nil {
		return domain.ItemListing{}, err
	}
	listing := domain.ItemListing{Items: make([]domain.ItemView, 0, len(dtos))}
	for _, d := range dtos {
		listing.Items = append(listing.Items, d.toView())
	}
	return listing, nil
}

func (a *CatalogHTTPAdapter) DebitStock(ctx context.Context, id int64, quantity int) error {
	path := fmt.Sprintf("/api/products/%d/reduce-stock", id)
	query := url.Values{"quantity": {strconv.Itoa(quantity)}}
	if err := a.client.PutJSON(ctx, a.serviceName, path, query, nil); err != nil {
		return translateDebitError(err, id)
	}
	return nil
}

// CreditStock 目录服务没有加库存端点，只有绝对设置。
// 用「读当前值 + 设回加后的值」模拟，同样依赖调用方的外部互斥。
func (a *CatalogHTTPAdapter) CreditStock(ctx context.Context, id int64, quantity int) error {
	view, err := a.GetItem(ctx, id)
	if err != nil {
		return err
	}
	return a.SetStock(ctx, id, view.Quantity+quantity)
}

// SetStock 绝对设置目录侧库存，是对账服务推平漂移的落点。
func (a *CatalogHTTPAdapter) SetStock(ctx context.Context, id int64, quantity int) error {
	path := fmt.Sprintf("/api/products/%d/stock", id)
	query := url.Values{"stock": {strconv.Itoa(quantity)}}
	if err := a.client.PutJSON(ctx, a.serviceName, path, query, nil); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("product %d: %w", id, domain.ErrItemNotFound)
		}
		return fmt.Errorf("set catalog stock: %w", err)
	}
	return nil
}
