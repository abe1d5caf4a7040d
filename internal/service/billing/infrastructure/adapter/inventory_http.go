// internal/service/billing/infrastructure/adapter/inventory_http.go
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"stockbridge/internal/pkg/httpclient"
	"stockbridge/internal/service/billing/domain"
)

// inventoryItemDTO 是库存服务的线上格式。
type inventoryItemDTO struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (d inventoryItemDTO) toView() domain.ItemView {
	return domain.ItemView{
		ID:       d.ID,
		Name:     d.Name,
		Category: d.Category,
		Price:    d.Price,
		Quantity: d.Quantity,
	}
}

// InventoryHTTPAdapter 对接库存侧服务的 REST 接口。
// 扣减走远端的原子 check-and-set 端点，余量裁决发生在目标侧。
type InventoryHTTPAdapter struct {
	client      *httpclient.Client
	serviceName string
}

func NewInventoryHTTPAdapter(client *httpclient.Client, serviceName string) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client, serviceName: serviceName}
}

func (a *InventoryHTTPAdapter) Side() string { return "inventory" }

func (a *InventoryHTTPAdapter) GetItem(ctx context.Context, id int64) (*domain.ItemView, error) {
	var dto inventoryItemDTO
	path := fmt.Sprintf("/api/items/%d", id)
	if err := a.client.GetJSON(ctx, a.serviceName, path, nil, &dto); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("item %d: %w", id, domain.ErrItemNotFound)
		}
		return nil, err
	}
	view := dto.toView()
	return &view, nil
}

func (a *InventoryHTTPAdapter) ListItems(ctx context.Context) (domain.ItemListing, error) {
	var dtos []inventoryItemDTO
	if err := a.client.GetJSON(ctx, a.serviceName, "/api/items", nil, &dtos); err != nil {
		return domain.ItemListing{}, err
	}
	listing := domain.ItemListing{Items: make([]domain.ItemView, 0, len(dtos))}
	for _, d := range dtos {
		listing.Items = append(listing.Items, d.toView())
	}
	return listing, nil
}

// DebitStock 调用远端的原子扣减端点。4xx 意味着目标侧在扣减瞬间发现余量不足。
func (a *InventoryHTTPAdapter) DebitStock(ctx context.Context, id int64, quantity int) error {
	path := fmt.Sprintf("/api/items/%d/stock", id)
	query := url.Values{"quantity": {strconv.Itoa(quantity)}}
	if err := a.client.PutJSON(ctx, a.serviceName, path, query, nil); err != nil {
		return translateDebitError(err, id)
	}
	return nil
}

func (a *InventoryHTTPAdapter) CreditStock(ctx context.Context, id int64, quantity int) error {
	path := fmt.Sprintf("/api/items/%d/stock/add", id)
	query := url.Values{"quantity": {strconv.Itoa(quantity)}}
	if err := a.client.PutJSON(ctx, a.serviceName, path, query, nil); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("item %d: %w", id, domain.ErrItemNotFound)
		}
		return fmt.Errorf("credit inventory stock: %w", err)
	}
	return nil
}

// SetStock 库存服务没有绝对设置端点，用「读当前值 + 差额增减」模拟。
// 中间存在竞态窗口，因此调用方（对账服务）必须持有该商品的同步锁。
func (a *InventoryHTTPAdapter) SetStock(ctx context.Context, id int64, quantity int) error {
	view, err := a.GetItem(ctx, id)
	if err != nil {
		return err
	}
	delta := quantity - view.Quantity
	switch {
	case delta > 0:
		return a.CreditStock(ctx, id, delta)
	case delta < 0:
		return a.DebitStock(ctx, id, -delta)
	default:
		return nil
	}
}

// isNotFound 判断远端是否明确回答了「不存在」。
func isNotFound(err error) bool {
	var statusErr *httpclient.StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// translateDebitError 把扣减端点的状态码翻译为领域错误：
// 4xx 是目标侧的明确拒绝（余量不足），其余都算更新失败。
func translateDebitError(err error, id int64) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == http.StatusNotFound {
			return fmt.Errorf("item %d: %w", id, domain.ErrItemNotFound)
		}
		if statusErr.Code >= 400 && statusErr.Code < 500 {
			return fmt.Errorf("item %d: %w", id, domain.ErrInsufficientStock)
		}
	}
	return fmt.Errorf("%v: %w", err, domain.ErrStockUpdateFailed)
}
