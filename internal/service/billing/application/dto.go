// internal/service/billing/application/dto.go
package application

// CompleteSaleRequest 是接口层发起一次销售的入参。
// RequestID 为空时由应用层生成，用于幂等去重。
type CompleteSaleRequest struct {
	RequestID string `json:"requestId"`
	ItemID    int64  `json:"itemId"`
	Quantity  int    `json:"quantity"`
}

// StockStatus 是单个商品的库存探查结果。
type StockStatus struct {
	ItemID           int64  `json:"itemId"`
	ItemName         string `json:"itemName"`
	CurrentStock     int    `json:"currentStock"`
	RequiredQuantity int    `json:"requiredQuantity"`
	Available        bool   `json:"available"`
	Degraded         bool   `json:"degraded"`
}
