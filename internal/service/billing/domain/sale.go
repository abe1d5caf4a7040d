// internal/service/billing/domain/sale.go
package domain

import (
	"errors"
	"time"
)

// Sale 是账本中的一条已完成销售记录。
// 创建后不可变，唯一的例外是取消销售时的补偿性删除。
type Sale struct {
	ID           int64
	RequestID    string
	ItemName     string
	Category     string
	QuantitySold int
	TotalAmount  float64
	SaleDate     time.Time
}

// NewSale 以决策时刻读到的单价生成销售记录。
// TotalAmount 在此一次性算定，之后永不重算。
func NewSale(requestID string, item *ItemView, unitPrice float64, quantity int) (*Sale, error) {
	if item == nil || item.Name == "" {
		return nil, errors.New("cannot create sale without a resolved item")
	}
	if quantity <= 0 {
		return nil, errors.New("sale quantity must be positive")
	}
	if unitPrice < 0 {
		return nil, errors.New("sale unit price must not be negative")
	}

	return &Sale{
		RequestID:    requestID,
		ItemName:     item.Name,
		Category:     item.Category,
		QuantitySold: quantity,
		TotalAmount:  unitPrice * float64(quantity),
		SaleDate:     time.Now(),
	}, nil
}
