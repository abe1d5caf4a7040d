// internal/service/billing/infrastructure/adapter/sale_kafka.go
package adapter

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"stockbridge/internal/pkg/mq"
	"stockbridge/internal/service/billing/domain"
)

// saleEventPayload 是销售生命周期事件的消息体。
type saleEventPayload struct {
	EventType    string    `json:"eventType"`
	SaleID       int64     `json:"saleId"`
	RequestID    string    `json:"requestId"`
	ItemName     string    `json:"itemName"`
	Category     string    `json:"category"`
	QuantitySold int       `json:"quantitySold"`
	TotalAmount  float64   `json:"totalAmount"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// SaleKafkaProducer 把销售完成/取消事件发往 Kafka。
// 以 sale id 作为分区键，同一笔销售的事件保持有序。
type SaleKafkaProducer struct {
	writer *kafka.Writer
}

func NewSaleKafkaProducer(writer *kafka.Writer) *SaleKafkaProducer {
	return &SaleKafkaProducer{writer: writer}
}

func (p *SaleKafkaProducer) SaleCompleted(ctx context.Context, sale *domain.Sale) error {
	return p.publish(ctx, "SALE_COMPLETED", sale)
}

func (p *SaleKafkaProducer) SaleCancelled(ctx context.Context, sale *domain.Sale) error {
	return p.publish(ctx, "SALE_CANCELLED", sale)
}

func (p *SaleKafkaProducer) publish(ctx context.Context, eventType string, sale *domain.Sale) error {
	payload, err := json.Marshal(saleEventPayload{
		EventType:    eventType,
		SaleID:       sale.ID,
		RequestID:    sale.RequestID,
		ItemName:     sale.ItemName,
		Category:     sale.Category,
		QuantitySold: sale.QuantitySold,
		TotalAmount:  sale.TotalAmount,
		OccurredAt:   time.Now(),
	})
	if err != nil {
		return err
	}
	key := []byte(strconv.FormatInt(sale.ID, 10))
	return mq.ProduceMessage(ctx, p.writer, key, payload)
}

// driftEventPayload 是漂移事实的消息体，对账服务和监控都消费它。
type driftEventPayload struct {
	EventType  string    `json:"eventType"`
	ItemID     int64     `json:"itemId"`
	ItemName   string    `json:"itemName"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurredAt"`
}

// DriftKafkaProducer 上报已知漂移事实（目录侧扣减失败留下的缺口）。
type DriftKafkaProducer struct {
	writer *kafka.Writer
}

func NewDriftKafkaProducer(writer *kafka.Writer) *DriftKafkaProducer {
	return &DriftKafkaProducer{writer: writer}
}

func (p *DriftKafkaProducer) PartialStockUpdate(ctx context.Context, itemID int64, itemName string, quantity int) error {
	payload, err := json.Marshal(driftEventPayload{
		EventType:  "PARTIAL_STOCK_UPDATE",
		ItemID:     itemID,
		ItemName:   itemName,
		Quantity:   quantity,
		OccurredAt: time.Now(),
	})
	if err != nil {
		return err
	}
	key := []byte(strconv.FormatInt(itemID, 10))
	return mq.ProduceMessage(ctx, p.writer, key, payload)
}
