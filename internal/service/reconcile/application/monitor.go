// internal/service/reconcile/application/monitor.go
package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/pkg/mq"
	"stockbridge/internal/service/reconcile/domain"
)

// DriftMonitor 驱动漂移检测的两条触发路径：
//  1. 定时全量扫描；
//  2. 开单服务上报的 partial-stock-update 事件，立即触发一次扫描，
//     让已知缺口第一时间出现在推送面板上。
//
// 每次扫描的报告同时广播给 WebSocket 订阅者和（如果配置了 writer）
// 发回漂移 topic，供下游审计消费。报告事件和 partial-update 事件共用
// 一个 topic，消费侧靠 eventType 区分，报告不会再触发扫描。
type DriftMonitor struct {
	app          *ReconcileApplicationService
	reader       *kafka.Reader
	writer       *kafka.Writer
	scanInterval time.Duration
	broadcast    func(payload []byte)
}

// NewDriftMonitor 创建监控器。reader/writer 可为 nil（无 Kafka 的本地运行），
// 此时只保留定时扫描和 WebSocket 广播。
func NewDriftMonitor(app *ReconcileApplicationService, reader *kafka.Reader, writer *kafka.Writer, scanInterval time.Duration, broadcast func([]byte)) *DriftMonitor {
	return &DriftMonitor{app: app, reader: reader, writer: writer, scanInterval: scanInterval, broadcast: broadcast}
}

// Run 阻塞运行直到 ctx 取消。
func (m *DriftMonitor) Run(ctx context.Context) {
	trigger := make(chan struct{}, 1)

	if m.reader != nil {
		go m.consumeDriftEvents(ctx, trigger)
	}

	ticker := time.NewTicker(m.scanInterval)
	defer ticker.Stop()

	// 启动即扫一轮，面板不用等第一个周期
	m.scanAndBroadcast(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scanAndBroadcast(ctx)
		case <-trigger:
			m.scanAndBroadcast(ctx)
		}
	}
}

func (m *DriftMonitor) consumeDriftEvents(ctx context.Context, trigger chan<- struct{}) {
	for {
		msg, err := m.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.L().Error().Err(err).Msg("Failed to fetch drift event, retrying.")
			time.Sleep(time.Second)
			continue
		}

		var envelope struct {
			EventType string `json:"eventType"`
		}
		// 只有 partial-update 事件触发扫描；自己发回的报告事件直接跳过
		if err := json.Unmarshal(msg.Value, &envelope); err == nil && envelope.EventType == "PARTIAL_STOCK_UPDATE" {
			carrier := mq.KafkaHeaderCarrier(msg.Headers)
			msgCtx := otel.GetTextMapPropagator().Extract(ctx, &carrier)
			logger.Ctx(msgCtx).Info().
				Str("key", string(msg.Key)).
				Msg("Received partial-stock-update event, scheduling immediate drift scan.")

			// 触发通道容量为 1：事件风暴合并成一次扫描
			select {
			case trigger <- struct{}{}:
			default:
			}
		}

		if err := m.reader.CommitMessages(ctx, msg); err != nil {
			logger.L().Error().Err(err).Msg("Failed to commit drift event offset.")
		}
	}
}

func (m *DriftMonitor) scanAndBroadcast(ctx context.Context) {
	report, err := m.app.ComputeDrift(ctx)
	if err != nil {
		logger.L().Error().Err(err).Msg("Scheduled drift scan failed.")
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		logger.L().Error().Err(err).Msg("Failed to marshal drift report.")
		return
	}
	if m.broadcast != nil {
		m.broadcast(payload)
	}
	if m.writer != nil && report.HasDrift() {
		event, err := json.Marshal(driftReportEvent{EventType: "DRIFT_REPORT", Report: report})
		if err != nil {
			logger.L().Error().Err(err).Msg("Failed to marshal drift report event.")
			return
		}
		if err := mq.ProduceMessage(ctx, m.writer, []byte("drift-report"), event); err != nil {
			logger.L().Error().Err(err).Msg("Failed to publish drift report event.")
		}
	}
}

// driftReportEvent 是发回漂移 topic 的审计事件。
type driftReportEvent struct {
	EventType string              `json:"eventType"`
	Report    *domain.DriftReport `json:"report"`
}
