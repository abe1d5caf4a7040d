// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 销售协议与对账的核心指标。通过 /metrics 暴露（promhttp）。
var (
	SalesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_sales_completed_total",
		Help: "Number of sales that reached the Completed terminal state.",
	})

	SalesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_sales_rejected_total",
		Help: "Number of rejected sale attempts, by rejection reason.",
	}, []string{"reason"})

	SalesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_sales_cancelled_total",
		Help: "Number of successfully compensated (cancelled) sales.",
	})

	FallbackEngaged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_client_fallback_engaged_total",
		Help: "Number of reads served by the static fallback responder, by side.",
	}, []string{"side"})

	RemoteCallFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_client_remote_failures_total",
		Help: "Number of failed remote stock calls, by side and operation.",
	}, []string{"side", "op"})

	DriftDetected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reconcile_drift_mismatched_items",
		Help: "Mismatched item count observed by the latest drift scan.",
	})

	SyncPushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_sync_pushes_total",
		Help: "Number of inventory-to-catalog stock pushes performed by SyncItem.",
	})
)
