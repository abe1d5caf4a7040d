// internal/service/reconcile/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"stockbridge/internal/pkg/logger"
	billing "stockbridge/internal/service/billing/domain"
	"stockbridge/internal/service/reconcile/application"
	"stockbridge/internal/service/reconcile/domain"
)

// ReconcileHandler 是对账服务的 HTTP 入口。
type ReconcileHandler struct {
	app    *application.ReconcileApplicationService
	hub    *DriftFeedHub
	tracer trace.Tracer
}

func NewReconcileHandler(app *application.ReconcileApplicationService, hub *DriftFeedHub, tracer trace.Tracer) *ReconcileHandler {
	return &ReconcileHandler{app: app, hub: hub, tracer: tracer}
}

func (h *ReconcileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reconcile/drift", h.handleDriftReport)
	mux.HandleFunc("POST /api/reconcile/items/{id}/sync", h.handleSyncItem)
	mux.HandleFunc("GET /ws/drift", h.hub.HandleSubscribe)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *ReconcileHandler) handleDriftReport(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "http.DriftReport")
	defer span.End()

	report, err := h.app.ComputeDrift(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReconcileHandler) handleSyncItem(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "http.SyncItem")
	defer span.End()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "parse item id"))
		return
	}

	result, err := h.app.SyncItem(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrItemNotComparable), errors.Is(err, billing.ErrItemNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrDegradedSource):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			writeError(w, http.StatusBadGateway, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Error().Err(err).Msg("Failed to encode response body.")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
