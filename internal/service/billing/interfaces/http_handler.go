// internal/service/billing/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/service/billing/application"
	"stockbridge/internal/service/billing/domain"
)

// BillingHandler 是开单服务的 HTTP 入口。
type BillingHandler struct {
	app    *application.BillingApplicationService
	tracer trace.Tracer
}

func NewBillingHandler(app *application.BillingApplicationService, tracer trace.Tracer) *BillingHandler {
	return &BillingHandler{app: app, tracer: tracer}
}

// RegisterRoutes 挂载所有路由，含健康检查和指标端点。
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/billing/sales", h.handleCompleteSale)
	mux.HandleFunc("DELETE /api/billing/sales/{id}", h.handleCancelSale)
	mux.HandleFunc("GET /api/billing/sales", h.handleListSales)
	mux.HandleFunc("GET /api/billing/reports/category", h.handleCategoryReport)
	mux.HandleFunc("GET /api/billing/items", h.handleAvailableItems)
	mux.HandleFunc("GET /api/billing/items/{id}/stock", h.handleStockStatus)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *BillingHandler) handleCompleteSale(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := h.tracer.Start(ctx, "http.CompleteSale")
	defer span.End()

	var req application.CompleteSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode sale request"), "bad_request")
		return
	}

	sale, err := h.app.CompleteSale(ctx, &req)
	if err != nil {
		reason := domain.RejectionReason(err)
		writeError(w, statusForRejection(reason), err, reason)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *BillingHandler) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := h.tracer.Start(ctx, "http.CancelSale")
	defer span.End()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "parse sale id"), "bad_request")
		return
	}

	if err := h.app.CancelSale(ctx, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrSaleNotFound):
			writeError(w, http.StatusNotFound, err, "not_found")
		case errors.Is(err, domain.ErrCompensationTargetLost):
			writeError(w, http.StatusConflict, err, "compensation_target_lost")
		default:
			writeError(w, http.StatusBadGateway, err, "internal")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *BillingHandler) handleListSales(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	sales, err := h.app.Sales(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err, "internal")
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *BillingHandler) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	report, err := h.app.CategoryReport(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err, "internal")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *BillingHandler) handleAvailableItems(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	items, err := h.app.AvailableItems(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err, "internal")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BillingHandler) handleStockStatus(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "parse item id"), "bad_request")
		return
	}
	required := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		required, err = strconv.Atoi(q)
		if err != nil || required <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("quantity must be a positive integer"), "bad_request")
			return
		}
	}

	status, err := h.app.StockStatus(ctx, id, required)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, err, "not_found")
			return
		}
		writeError(w, http.StatusBadGateway, err, "internal")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// statusForRejection 把销售拒绝分类映射到 HTTP 状态码。
// partial_stock_update 返回 500：协议承认自己停在了中间态，
// 客户端不应把它当作可以无脑重试的 4xx。
func statusForRejection(reason string) int {
	switch reason {
	case "not_found":
		return http.StatusNotFound
	case "inconsistent", "out_of_stock", "insufficient_stock", "duplicate_request":
		return http.StatusConflict
	case "service_degraded":
		return http.StatusServiceUnavailable
	case "stock_update_failed":
		return http.StatusBadGateway
	case "bad_request":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// extract 续接上游传来的链路上下文。
func extract(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Error().Err(err).Msg("Failed to encode response body.")
	}
}

func writeError(w http.ResponseWriter, status int, err error, reason string) {
	writeJSON(w, status, map[string]string{
		"error":  err.Error(),
		"reason": reason,
	})
}
