// internal/service/stock/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"mall/internal/pkg/logger"
	"mall/internal/service/stock/application"
	"mall/internal/service/stock/domain"
)

const serviceName = "stock-service"

// StockHandler 封装了库存服务的 HTTP 处理器
type StockHandler struct {
	service *application.ReservationService
}

// NewStockHandler 创建一个新的 HTTP 处理器实例
func NewStockHandler(service *application.ReservationService) *StockHandler {
	return &StockHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *StockHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/lock_stock", h.lockStockHandler)
	mux.HandleFunc("/unlock_stock", h.unlockStockHandler)
	mux.HandleFunc("/deduct_stock", h.deductStockHandler)
	mux.HandleFunc("/add_stock", h.addStockHandler)
	mux.HandleFunc("/has_stock", h.hasStockHandler)
	mux.HandleFunc("/get_stock", h.getStockHandler)
	mux.HandleFunc("/work_order", h.workOrderHandler)
	mux.HandleFunc("/movements", h.movementsHandler)
}

func extract(r *http.Request) *http.Request {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *StockHandler) lockStockHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	ctx := r.Context()

	var req application.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.LockStock(ctx, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *StockHandler) unlockStockHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	ctx := r.Context()

	orderRef := r.URL.Query().Get("orderRef")
	workOrderID := r.URL.Query().Get("workOrderId")

	var err error
	switch {
	case orderRef != "":
		err = h.service.UnlockStock(ctx, orderRef)
	case workOrderID != "":
		err = h.service.UnlockStockByWorkOrder(ctx, workOrderID)
	default:
		http.Error(w, "orderRef or workOrderId is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *StockHandler) deductStockHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	ctx := r.Context()

	orderRef := r.URL.Query().Get("orderRef")
	if orderRef == "" {
		http.Error(w, "orderRef is required", http.StatusBadRequest)
		return
	}
	if err := h.service.DeductStock(ctx, orderRef); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *StockHandler) addStockHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	ctx := r.Context()

	q := r.URL.Query()
	qty, _ := strconv.Atoi(q.Get("qty"))
	if err := h.service.AddStock(ctx, q.Get("skuId"), q.Get("warehouseId"), qty, q.Get("note")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *StockHandler) hasStockHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	result, err := h.service.HasStock(r.Context(), splitIDs(r.URL.Query().Get("skuIds")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *StockHandler) getStockHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	result, err := h.service.GetStock(r.Context(), splitIDs(r.URL.Query().Get("skuIds")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *StockHandler) workOrderHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	wo, err := h.service.GetWorkOrder(r.Context(), r.URL.Query().Get("orderRef"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, wo)
}

func (h *StockHandler) movementsHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), r.URL.Query().Get("skuId"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, movements)
}

// writeError 把领域错误映射为 HTTP 状态码。
// 业务失败和竞争失败使用可区分的状态码，供调用方决定重试与否。
func (h *StockHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		// 竞争失败，调用方可带退避重试
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrWorkOrderNotFound), errors.Is(err, domain.ErrRecordNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
