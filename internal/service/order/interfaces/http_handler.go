// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"mall/internal/pkg/logger"
	"mall/internal/service/order/application"
	"mall/internal/service/order/domain"
)

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/create_order", h.createOrderHandler)
	mux.HandleFunc("/cancel_order", h.cancelOrderHandler)
	mux.HandleFunc("/payment_callback", h.paymentCallbackHandler)
	mux.HandleFunc("/ship_order", h.shipOrderHandler)
	mux.HandleFunc("/confirm_receipt", h.confirmReceiptHandler)
	mux.HandleFunc("/get_order", h.getOrderHandler)
}

func extract(r *http.Request) *http.Request {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *OrderHandler) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	ctx := r.Context()

	var cmd domain.CreateOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if cmd.BuyerID == "" || len(cmd.Lines) == 0 {
		http.Error(w, "buyerId and lines are required", http.StatusBadRequest)
		return
	}

	result, err := h.service.CreateOrder(ctx, &cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *OrderHandler) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	q := r.URL.Query()

	orderRef := q.Get("orderRef")
	if orderRef == "" {
		http.Error(w, "orderRef is required", http.StatusBadRequest)
		return
	}
	reason := q.Get("reason")
	if reason == "" {
		reason = "cancelled by buyer"
	}

	if err := h.service.CancelOrder(r.Context(), orderRef, "buyer", reason); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *OrderHandler) paymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	q := r.URL.Query()

	orderRef := q.Get("orderRef")
	transactionRef := q.Get("transactionRef")
	if orderRef == "" || transactionRef == "" {
		http.Error(w, "orderRef and transactionRef are required", http.StatusBadRequest)
		return
	}

	if err := h.service.PaymentCallback(r.Context(), orderRef, q.Get("payType"), transactionRef); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *OrderHandler) shipOrderHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	orderRef := r.URL.Query().Get("orderRef")
	if orderRef == "" {
		http.Error(w, "orderRef is required", http.StatusBadRequest)
		return
	}
	if err := h.service.ShipOrder(r.Context(), orderRef, "operator"); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *OrderHandler) confirmReceiptHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	orderRef := r.URL.Query().Get("orderRef")
	if orderRef == "" {
		http.Error(w, "orderRef is required", http.StatusBadRequest)
		return
	}
	if err := h.service.ConfirmReceipt(r.Context(), orderRef, "buyer"); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *OrderHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	orderRef := r.URL.Query().Get("orderRef")
	if orderRef == "" {
		http.Error(w, "orderRef is required", http.StatusBadRequest)
		return
	}
	view, err := h.service.GetOrder(r.Context(), orderRef)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, view)
}

// writeError 把领域错误映射为 HTTP 状态码。
func (h *OrderHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrDuplicateSubmission):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrPriceChanged),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrDiscountFailed),
		errors.Is(err, domain.ErrPointsFailed),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrInvalidTransition):
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
