// internal/service/promotion/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"mall/internal/pkg/constants"
	"mall/internal/pkg/logger"
	"mall/internal/service/promotion/application"
	"mall/internal/service/promotion/domain"
)

// PromotionHandler 封装了优惠券服务的 HTTP 处理器。
type PromotionHandler struct {
	service *application.PromotionService
}

func NewPromotionHandler(service *application.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

func (h *PromotionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc(constants.PromotionQuotePath, h.quoteHandler)
	mux.HandleFunc(constants.PromotionConsumePath, h.consumeHandler)
	mux.HandleFunc(constants.PromotionReleasePath, h.releaseHandler)
	mux.HandleFunc("/grant_coupon", h.grantHandler)
}

func extract(r *http.Request) *http.Request {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *PromotionHandler) quoteHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	q := r.URL.Query()
	subtotal, err := strconv.ParseInt(q.Get("subtotal"), 10, 64)
	if err != nil {
		http.Error(w, "invalid subtotal", http.StatusBadRequest)
		return
	}

	amount, err := h.service.Quote(r.Context(), q.Get("discountId"), q.Get("shopperId"), subtotal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, application.QuoteResult{Amount: amount})
}

type outcomeRequest struct {
	DiscountID string `json:"discountId"`
	ShopperID  string `json:"shopperId"`
}

func (h *PromotionHandler) consumeHandler(w http.ResponseWriter, r *http.Request) {
	h.outcome(w, r, h.service.Consume)
}

func (h *PromotionHandler) releaseHandler(w http.ResponseWriter, r *http.Request) {
	h.outcome(w, r, h.service.Release)
}

func (h *PromotionHandler) outcome(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, code, shopperID string) (bool, error)) {
	r = extract(r)

	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ok, err := op(r.Context(), req.DiscountID, req.ShopperID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, application.OutcomeResult{Success: ok})
}

func (h *PromotionHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrCouponNotFound), errors.Is(err, domain.ErrTemplateNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrNotOwner), errors.Is(err, domain.ErrNotUsable):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *PromotionHandler) grantHandler(w http.ResponseWriter, r *http.Request) {
	r = extract(r)
	var req struct {
		TemplateID   int64  `json:"templateId"`
		ShopperID    string `json:"shopperId"`
		ValidityDays int    `json:"validityDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Grant(r.Context(), req.TemplateID, req.ShopperID,
		time.Duration(req.ValidityDays)*24*time.Hour)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
