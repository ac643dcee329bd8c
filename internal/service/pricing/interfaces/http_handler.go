// internal/service/pricing/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"bazaar/internal/service/pricing/application"
	"bazaar/internal/service/pricing/domain"
)

// PricingHandler 封装了定价服务的 HTTP 处理器。
type PricingHandler struct {
	service *application.PricingService
}

// NewPricingHandler 创建一个新的 HTTP 处理器实例。
func NewPricingHandler(service *application.PricingService) *PricingHandler {
	return &PricingHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *PricingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/validate_coupon", h.handleValidateCoupon)
	mux.HandleFunc("/quote_price", h.handleQuotePrice)
	mux.HandleFunc("/redeem_coupon", h.handleRedeemCoupon)
	mux.HandleFunc("/create_coupon_code", h.handleCreateCouponCode)
	mux.HandleFunc("/create_discount", h.handleCreateDiscount)
	mux.HandleFunc("/set_discount_status", h.handleSetDiscountStatus)
	mux.HandleFunc("/delete_discount", h.handleDeleteDiscount)
}

func (h *PricingHandler) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req application.ValidateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.ValidateCoupon(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (h *PricingHandler) handleQuotePrice(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req application.QuotePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.QuotePrice(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (h *PricingHandler) handleRedeemCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req application.RedeemCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.RedeemCoupon(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (h *PricingHandler) handleCreateCouponCode(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req application.CreateCouponCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateCouponCode(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (h *PricingHandler) handleCreateDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var d domain.Discount
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.CreateDiscount(ctx, &d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"id": d.ID})
}

func (h *PricingHandler) handleSetDiscountStatus(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SetDiscountStatus(ctx, req.ID, req.Active); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *PricingHandler) handleDeleteDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteDiscount(ctx, req.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// writeError 根据错误分类映射 HTTP 状态码。
func writeError(w http.ResponseWriter, err error) {
	var de *domain.Error
	statusCode := http.StatusInternalServerError
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindValidation:
			statusCode = http.StatusBadRequest
		case domain.KindNotFound:
			statusCode = http.StatusNotFound
		case domain.KindRuleViolation:
			statusCode = http.StatusForbidden // 请求有效，但规则拒绝执行
		case domain.KindExternal:
			statusCode = http.StatusBadGateway
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	payload := map[string]string{"error": err.Error()}
	if de != nil {
		payload["kind"] = string(de.Kind)
		if de.Reason != domain.ReasonNone {
			payload["reason"] = string(de.Reason)
		}
	}
	json.NewEncoder(w).Encode(payload)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
