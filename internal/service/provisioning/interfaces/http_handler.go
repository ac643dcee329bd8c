// internal/service/provisioning/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"bazaar/internal/service/provisioning/application"
	"bazaar/internal/service/provisioning/domain"
)

// CatalogHandler 封装了目录开通服务的 HTTP 处理器。
type CatalogHandler struct {
	provisioner *application.CatalogProvisioner
}

// NewCatalogHandler 创建一个新的 HTTP 处理器实例。
func NewCatalogHandler(provisioner *application.CatalogProvisioner) *CatalogHandler {
	return &CatalogHandler{provisioner: provisioner}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/create_product", h.handleCreateProduct)
	mux.HandleFunc("/create_category", h.handleCreateCategory)
	mux.HandleFunc("/create_collection", h.handleCreateCollection)
	mux.HandleFunc("/delete_product", h.handleDeleteProduct)
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var spec domain.ProductSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.provisioner.CreateProduct(ctx, &spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var spec domain.CategorySpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.provisioner.CreateCategory(ctx, &spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *CatalogHandler) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var spec domain.CollectionSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.provisioner.CreateCollection(ctx, &spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req struct {
		ProductID string `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.provisioner.DeleteProduct(ctx, req.ProductID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// writeError 根据错误类型映射 HTTP 状态码。开通失败统一 502：
// 补偿已执行，调用方可以整体重试。
func writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError

	var ve *domain.ValidationError
	var nfe *domain.NotFoundError
	var pe *domain.ProvisioningError
	payload := map[string]string{"error": err.Error()}

	switch {
	case errors.As(err, &ve):
		statusCode = http.StatusBadRequest
	case errors.As(err, &nfe):
		statusCode = http.StatusNotFound
	case errors.As(err, &pe):
		statusCode = http.StatusBadGateway
		payload["operation"] = pe.Operation
		payload["step"] = pe.Step
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
