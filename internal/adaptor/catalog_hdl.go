package adaptor

import (
	"net/http"

	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	base
	service usecase.CatalogService
}

func NewCatalogHandler(service usecase.CatalogService, debug bool, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		base:    base{log: log.With(zap.String("handler", "catalog")), debug: debug},
		service: service,
	}
}

// ListServices handles GET /api/services (public)
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list services")
		return
	}

	utils.ResponseSuccess(w, "success", services)
}

// GetService handles GET /api/services/{id} (public)
func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get service")
		return
	}

	utils.ResponseSuccess(w, "success", service)
}
