package wire

import (
	"cleaning-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireCatalog(r chi.Router, catalogHandler *adaptor.CatalogHandler) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/services", catalogHandler.ListServices)
	r.Get("/api/services/{id}", catalogHandler.GetService)
}
