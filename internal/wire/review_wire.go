package wire

import (
	"net/http"

	"cleaning-booking/internal/adaptor"
	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReview(
	r chi.Router,
	reviewHandler *adaptor.ReviewHandler,
	auth func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	// ==================== CUSTOMER ROUTES ====================
	r.With(auth, middleware.RequireRole(log, string(entity.RoleCustomer))).
		Post("/api/reviews", reviewHandler.CreateReview)
}
