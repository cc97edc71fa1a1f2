package wire

import (
	"net/http"

	"cleaning-booking/internal/adaptor"
	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireUser(
	r chi.Router,
	userHandler *adaptor.UserHandler,
	auth func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES ====================
	r.With(auth).Get("/api/user/profile", userHandler.GetProfile)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/users", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.RequireRole(log, string(entity.RoleAdmin)))

		// PUT /api/admin/users/{id}/status - activate or deactivate a user
		r.Put("/{id}/status", userHandler.UpdateStatus)
	})
}
