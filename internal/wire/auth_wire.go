package wire

import (
	"net/http"

	"cleaning-booking/internal/adaptor"
	"cleaning-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	auth func(http.Handler) http.Handler,
	limiter *middleware.RateLimiter,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Post("/api/auth/register", authHandler.Register)
	r.With(limiter.Limit).Post("/api/auth/login", authHandler.Login)

	// ==================== PROTECTED ROUTES ====================
	r.With(auth).Post("/api/auth/logout", authHandler.Logout)
}
