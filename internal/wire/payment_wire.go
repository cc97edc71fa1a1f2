package wire

import (
	"net/http"

	"cleaning-booking/internal/adaptor"
	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	auth func(http.Handler) http.Handler,
	limiter *middleware.RateLimiter,
	log *zap.Logger,
) {
	r.Route("/api/payment", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		// PayPal sends the payer's browser back here without our cookie
		r.Get("/paypal/capture", paymentHandler.PayPalCapture)
		r.Get("/paypal/cancel", paymentHandler.PayPalCancel)

		// ==================== PROTECTED ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.With(limiter.Limit, middleware.RequireRole(log, string(entity.RoleCustomer))).
				Post("/", paymentHandler.InitiatePayment)
			r.Get("/{id}", paymentHandler.GetPayment)

			// ==================== ADMIN ROUTES ====================
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(log, string(entity.RoleAdmin)))

				r.Put("/{id}/verify-cash", paymentHandler.VerifyCashPayment)
				r.Post("/{id}/refund", paymentHandler.RefundPayment)
			})
		})
	})
}
