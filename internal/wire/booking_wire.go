package wire

import (
	"net/http"

	"cleaning-booking/internal/adaptor"
	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	auth func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	customer := middleware.RequireRole(log, string(entity.RoleCustomer))
	admin := middleware.RequireRole(log, string(entity.RoleAdmin))
	cleaner := middleware.RequireRole(log, string(entity.RoleCleaner))
	customerOrAdmin := middleware.RequireRole(log, string(entity.RoleCustomer), string(entity.RoleAdmin))

	r.Route("/api/booking", func(r chi.Router) {
		r.Use(auth)

		// Any role, scoped to what the caller may see
		r.Get("/", bookingHandler.ListBookings)
		r.Get("/{id}", bookingHandler.GetBooking)

		// ==================== CUSTOMER ROUTES ====================
		r.With(customer).Post("/", bookingHandler.CreateBooking)
		r.With(customer).Put("/{id}", bookingHandler.UpdateBooking)
		r.With(customerOrAdmin).Delete("/{id}", bookingHandler.CancelBooking)

		// ==================== ADMIN ROUTES ====================
		r.With(admin).Put("/{id}/assign-cleaner", bookingHandler.AssignCleaner)

		// ==================== CLEANER ROUTES ====================
		r.With(cleaner).Put("/{id}/complete", bookingHandler.CompleteBooking)
	})
}
