package adaptor

import (
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	base
	service usecase.BookingService
}

func NewBookingHandler(service usecase.BookingService, debug bool, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		base:    base{log: log.With(zap.String("handler", "booking")), debug: debug},
		service: service,
	}
}

// CreateBooking handles POST /api/booking (customer)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	var req request.CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(w, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "Booking created", booking)
}

// ListBookings handles GET /api/booking. Results are scoped to the caller's
// role.
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := &request.ListBookingsRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		},
		Status: query.Get("status"),
	}

	bookings, err := h.service.ListBookings(r.Context(), caller, req)
	if err != nil {
		h.handleServiceError(w, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/booking/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// UpdateBooking handles PUT /api/booking/{id} (customer)
func (h *BookingHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	var req request.UpdateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	booking, err := h.service.UpdateBooking(r.Context(), caller, chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err, "update booking")
		return
	}

	utils.ResponseSuccess(w, "Booking updated", booking)
}

// AssignCleaner handles PUT /api/booking/{id}/assign-cleaner (admin)
func (h *BookingHandler) AssignCleaner(w http.ResponseWriter, r *http.Request) {
	var req request.AssignCleanerRequest
	if !h.decode(w, r, &req) {
		return
	}

	booking, err := h.service.AssignCleaner(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err, "assign cleaner")
		return
	}

	utils.ResponseSuccess(w, "Cleaner assigned", booking)
}

// CompleteBooking handles PUT /api/booking/{id}/complete (cleaner)
func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	booking, err := h.service.CompleteBooking(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "complete booking")
		return
	}

	utils.ResponseSuccess(w, "Booking completed", booking)
}

// CancelBooking handles DELETE /api/booking/{id} (customer, admin). The
// reason body is optional.
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	var req request.CancelBookingRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	booking, err := h.service.CancelBooking(r.Context(), caller, chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "Booking canceled", booking)
}
