package adaptor

import (
	"net/http"
	"net/url"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/apperror"
	"cleaning-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Frontend pages the PayPal redirects land on.
const (
	paymentSuccessPage  = "/payment/success"
	paymentCanceledPage = "/payment/canceled"
	paymentErrorPage    = "/payment/error"
)

type PaymentHandler struct {
	base
	service     usecase.PaymentService
	frontendURL string
}

func NewPaymentHandler(service usecase.PaymentService, app utils.AppConfig, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		base:        base{log: log.With(zap.String("handler", "payment")), debug: app.Debug},
		service:     service,
		frontendURL: app.FrontendURL,
	}
}

// InitiatePayment handles POST /api/payment (customer)
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	var req request.InitiatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.InitiatePayment(r.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(w, err, "initiate payment")
		return
	}

	utils.ResponseCreated(w, "Payment initiated", resp)
}

// GetPayment handles GET /api/payment/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// PayPalCapture handles GET /api/payment/paypal/capture?token=<order id>.
// The payer's browser arrives here from PayPal, so every outcome is a
// redirect to the frontend.
func (h *PaymentHandler) PayPalCapture(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("token")

	payment, err := h.service.HandleProviderCapture(r.Context(), orderID)
	if err != nil {
		h.redirectError(w, r, err, "capture paypal payment")
		return
	}

	h.redirect(w, r, paymentSuccessPage, url.Values{
		"payment_id": {payment.ID},
		"booking_id": {payment.BookingID},
	})
}

// PayPalCancel handles GET /api/payment/paypal/cancel?token=<order id>
func (h *PaymentHandler) PayPalCancel(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("token")

	payment, err := h.service.HandleProviderCancel(r.Context(), orderID)
	if err != nil {
		h.redirectError(w, r, err, "cancel paypal payment")
		return
	}

	h.redirect(w, r, paymentCanceledPage, url.Values{
		"payment_id": {payment.ID},
		"booking_id": {payment.BookingID},
	})
}

// VerifyCashPayment handles PUT /api/payment/{id}/verify-cash (admin)
func (h *PaymentHandler) VerifyCashPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.VerifyCashPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "verify cash payment")
		return
	}

	utils.ResponseSuccess(w, "Cash payment verified", payment)
}

// RefundPayment handles POST /api/payment/{id}/refund (admin)
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	payment, err := h.service.RefundPayment(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "refund payment")
		return
	}

	utils.ResponseSuccess(w, "Payment refunded", payment)
}

func (h *PaymentHandler) redirect(w http.ResponseWriter, r *http.Request, page string, params url.Values) {
	target := h.frontendURL + page
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *PaymentHandler) redirectError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal || kind == apperror.KindProvider {
		h.log.Error("Failed to "+operation, zap.Error(err))
	} else {
		h.log.Warn(operation+" rejected", zap.String("kind", string(kind)), zap.String("reason", err.Error()))
	}

	h.redirect(w, r, paymentErrorPage, url.Values{"reason": {string(kind)}})
}
