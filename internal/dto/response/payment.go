package response

import (
	"encoding/json"
	"time"

	"cleaning-booking/internal/data/entity"
)

type PaymentResponse struct {
	ID               string               `json:"id"`
	BookingID        string               `json:"booking_id"`
	UserID           string               `json:"user_id"`
	Amount           float64              `json:"amount"`
	Currency         string               `json:"currency"`
	Method           entity.PaymentMethod `json:"payment_method"`
	Status           entity.PaymentStatus `json:"status"`
	TransactionID    *string              `json:"transaction_id,omitempty"`
	ProviderResponse json.RawMessage      `json:"provider_response,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// InitiatePaymentResponse carries the approval link for redirect-based methods.
type InitiatePaymentResponse struct {
	Payment     PaymentResponse `json:"payment"`
	ApprovalURL string          `json:"approval_url,omitempty"`
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID.String(),
		BookingID:        p.BookingID.String(),
		UserID:           p.UserID.String(),
		Amount:           p.Amount,
		Currency:         p.Currency,
		Method:           p.Method,
		Status:           p.Status,
		TransactionID:    p.TransactionID,
		ProviderResponse: p.ProviderResponse,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
