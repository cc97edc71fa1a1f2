package entity

import (
	"encoding/json"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "credit_card"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodCash   PaymentMethod = "cash"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

type Payment struct {
	BaseNoDelete
	UserID           uuid.UUID       `db:"user_id"`
	BookingID        uuid.UUID       `db:"booking_id"`
	Amount           float64         `db:"amount"`
	Currency         string          `db:"currency"`
	Method           PaymentMethod   `db:"method"`
	Status           PaymentStatus   `db:"status"`
	TransactionID    *string         `db:"transaction_id"`
	CaptureID        *string         `db:"capture_id"`
	ProviderResponse json.RawMessage `db:"provider_response"`
}

// CanTransition reports whether moving to next is allowed.
func (p *Payment) CanTransition(next PaymentStatus) bool {
	for _, s := range paymentTransitions[p.Status] {
		if s == next {
			return true
		}
	}
	return false
}
