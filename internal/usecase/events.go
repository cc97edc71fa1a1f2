package usecase

import (
	"time"

	"cleaning-booking/internal/data/entity"
)

// Routing keys of the events published to the events exchange.
const (
	EventBookingCreated         = "booking.created"
	EventBookingUpdated         = "booking.updated"
	EventBookingCleanerAssigned = "booking.cleaner_assigned"
	EventBookingCompleted       = "booking.completed"
	EventBookingCanceled        = "booking.canceled"
	EventCleanerDeactivated     = "cleaner.deactivated"
	EventPaymentInitiated       = "payment.initiated"
	EventPaymentCompleted       = "payment.completed"
	EventPaymentFailed          = "payment.failed"
	EventPaymentRefunded        = "payment.refunded"
)

type BookingEvent struct {
	BookingID  string               `json:"booking_id"`
	CustomerID string               `json:"customer_id"`
	CleanerID  string               `json:"cleaner_id,omitempty"`
	Status     entity.BookingStatus `json:"status"`
	Date       time.Time            `json:"date"`
	EndTime    time.Time            `json:"end_time"`
	OccurredAt time.Time            `json:"occurred_at"`
}

func newBookingEvent(b *entity.Booking, now time.Time) BookingEvent {
	ev := BookingEvent{
		BookingID:  b.ID.String(),
		CustomerID: b.CustomerID.String(),
		Status:     b.Status,
		Date:       b.Date,
		EndTime:    b.EndTime,
		OccurredAt: now,
	}
	if b.CleanerID != nil {
		ev.CleanerID = b.CleanerID.String()
	}
	return ev
}

type PaymentEvent struct {
	PaymentID  string               `json:"payment_id"`
	BookingID  string               `json:"booking_id"`
	Method     entity.PaymentMethod `json:"method"`
	Status     entity.PaymentStatus `json:"status"`
	Amount     float64              `json:"amount"`
	Currency   string               `json:"currency"`
	OccurredAt time.Time            `json:"occurred_at"`
}

func newPaymentEvent(p *entity.Payment, now time.Time) PaymentEvent {
	return PaymentEvent{
		PaymentID:  p.ID.String(),
		BookingID:  p.BookingID.String(),
		Method:     p.Method,
		Status:     p.Status,
		Amount:     p.Amount,
		Currency:   p.Currency,
		OccurredAt: now,
	}
}

type CleanerDeactivatedEvent struct {
	CleanerID        string    `json:"cleaner_id"`
	CanceledBookings int64     `json:"canceled_bookings"`
	OccurredAt       time.Time `json:"occurred_at"`
}
