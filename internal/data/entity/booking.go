package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCanceled  BookingStatus = "canceled"
)

// Cancellation reasons written by the system rather than by a user.
const (
	ReasonCleanerDeactivated = "Cleaner deactivated"
	ReasonPaymentRefunded    = "Payment refunded"
)

var ErrInvalidDuration = errors.New("service duration must be positive")

type Booking struct {
	BaseNoDelete
	CustomerID          uuid.UUID     `db:"customer_id"`
	ServiceID           uuid.UUID     `db:"service_id"`
	CleanerID           *uuid.UUID    `db:"cleaner_id"`
	Date                time.Time     `db:"date"`
	EndTime             time.Time     `db:"end_time"`
	Location            string        `db:"location"`
	Status              BookingStatus `db:"status"`
	CleanerNotes        *string       `db:"cleaner_notes"`
	SpecialInstructions *string       `db:"special_instructions"`
	AdditionalDetails   *string       `db:"additional_details"`
	CancellationReason  *string       `db:"cancellation_reason"`
	CanceledBy          *uuid.UUID    `db:"canceled_by"`
	PaymentID           *uuid.UUID    `db:"payment_id"`
	HasReview           bool          `db:"has_review"`
}

// RefreshEndTime derives EndTime from Date and the service duration in hours.
func (b *Booking) RefreshEndTime(durationHours float64) error {
	if durationHours <= 0 {
		return ErrInvalidDuration
	}
	b.EndTime = b.Date.Add(time.Duration(durationHours * float64(time.Hour)))
	return nil
}

// Blocking reports whether the booking occupies its cleaner's calendar.
func (b *Booking) Blocking() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// Overlaps compares half-open intervals [Date, EndTime).
func (b *Booking) Overlaps(other *Booking) bool {
	return b.Date.Before(other.EndTime) && b.EndTime.After(other.Date)
}

func (b *Booking) IsAssignedTo(cleanerID uuid.UUID) bool {
	return b.CleanerID != nil && *b.CleanerID == cleanerID
}
