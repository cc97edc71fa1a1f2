package response

import (
	"time"

	"cleaning-booking/internal/data/entity"
)

type BookingResponse struct {
	ID                  string               `json:"id"`
	CustomerID          string               `json:"customer_id"`
	ServiceID           string               `json:"service_id"`
	CleanerID           *string              `json:"cleaner_id,omitempty"`
	Date                time.Time            `json:"date"`
	EndTime             time.Time            `json:"end_time"`
	Location            string               `json:"location"`
	Status              entity.BookingStatus `json:"status"`
	CleanerNotes        *string              `json:"cleaner_notes,omitempty"`
	SpecialInstructions *string              `json:"special_instructions,omitempty"`
	AdditionalDetails   *string              `json:"additional_details,omitempty"`
	CancellationReason  *string              `json:"cancellation_reason,omitempty"`
	CanceledBy          *string              `json:"canceled_by,omitempty"`
	PaymentID           *string              `json:"payment_id,omitempty"`
	HasReview           bool                 `json:"has_review"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

type CascadeCancelResponse struct {
	UserID           string `json:"user_id"`
	IsActive         bool   `json:"is_active"`
	CanceledBookings int64  `json:"canceled_bookings"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:                  b.ID.String(),
		CustomerID:          b.CustomerID.String(),
		ServiceID:           b.ServiceID.String(),
		CleanerID:           uuidString(b.CleanerID),
		Date:                b.Date,
		EndTime:             b.EndTime,
		Location:            b.Location,
		Status:              b.Status,
		CleanerNotes:        b.CleanerNotes,
		SpecialInstructions: b.SpecialInstructions,
		AdditionalDetails:   b.AdditionalDetails,
		CancellationReason:  b.CancellationReason,
		CanceledBy:          uuidString(b.CanceledBy),
		PaymentID:           uuidString(b.PaymentID),
		HasReview:           b.HasReview,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}
