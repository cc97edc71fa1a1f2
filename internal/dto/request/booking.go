package request

import "time"

// CreateBookingRequest has no end time field: it is always derived from the
// service duration.
type CreateBookingRequest struct {
	ServiceID           string    `json:"service_id" validate:"required,uuid"`
	Date                time.Time `json:"date" validate:"required"`
	Location            string    `json:"location" validate:"required,min=3,max=255"`
	SpecialInstructions *string   `json:"special_instructions,omitempty" validate:"omitempty,max=1000"`
	AdditionalDetails   *string   `json:"additional_details,omitempty" validate:"omitempty,max=1000"`
}

type UpdateBookingRequest struct {
	ServiceID           *string    `json:"service_id,omitempty" validate:"omitempty,uuid"`
	Date                *time.Time `json:"date,omitempty"`
	Location            *string    `json:"location,omitempty" validate:"omitempty,min=3,max=255"`
	SpecialInstructions *string    `json:"special_instructions,omitempty" validate:"omitempty,max=1000"`
	AdditionalDetails   *string    `json:"additional_details,omitempty" validate:"omitempty,max=1000"`
}

type AssignCleanerRequest struct {
	CleanerID string  `json:"cleaner_id" validate:"required,uuid"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ListBookingsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=pending confirmed completed canceled"`
}
