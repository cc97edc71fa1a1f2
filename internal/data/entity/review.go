package entity

import (
	"github.com/google/uuid"
)

type Review struct {
	BaseSimple
	BookingID  uuid.UUID `db:"booking_id"`
	CustomerID uuid.UUID `db:"customer_id"`
	Rating     int       `db:"rating"` // 1-5
	Comment    *string   `db:"comment"`
}
