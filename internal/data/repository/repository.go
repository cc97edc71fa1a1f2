package repository

import (
	"time"

	"cleaning-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User    UserRepository
	Service ServiceRepository
	Booking BookingRepository
	Payment PaymentRepository
	Review  ReviewRepository
}

// NewRepository builds every repository on db. When cache is non-nil the
// service catalog reads through it.
func NewRepository(db database.Executor, log *zap.Logger, cache CacheStore, cacheTTL time.Duration) *Repository {
	services := NewServiceRepository(db, log)
	if cache != nil {
		services = NewCachedServiceRepository(services, cache, cacheTTL, log)
	}

	return &Repository{
		User:    NewUserRepository(db, log),
		Service: services,
		Booking: NewBookingRepository(db, log),
		Payment: NewPaymentRepository(db, log),
		Review:  NewReviewRepository(db, log),
	}
}
