package usecase

import (
	"context"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/provider/paypal"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transactor runs fn as one unit of work: everything fn writes through the
// repositories commits together or not at all.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher delivers domain events. Publishing is best-effort and
// happens after commit.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// PaymentProvider is the redirect-based payment gateway.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, req paypal.OrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Capture, error)
	RefundCapture(ctx context.Context, captureID string, amount float64, currency string) (*paypal.Refund, error)
}

// Actor is the authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role entity.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}

type Service struct {
	Auth    AuthService
	User    UserService
	Catalog CatalogService
	Booking BookingService
	Payment PaymentService
	Review  ReviewService
}

// Deps groups the collaborators every service is built from. Provider and
// Publisher may be nil.
type Deps struct {
	Repo      *repository.Repository
	Tx        Transactor
	Provider  PaymentProvider
	Publisher EventPublisher
	Config    *utils.Config
	Log       *zap.Logger
}

func NewService(d Deps) *Service {
	booking := NewBookingService(d.Repo, d.Tx, d.Publisher, d.Config.Booking, d.Log)

	return &Service{
		Auth:    NewAuthService(d.Repo.User, d.Config.JWT, d.Log),
		User:    NewUserService(d.Repo.User, booking, d.Log),
		Catalog: NewCatalogService(d.Repo.Service, d.Config.Currency.Local, d.Log),
		Booking: booking,
		Payment: NewPaymentService(d.Repo, d.Tx, d.Provider, d.Publisher, d.Config, d.Log),
		Review:  NewReviewService(d.Repo, d.Tx, d.Log),
	}
}

// publish sends an event without failing the caller; the state change it
// describes is already committed.
func publish(ctx context.Context, pub EventPublisher, log *zap.Logger, key string, payload any) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := pub.PublishJSON(ctx, key, payload); err != nil {
		log.Warn("Failed to publish event", zap.String("event", key), zap.Error(err))
	}
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalidID(field)
	}
	return id, nil
}
