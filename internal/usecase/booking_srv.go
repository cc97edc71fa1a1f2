package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/apperror"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// Customer
	CreateBooking(ctx context.Context, actor Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	UpdateBooking(ctx context.Context, actor Actor, bookingID string, req *request.UpdateBookingRequest) (*response.BookingResponse, error)

	// Admin
	AssignCleaner(ctx context.Context, bookingID string, req *request.AssignCleanerRequest) (*response.BookingResponse, error)
	CascadeCancelForCleaner(ctx context.Context, cleanerID uuid.UUID) int64

	// Cleaner
	CompleteBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error)

	// Customer or admin
	CancelBooking(ctx context.Context, actor Actor, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error)

	// Role scoped reads
	GetBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error)
	ListBookings(ctx context.Context, actor Actor, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type bookingService struct {
	repo  *repository.Repository
	tx    Transactor
	pub   EventPublisher
	hours utils.BookingConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewBookingService(repo *repository.Repository, tx Transactor, pub EventPublisher, hours utils.BookingConfig, log *zap.Logger) BookingService {
	return &bookingService{
		repo:  repo,
		tx:    tx,
		pub:   pub,
		hours: hours,
		log:   log.With(zap.String("service", "booking")),
		now:   time.Now,
	}
}

// checkSchedule requires a future date whose wall-clock hour, in the offset
// the client sent, falls inside business hours.
func (s *bookingService) checkSchedule(date time.Time) error {
	if !date.After(s.now()) {
		return apperror.Scheduling("Booking date must be in the future")
	}
	if hour := date.Hour(); hour < s.hours.OpenHour || hour >= s.hours.CloseHour {
		return apperror.Scheduling("Bookings are accepted between %02d:00 and %02d:00", s.hours.OpenHour, s.hours.CloseHour)
	}
	return nil
}

// activeService loads a bookable catalog entry.
func (s *bookingService) activeService(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	service, err := s.repo.Service.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find service %s: %w", id, err)
	}
	if service == nil || service.IsDeleted() {
		return nil, apperror.NotFound("Service not found")
	}
	return service, nil
}

// refreshEndTime recomputes the end time from the booking's current service.
// Soft-deleted services still count here: the booking already exists.
func (s *bookingService) refreshEndTime(ctx context.Context, b *entity.Booking) error {
	service, err := s.repo.Service.FindByID(ctx, b.ServiceID)
	if err != nil {
		return fmt.Errorf("find service %s: %w", b.ServiceID, err)
	}
	if service == nil {
		return apperror.NotFound("Service not found")
	}
	if err := b.RefreshEndTime(service.EstimatedDuration); err != nil {
		return apperror.InvalidState("Service %s has no valid duration", service.ID)
	}
	return nil
}

// ensureCleanerFree locks the cleaner row and fails with a conflict when the
// booking overlaps another blocking booking of the same cleaner.
func (s *bookingService) ensureCleanerFree(ctx context.Context, b *entity.Booking, cleanerID uuid.UUID) (*entity.User, error) {
	cleaner, err := s.repo.User.FindByIDForUpdate(ctx, cleanerID)
	if err != nil {
		return nil, fmt.Errorf("lock cleaner %s: %w", cleanerID, err)
	}
	if cleaner == nil {
		return nil, apperror.NotFound("Cleaner not found")
	}
	if cleaner.Role != entity.RoleCleaner {
		return nil, apperror.Validation("User is not a cleaner", map[string]string{"cleaner_id": "Must reference a cleaner"})
	}
	if !cleaner.IsActive {
		return nil, apperror.Validation("Cleaner is not active", map[string]string{"cleaner_id": "Cleaner is deactivated"})
	}

	conflict, err := s.repo.Booking.FindCleanerConflict(ctx, cleanerID, b.ID, b.Date, b.EndTime)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.log.Info("Cleaner schedule conflict",
			zap.String("booking_id", b.ID.String()),
			zap.String("cleaner_id", cleanerID.String()),
			zap.String("conflicting_booking_id", conflict.ID.String()))
		return nil, apperror.Conflict("Cleaner already has a booking between %s and %s",
			conflict.Date.Format(time.RFC3339), conflict.EndTime.Format(time.RFC3339))
	}

	return cleaner, nil
}

func (s *bookingService) CreateBooking(ctx context.Context, actor Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if err := validateRequest(s.log, "Create booking", req); err != nil {
		return nil, err
	}
	if err := s.checkSchedule(req.Date); err != nil {
		return nil, err
	}

	serviceID, err := parseID(req.ServiceID, "service_id")
	if err != nil {
		return nil, err
	}

	service, err := s.activeService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CustomerID:          actor.ID,
		ServiceID:           service.ID,
		Date:                req.Date,
		Location:            strings.TrimSpace(req.Location),
		Status:              entity.BookingStatusPending,
		SpecialInstructions: req.SpecialInstructions,
		AdditionalDetails:   req.AdditionalDetails,
	}
	if err := booking.RefreshEndTime(service.EstimatedDuration); err != nil {
		return nil, apperror.InvalidState("Service %s has no valid duration", service.ID)
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("customer_id", actor.ID.String()),
		zap.Time("date", booking.Date),
		zap.Time("end_time", booking.EndTime))
	metrics.IncBookingTransition(string(booking.Status))
	publish(ctx, s.pub, s.log, EventBookingCreated, newBookingEvent(booking, now))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) UpdateBooking(ctx context.Context, actor Actor, bookingID string, req *request.UpdateBookingRequest) (*response.BookingResponse, error) {
	if err := validateRequest(s.log, "Update booking", req); err != nil {
		return nil, err
	}

	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, err
	}

	var newServiceID *uuid.UUID
	if req.ServiceID != nil {
		sid, err := parseID(*req.ServiceID, "service_id")
		if err != nil {
			return nil, err
		}
		newServiceID = &sid
	}
	if req.Date != nil {
		if err := s.checkSchedule(*req.Date); err != nil {
			return nil, err
		}
	}

	var booking *entity.Booking
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		booking, err = s.repo.Booking.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return apperror.NotFound("Booking not found")
		}
		if booking.CustomerID != actor.ID {
			return apperror.Unauthorized("Only the customer who made the booking can change it")
		}
		if booking.Status != entity.BookingStatusPending {
			return apperror.InvalidState("Only pending bookings can be changed, booking is %s", booking.Status)
		}

		if newServiceID != nil {
			service, err := s.activeService(ctx, *newServiceID)
			if err != nil {
				return err
			}
			booking.ServiceID = service.ID
		}
		if req.Date != nil {
			booking.Date = *req.Date
		}
		if req.Location != nil {
			booking.Location = strings.TrimSpace(*req.Location)
		}
		if req.SpecialInstructions != nil {
			booking.SpecialInstructions = req.SpecialInstructions
		}
		if req.AdditionalDetails != nil {
			booking.AdditionalDetails = req.AdditionalDetails
		}

		if err := s.refreshEndTime(ctx, booking); err != nil {
			return err
		}
		if booking.CleanerID != nil {
			if _, err := s.ensureCleanerFree(ctx, booking, *booking.CleanerID); err != nil {
				return err
			}
		}

		booking.UpdatedAt = s.now()
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking updated", zap.String("booking_id", booking.ID.String()))
	publish(ctx, s.pub, s.log, EventBookingUpdated, newBookingEvent(booking, booking.UpdatedAt))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) AssignCleaner(ctx context.Context, bookingID string, req *request.AssignCleanerRequest) (*response.BookingResponse, error) {
	if err := validateRequest(s.log, "Assign cleaner", req); err != nil {
		return nil, err
	}

	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, err
	}
	cleanerID, err := parseID(req.CleanerID, "cleaner_id")
	if err != nil {
		return nil, err
	}

	var booking *entity.Booking
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		booking, err = s.repo.Booking.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return apperror.NotFound("Booking not found")
		}
		if booking.Status == entity.BookingStatusCanceled || booking.Status == entity.BookingStatusCompleted {
			return apperror.InvalidState("Cannot assign a cleaner to a %s booking", booking.Status)
		}

		// the end time may be stale if the service duration changed
		if err := s.refreshEndTime(ctx, booking); err != nil {
			return err
		}
		if _, err := s.ensureCleanerFree(ctx, booking, cleanerID); err != nil {
			return err
		}

		booking.CleanerID = &cleanerID
		booking.CleanerNotes = req.Notes
		booking.UpdatedAt = s.now()
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Cleaner assigned",
		zap.String("booking_id", booking.ID.String()),
		zap.String("cleaner_id", cleanerID.String()))
	publish(ctx, s.pub, s.log, EventBookingCleanerAssigned, newBookingEvent(booking, booking.UpdatedAt))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CompleteBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, err
	}

	now := s.now()
	var booking *entity.Booking
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		completed, err := s.repo.Booking.CompleteAssigned(ctx, id, actor.ID, now)
		if err != nil {
			return err
		}
		if !completed {
			return apperror.NotFound("No confirmed booking assigned to you with this ID")
		}

		booking, err = s.repo.Booking.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("booking %s vanished after completion", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking completed",
		zap.String("booking_id", id.String()),
		zap.String("cleaner_id", actor.ID.String()))
	metrics.IncBookingTransition(string(entity.BookingStatusCompleted))
	publish(ctx, s.pub, s.log, EventBookingCompleted, newBookingEvent(booking, now))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor Actor, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error) {
	if err := validateRequest(s.log, "Cancel booking", req); err != nil {
		return nil, err
	}

	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, err
	}

	var (
		booking       *entity.Booking
		failedPayment *entity.Payment
	)
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		booking, err = s.repo.Booking.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return apperror.NotFound("Booking not found")
		}
		if !actor.IsAdmin() && booking.CustomerID != actor.ID {
			return apperror.Unauthorized("You cannot cancel this booking")
		}
		if !booking.Blocking() {
			return apperror.InvalidState("Cannot cancel a %s booking", booking.Status)
		}

		now := s.now()
		failedPayment, err = s.failPendingPayment(ctx, booking, now)
		if err != nil {
			return err
		}

		booking.Status = entity.BookingStatusCanceled
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			booking.CancellationReason = &reason
		}
		canceledBy := actor.ID
		booking.CanceledBy = &canceledBy
		booking.UpdatedAt = now
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	if failedPayment != nil {
		s.log.Info("Pending payment failed with its booking",
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_id", failedPayment.ID.String()))
		metrics.IncPaymentOutcome(string(failedPayment.Method), string(failedPayment.Status))
		publish(ctx, s.pub, s.log, EventPaymentFailed, newPaymentEvent(failedPayment, failedPayment.UpdatedAt))
	}

	s.log.Info("Booking canceled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("canceled_by", actor.ID.String()))
	metrics.IncBookingTransition(string(entity.BookingStatusCanceled))
	publish(ctx, s.pub, s.log, EventBookingCanceled, newBookingEvent(booking, booking.UpdatedAt))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// failPendingPayment fails the booking's pending payment, if any, so a PayPal
// order approved later is never captured. The booking row must be locked.
func (s *bookingService) failPendingPayment(ctx context.Context, booking *entity.Booking, now time.Time) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByBookingIDForUpdate(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil || !payment.CanTransition(entity.PaymentStatusFailed) {
		return nil, nil
	}

	payment.Status = entity.PaymentStatusFailed
	payment.UpdatedAt = now
	if err := s.repo.Payment.Update(ctx, payment); err != nil {
		return nil, err
	}
	if booking.PaymentID != nil && *booking.PaymentID == payment.ID {
		booking.PaymentID = nil
	}
	return payment, nil
}

// CascadeCancelForCleaner cancels the cleaner's upcoming bookings. Failures
// are logged and reported as zero.
func (s *bookingService) CascadeCancelForCleaner(ctx context.Context, cleanerID uuid.UUID) int64 {
	now := s.now()
	count, err := s.repo.Booking.CancelFutureByCleaner(ctx, cleanerID, now)
	if err != nil {
		s.log.Error("Failed to cancel bookings of deactivated cleaner",
			zap.String("cleaner_id", cleanerID.String()),
			zap.Error(err))
		return 0
	}

	s.log.Info("Canceled bookings of deactivated cleaner",
		zap.String("cleaner_id", cleanerID.String()),
		zap.Int64("count", count))
	for i := int64(0); i < count; i++ {
		metrics.IncBookingTransition(string(entity.BookingStatusCanceled))
	}
	publish(ctx, s.pub, s.log, EventCleanerDeactivated, CleanerDeactivatedEvent{
		CleanerID:        cleanerID.String(),
		CanceledBookings: count,
		OccurredAt:       now,
	})

	return count
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperror.NotFound("Booking not found")
	}
	if !canView(actor, booking) {
		return nil, apperror.Unauthorized("You cannot view this booking")
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func canView(actor Actor, b *entity.Booking) bool {
	switch actor.Role {
	case entity.RoleAdmin:
		return true
	case entity.RoleCleaner:
		return b.IsAssignedTo(actor.ID)
	default:
		return b.CustomerID == actor.ID
	}
}

func (s *bookingService) ListBookings(ctx context.Context, actor Actor, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if err := validateRequest(s.log, "List bookings", req); err != nil {
		return nil, err
	}

	filter := repository.BookingFilter{
		Limit:  req.Limit(),
		Offset: req.Offset(),
	}
	switch actor.Role {
	case entity.RoleAdmin:
	case entity.RoleCleaner:
		filter.CleanerID = &actor.ID
	default:
		filter.CustomerID = &actor.ID
	}
	if req.Status != "" {
		status := entity.BookingStatus(req.Status)
		filter.Status = &status
	}

	bookings, total, err := s.repo.Booking.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		data = append(data, response.BookingToResponse(b))
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(data, page, req.Limit(), total), nil
}
