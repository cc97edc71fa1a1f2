package usecase

import (
	"context"
	"errors"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewService interface {
	CreateReview(ctx context.Context, actor Actor, req *request.CreateReviewRequest) (*response.ReviewResponse, error)
}

type reviewService struct {
	repo *repository.Repository
	tx   Transactor
	log  *zap.Logger
	now  func() time.Time
}

func NewReviewService(repo *repository.Repository, tx Transactor, log *zap.Logger) ReviewService {
	return &reviewService{
		repo: repo,
		tx:   tx,
		log:  log.With(zap.String("service", "review")),
		now:  time.Now,
	}
}

// CreateReview records the customer's single review of a completed booking.
func (s *reviewService) CreateReview(ctx context.Context, actor Actor, req *request.CreateReviewRequest) (*response.ReviewResponse, error) {
	if err := validateRequest(s.log, "Create review", req); err != nil {
		return nil, err
	}

	bookingID, err := parseID(req.BookingID, "booking_id")
	if err != nil {
		return nil, err
	}

	var review *entity.Review
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		booking, err := s.repo.Booking.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return apperror.NotFound("Booking not found")
		}
		if booking.CustomerID != actor.ID {
			return apperror.Unauthorized("You can only review your own bookings")
		}
		if booking.Status != entity.BookingStatusCompleted {
			return apperror.InvalidState("Only completed bookings can be reviewed")
		}

		existing, err := s.repo.Review.FindByBookingID(ctx, bookingID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Conflict("Booking already reviewed")
		}

		review = &entity.Review{
			BaseSimple: entity.BaseSimple{
				ID:        uuid.New(),
				CreatedAt: s.now(),
			},
			BookingID:  bookingID,
			CustomerID: actor.ID,
			Rating:     req.Rating,
			Comment:    req.Comment,
		}
		if err := s.repo.Review.Create(ctx, review); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.Conflict("Booking already reviewed")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.Int("rating", review.Rating))

	resp := response.ReviewToResponse(review)
	return &resp, nil
}
