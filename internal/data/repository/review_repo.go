package repository

import (
	"context"
	"errors"
	"fmt"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error)
}

type reviewRepository struct {
	db  database.Executor
	log *zap.Logger
}

func NewReviewRepository(db database.Executor, log *zap.Logger) ReviewRepository {
	return &reviewRepository{
		db:  db,
		log: log.With(zap.String("repository", "review")),
	}
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, customer_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Conn(ctx).Exec(ctx, query,
		review.ID,
		review.BookingID,
		review.CustomerID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("create review for booking %s: %w", review.BookingID, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("booking_id", review.BookingID.String()),
		)
		return fmt.Errorf("create review for booking %s: %w", review.BookingID, err)
	}

	return nil
}

func (r *reviewRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	query := `
		SELECT id, booking_id, customer_id, rating, comment, created_at
		FROM reviews
		WHERE booking_id = $1
	`

	var review entity.Review
	err := r.db.Conn(ctx).QueryRow(ctx, query, bookingID).Scan(
		&review.ID,
		&review.BookingID,
		&review.CustomerID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find review",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find review for booking %s: %w", bookingID, err)
	}

	return &review, nil
}
