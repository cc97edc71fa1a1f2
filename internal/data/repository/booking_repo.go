package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookingFilter scopes List. Nil fields are not filtered on.
type BookingFilter struct {
	CustomerID *uuid.UUID
	CleanerID  *uuid.UUID
	Status     *entity.BookingStatus
	Limit      int
	Offset     int
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]*entity.Booking, int64, error)
	Update(ctx context.Context, booking *entity.Booking) error

	// Business queries
	FindCleanerConflict(ctx context.Context, cleanerID, excludeID uuid.UUID, start, end time.Time) (*entity.Booking, error)
	CompleteAssigned(ctx context.Context, bookingID, cleanerID uuid.UUID, now time.Time) (bool, error)
	CancelFutureByCleaner(ctx context.Context, cleanerID uuid.UUID, now time.Time) (int64, error)
}

type bookingRepository struct {
	db  database.Executor
	log *zap.Logger
}

func NewBookingRepository(db database.Executor, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `
	b.id, b.customer_id, b.service_id, b.cleaner_id, b.date, b.end_time, b.location, b.status,
	b.cleaner_notes, b.special_instructions, b.additional_details, b.cancellation_reason,
	b.canceled_by, b.payment_id, b.created_at, b.updated_at,
	EXISTS (SELECT 1 FROM reviews rv WHERE rv.booking_id = b.id) AS has_review`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.ServiceID,
		&b.CleanerID,
		&b.Date,
		&b.EndTime,
		&b.Location,
		&b.Status,
		&b.CleanerNotes,
		&b.SpecialInstructions,
		&b.AdditionalDetails,
		&b.CancellationReason,
		&b.CanceledBy,
		&b.PaymentID,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.HasReview,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, customer_id, service_id, cleaner_id, date, end_time, location, status,
		                      special_instructions, additional_details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Conn(ctx).Exec(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.ServiceID,
		booking.CleanerID,
		booking.Date,
		booking.EndTime,
		booking.Location,
		booking.Status,
		booking.SpecialInstructions,
		booking.AdditionalDetails,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("customer_id", booking.CustomerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findByID(ctx, id, "")
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findByID(ctx, id, "FOR UPDATE OF b")
}

func (r *bookingRepository) findByID(ctx context.Context, id uuid.UUID, lock string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.id = $1
	` + lock

	booking, err := scanBooking(r.db.Conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.Bool("locked", lock != ""),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id, err)
	}

	return booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter) ([]*entity.Booking, int64, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, fmt.Sprintf("b.customer_id = $%d", len(args)))
	}
	if filter.CleanerID != nil {
		args = append(args, *filter.CleanerID)
		conds = append(conds, fmt.Sprintf("b.cleaner_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("b.status = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM bookings b ` + where
	if err := r.db.Conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.log.Error("Failed to count bookings", zap.Error(err))
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s
		FROM bookings b
		%s
		ORDER BY b.date DESC
		LIMIT $%d OFFSET $%d`, bookingColumns, where, len(args)-1, len(args))

	rows, err := r.db.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list bookings", zap.Error(err))
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking", zap.Error(err))
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, total, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings
		SET service_id = $2, cleaner_id = $3, date = $4, end_time = $5, location = $6, status = $7,
		    cleaner_notes = $8, special_instructions = $9, additional_details = $10,
		    cancellation_reason = $11, canceled_by = $12, payment_id = $13, updated_at = $14
		WHERE id = $1
	`

	result, err := r.db.Conn(ctx).Exec(ctx, query,
		booking.ID,
		booking.ServiceID,
		booking.CleanerID,
		booking.Date,
		booking.EndTime,
		booking.Location,
		booking.Status,
		booking.CleanerNotes,
		booking.SpecialInstructions,
		booking.AdditionalDetails,
		booking.CancellationReason,
		booking.CanceledBy,
		booking.PaymentID,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update booking %s: %w", booking.ID, pgx.ErrNoRows)
	}

	return nil
}

// FindCleanerConflict returns one blocking booking of the cleaner that
// overlaps [start, end), ignoring excludeID.
func (r *bookingRepository) FindCleanerConflict(ctx context.Context, cleanerID, excludeID uuid.UUID, start, end time.Time) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.cleaner_id = $1
		  AND b.id <> $2
		  AND b.status IN ('pending', 'confirmed')
		  AND b.date < $4
		  AND b.end_time > $3
		ORDER BY b.date
		LIMIT 1
	`

	booking, err := scanBooking(r.db.Conn(ctx).QueryRow(ctx, query, cleanerID, excludeID, start, end))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to check cleaner availability",
			zap.Error(err),
			zap.String("cleaner_id", cleanerID.String()),
			zap.Time("start", start),
			zap.Time("end", end),
		)
		return nil, fmt.Errorf("find conflict for cleaner %s: %w", cleanerID, err)
	}

	return booking, nil
}

// CompleteAssigned marks the booking completed only if it is confirmed and
// assigned to cleanerID. It reports whether a row changed.
func (r *bookingRepository) CompleteAssigned(ctx context.Context, bookingID, cleanerID uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = $3
		WHERE id = $1 AND cleaner_id = $2 AND status = 'confirmed'
	`

	result, err := r.db.Conn(ctx).Exec(ctx, query, bookingID, cleanerID, now)
	if err != nil {
		r.log.Error("Failed to complete booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("cleaner_id", cleanerID.String()),
		)
		return false, fmt.Errorf("complete booking %s: %w", bookingID, err)
	}

	return result.RowsAffected() == 1, nil
}

// CancelFutureByCleaner cancels every upcoming blocking booking of the cleaner.
func (r *bookingRepository) CancelFutureByCleaner(ctx context.Context, cleanerID uuid.UUID, now time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'canceled', cancellation_reason = $3, updated_at = $2
		WHERE cleaner_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND date > $2
	`

	result, err := r.db.Conn(ctx).Exec(ctx, query, cleanerID, now, entity.ReasonCleanerDeactivated)
	if err != nil {
		r.log.Error("Failed to cancel cleaner bookings",
			zap.Error(err),
			zap.String("cleaner_id", cleanerID.String()),
		)
		return 0, fmt.Errorf("cancel bookings of cleaner %s: %w", cleanerID, err)
	}

	return result.RowsAffected(), nil
}
