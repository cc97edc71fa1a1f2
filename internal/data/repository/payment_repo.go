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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error)
	Update(ctx context.Context, payment *entity.Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type paymentRepository struct {
	db  database.Executor
	log *zap.Logger
}

func NewPaymentRepository(db database.Executor, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `
	id, user_id, booking_id, amount, currency, method, status, transaction_id,
	capture_id, provider_response, created_at, updated_at`

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var (
		p   entity.Payment
		raw []byte
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.BookingID,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.Status,
		&p.TransactionID,
		&p.CaptureID,
		&raw,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ProviderResponse = raw
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, booking_id, amount, currency, method, status,
		                      transaction_id, capture_id, provider_response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Conn(ctx).Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.BookingID,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Status,
		payment.TransactionID,
		payment.CaptureID,
		jsonbArg(payment.ProviderResponse),
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID, err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "id = $1", "", id)
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "id = $1", "FOR UPDATE", id)
}

// FindByBookingIDForUpdate returns the newest payment of the booking.
func (r *paymentRepository) FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "booking_id = $1 ORDER BY created_at DESC LIMIT 1", "FOR UPDATE", bookingID)
}

// FindByTransactionID does not lock: callers lock the booking first and then
// the payment by ID, the same order Initiate uses.
func (r *paymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error) {
	return r.findOne(ctx, "transaction_id = $1", "", transactionID)
}

func (r *paymentRepository) findOne(ctx context.Context, where, lock string, arg any) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE ` + where + `
	` + lock

	payment, err := scanPayment(r.db.Conn(ctx).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment",
			zap.Error(err),
			zap.String("where", where),
			zap.Any("arg", arg),
		)
		return nil, fmt.Errorf("find payment by %v: %w", arg, err)
	}

	return payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, transaction_id = $3, capture_id = $4, provider_response = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.Conn(ctx).Exec(ctx, query,
		payment.ID,
		payment.Status,
		payment.TransactionID,
		payment.CaptureID,
		jsonbArg(payment.ProviderResponse),
		payment.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return fmt.Errorf("update payment %s: %w", payment.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update payment %s: %w", payment.ID, pgx.ErrNoRows)
	}

	return nil
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete payment",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return fmt.Errorf("delete payment %s: %w", id, err)
	}

	return nil
}

// jsonbArg sends an empty payload as SQL NULL.
func jsonbArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
