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

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	// FindByIDForUpdate locks the user row; assignments lock the cleaner
	// this way so they run one at a time per cleaner.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error
}

type userRepository struct {
	db  database.Executor
	log *zap.Logger
}

func NewUserRepository(db database.Executor, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

const userColumns = `id, name, email, password, role, is_active, created_at, updated_at`

func scanUser(row rowScanner) (*entity.User, error) {
	var u entity.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user record into the database
func (ur *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, name, email, password, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := ur.db.Conn(ctx).Exec(ctx, query,
		user.ID,
		user.Name,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", user.Email, ErrDuplicate)
	}
	if err != nil {
		ur.log.Error("Failed to create user",
			zap.Error(err),
			zap.String("email", user.Email),
		)
		return fmt.Errorf("create user %s: %w", user.Email, err)
	}

	return nil
}

func (ur *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return ur.findOne(ctx, "id = $1", "", id)
}

func (ur *userRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return ur.findOne(ctx, "id = $1", "FOR UPDATE", id)
}

func (ur *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return ur.findOne(ctx, "email = $1", "", strings.ToLower(email))
}

func (ur *userRepository) findOne(ctx context.Context, where, lock string, arg any) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE ` + where + `
	` + lock

	user, err := scanUser(ur.db.Conn(ctx).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user",
			zap.Error(err),
			zap.String("where", where),
		)
		return nil, fmt.Errorf("find user: %w", err)
	}

	return user, nil
}

func (ur *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error {
	result, err := ur.db.Conn(ctx).Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, now,
	)
	if err != nil {
		ur.log.Error("Failed to update user status",
			zap.Error(err),
			zap.String("user_id", id.String()),
			zap.Bool("active", active),
		)
		return fmt.Errorf("set user %s active=%t: %w", id, active, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("set user %s active=%t: %w", id, active, pgx.ErrNoRows)
	}

	return nil
}
