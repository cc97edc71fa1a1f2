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

// ServiceRepository is the read side of the service catalog.
type ServiceRepository interface {
	// FindByID also returns soft-deleted services; callers check IsDeleted.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error)
	FindAll(ctx context.Context) ([]*entity.Service, error)
}

type serviceRepository struct {
	db  database.Executor
	log *zap.Logger
}

func NewServiceRepository(db database.Executor, log *zap.Logger) ServiceRepository {
	return &serviceRepository{
		db:  db,
		log: log.With(zap.String("repository", "service")),
	}
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	query := `
		SELECT id, name, description, base_price, estimated_duration, created_at, updated_at, deleted_at
		FROM services
		WHERE id = $1
	`

	var service entity.Service
	err := r.db.Conn(ctx).QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.Name,
		&service.Description,
		&service.BasePrice,
		&service.EstimatedDuration,
		&service.CreatedAt,
		&service.UpdatedAt,
		&service.DeletedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service by ID",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return nil, fmt.Errorf("find service %s: %w", id, err)
	}

	return &service, nil
}

func (r *serviceRepository) FindAll(ctx context.Context) ([]*entity.Service, error) {
	query := `
		SELECT id, name, description, base_price, estimated_duration, created_at, updated_at, deleted_at
		FROM services
		WHERE deleted_at IS NULL
		ORDER BY name
	`

	rows, err := r.db.Conn(ctx).Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to list services", zap.Error(err))
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []*entity.Service
	for rows.Next() {
		var service entity.Service
		if err := rows.Scan(
			&service.ID,
			&service.Name,
			&service.Description,
			&service.BasePrice,
			&service.EstimatedDuration,
			&service.CreatedAt,
			&service.UpdatedAt,
			&service.DeletedAt,
		); err != nil {
			r.log.Error("Failed to scan service", zap.Error(err))
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, &service)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return services, nil
}
