package usecase

import (
	"context"

	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/apperror"

	"go.uber.org/zap"
)

// CatalogService is the read-only view of the service catalog.
type CatalogService interface {
	ListServices(ctx context.Context) ([]response.ServiceResponse, error)
	GetService(ctx context.Context, serviceID string) (*response.ServiceResponse, error)
}

type catalogService struct {
	services repository.ServiceRepository
	currency string
	log      *zap.Logger
}

func NewCatalogService(services repository.ServiceRepository, currency string, log *zap.Logger) CatalogService {
	return &catalogService{
		services: services,
		currency: currency,
		log:      log.With(zap.String("service", "catalog")),
	}
}

func (s *catalogService) ListServices(ctx context.Context) ([]response.ServiceResponse, error) {
	services, err := s.services.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]response.ServiceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, response.ServiceToResponse(svc, s.currency))
	}
	return out, nil
}

func (s *catalogService) GetService(ctx context.Context, serviceID string) (*response.ServiceResponse, error) {
	id, err := parseID(serviceID, "service_id")
	if err != nil {
		return nil, err
	}

	svc, err := s.services.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc == nil || svc.IsDeleted() {
		return nil, apperror.NotFound("Service not found")
	}

	resp := response.ServiceToResponse(svc, s.currency)
	return &resp, nil
}
