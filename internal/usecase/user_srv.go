package usecase

import (
	"context"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/apperror"

	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, actor Actor) (*response.UserResponse, error)
	// UpdateStatus activates or deactivates a user. Deactivating a cleaner
	// cancels the cleaner's upcoming bookings.
	UpdateStatus(ctx context.Context, userID string, req *request.UpdateUserStatusRequest) (*response.CascadeCancelResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	bookings BookingService
	log      *zap.Logger
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository, bookings BookingService, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		bookings: bookings,
		log:      log.With(zap.String("service", "user")),
		now:      time.Now,
	}
}

func (us *userService) GetProfile(ctx context.Context, actor Actor) (*response.UserResponse, error) {
	user, err := us.userRepo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) UpdateStatus(ctx context.Context, userID string, req *request.UpdateUserStatusRequest) (*response.CascadeCancelResponse, error) {
	if err := validateRequest(us.log, "Update user status", req); err != nil {
		return nil, err
	}

	id, err := parseID(userID, "user_id")
	if err != nil {
		return nil, err
	}

	user, err := us.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	active := *req.IsActive
	if err := us.userRepo.SetActive(ctx, id, active, us.now()); err != nil {
		return nil, err
	}

	us.log.Info("User status changed",
		zap.String("user_id", id.String()),
		zap.Bool("is_active", active))

	resp := &response.CascadeCancelResponse{
		UserID:   id.String(),
		IsActive: active,
	}
	if !active && user.Role == entity.RoleCleaner {
		resp.CanceledBookings = us.bookings.CascadeCancelForCleaner(ctx, id)
	}

	return resp, nil
}
