package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/apperror"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
}

type authService struct {
	users repository.UserRepository
	jwt   utils.JWTConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewAuthService(users repository.UserRepository, jwt utils.JWTConfig, log *zap.Logger) AuthService {
	return &authService{
		users: users,
		jwt:   jwt,
		log:   log.With(zap.String("service", "auth")),
		now:   time.Now,
	}
}

// Register creates a customer account and logs it in.
func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	// 1. Validate input
	if err := validateRequest(s.log, "Register", req); err != nil {
		return nil, err
	}

	// 2. Email must be free
	email := normalizeEmail(req.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("Email already registered")
	}

	// 3. Hash password
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 4. Save user
	now := s.now()
	user := &entity.User{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashed,
		Role:         entity.RoleCustomer,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Email already registered")
		}
		return nil, err
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	// 5. Auto login
	return s.issueToken(user)
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	if err := validateRequest(s.log, "Login", req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Login failed", zap.String("email", req.Email))
		return nil, apperror.Unauthenticated("Invalid email or password")
	}
	if !user.IsActive {
		s.log.Warn("Login attempt on deactivated account", zap.String("user_id", user.ID.String()))
		return nil, apperror.Unauthorized("Account is deactivated")
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.issueToken(user)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) issueToken(user *entity.User) (*response.AuthResponse, error) {
	ttl := time.Duration(s.jwt.ExpiryHours) * time.Hour
	token, expiresAt, err := utils.CreateAccessToken(s.jwt.Secret, user.ID, string(user.Role), ttl)
	if err != nil {
		s.log.Error("Failed to sign token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &response.AuthResponse{
		User:      response.UserToResponse(user),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
