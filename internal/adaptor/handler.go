package adaptor

import (
	"encoding/json"
	"net/http"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/apperror"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	User    *UserHandler
	Catalog *CatalogHandler
	Booking *BookingHandler
	Payment *PaymentHandler
	Review  *ReviewHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, config, log),
		User:    NewUserHandler(service.User, config.App.Debug, log),
		Catalog: NewCatalogHandler(service.Catalog, config.App.Debug, log),
		Booking: NewBookingHandler(service.Booking, config.App.Debug, log),
		Payment: NewPaymentHandler(service.Payment, config.App, log),
		Review:  NewReviewHandler(service.Review, config.App.Debug, log),
	}
}

// base carries what every handler needs to report errors.
type base struct {
	log   *zap.Logger
	debug bool
}

// handleServiceError logs err at a level matching its kind and writes the
// mapped response.
func (b base) handleServiceError(w http.ResponseWriter, err error, operation string) {
	kind := apperror.KindOf(err)

	switch kind {
	case apperror.KindInternal, apperror.KindProvider:
		b.log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation),
			zap.String("kind", string(kind)))
	default:
		b.log.Warn(operation+" rejected",
			zap.String("operation", operation),
			zap.String("kind", string(kind)),
			zap.String("reason", err.Error()))
	}

	utils.ResponseAppError(w, err, b.debug)
}

// decode reads a JSON body into dst, answering 400 on malformed input.
func (b base) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		b.log.Debug("Invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// actor returns the authenticated caller set by the Authenticate middleware.
func actor(w http.ResponseWriter, r *http.Request) (usecase.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return usecase.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())

	return usecase.Actor{ID: userID, Role: entity.UserRole(role)}, true
}
