package adaptor

import (
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	base
	service usecase.UserService
}

func NewUserHandler(service usecase.UserService, debug bool, log *zap.Logger) *UserHandler {
	return &UserHandler{
		base:    base{log: log.With(zap.String("handler", "user")), debug: debug},
		service: service,
	}
}

// GetProfile handles GET /api/user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), caller)
	if err != nil {
		h.handleServiceError(w, err, "get profile")
		return
	}

	utils.ResponseSuccess(w, "success", user)
}

// UpdateStatus handles PUT /api/admin/users/{id}/status (admin)
func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateUserStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err, "update user status")
		return
	}

	utils.ResponseSuccess(w, "User status updated", resp)
}
