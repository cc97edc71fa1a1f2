package adaptor

import (
	"net/http"
	"time"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/middleware"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	base
	service usecase.AuthService
}

func NewAuthHandler(service usecase.AuthService, config *utils.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		base:    base{log: log.With(zap.String("handler", "auth")), debug: config.App.Debug},
		service: service,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "register")
		return
	}

	h.setTokenCookie(w, resp.Token, resp.ExpiresAt)
	utils.ResponseCreated(w, "Registration successful", resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "login")
		return
	}

	h.setTokenCookie(w, resp.Token, resp.ExpiresAt)
	utils.ResponseSuccess(w, "Login successful", resp)
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logging out
// only drops the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.debug,
		SameSite: http.SameSiteLaxMode,
	})
	utils.ResponseSuccess(w, "Logout successful", nil)
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   !h.debug,
		SameSite: http.SameSiteLaxMode,
	})
}
