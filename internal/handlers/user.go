package handlers

import (
	"net/http"
	"strings"

	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler serves self-service profile operations for the caller.
type UserHandler struct {
	profile *services.ProfileService
	log     *zap.Logger
}

func NewUserHandler(profile *services.ProfileService, log *zap.Logger) *UserHandler {
	return &UserHandler{profile: profile, log: logger.OrNop(log)}
}

// UserRouter registers self-service routes behind authentication.
func UserRouter(r chi.Router, profile *services.ProfileService, authMiddleware func(http.Handler) http.Handler, log *zap.Logger) {
	handler := NewUserHandler(profile, log)

	r.Use(authMiddleware)
	r.Put("/profile", handler.UpdateProfile)
	r.Put("/password", handler.ChangePassword)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := callerEmail(w, r, req.Email)
	if !ok {
		return
	}

	resp, err := h.profile.UpdateProfile(r.Context(), email, req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req services.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := callerEmail(w, r, req.Email)
	if !ok {
		return
	}

	if err := h.profile.ChangePassword(r.Context(), email, req); err != nil {
		writeServiceError(w, r, h.log, err, "failed to change password")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// callerEmail returns the email claim of the token. A body email that names
// someone else is refused.
func callerEmail(w http.ResponseWriter, r *http.Request, bodyEmail string) (string, bool) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "missing authorization")
		return "", false
	}
	if claims.Email == "" {
		writeError(w, http.StatusForbidden, kindForbidden, "token carries no email")
		return "", false
	}
	if bodyEmail = strings.TrimSpace(bodyEmail); bodyEmail != "" && !strings.EqualFold(bodyEmail, claims.Email) {
		writeError(w, http.StatusForbidden, kindForbidden, "cannot modify another account")
		return "", false
	}
	return claims.Email, true
}
