package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/burncare/apiserver/internal/identity"
	"github.com/burncare/apiserver/internal/services"
	"github.com/burncare/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Error kinds written in the "error" field of ErrorResponse.
const (
	kindBadCredentials  = "Bad Credentials"
	kindAccountDisabled = "Account Disabled"
	kindUnauthorized    = "Unauthorized"
	kindForbidden       = "Forbidden"
	kindNotFound        = "Not Found"
	kindConflict        = "Conflict"
	kindValidation      = "Validation Failed"
	kindBadRequest      = "Bad Request"
	kindUpstream        = "Bad Gateway"
	kindUnavailable     = "Service Unavailable"
	kindInternal        = "Internal Server Error"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// ErrorResponse is the error payload of every endpoint.
type ErrorResponse struct {
	Error      string               `json:"error"`
	Message    string               `json:"message"`
	Violations []services.Violation `json:"violations,omitempty"`
}

func claimsFromContext(ctx context.Context) (identity.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(identity.Claims)
	if !ok || claims.Subject == "" {
		return identity.Claims{}, false
	}
	return claims, true
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps workflow errors to HTTP responses. Unexpected
// errors are logged and reported with the fallback message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, fallback string) {
	var (
		validationErr *services.ValidationError
		upstreamErr   *services.UpstreamError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      kindValidation,
			Message:    validationErr.Error(),
			Violations: validationErr.Violations,
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, kindBadCredentials, "Invalid email or password")
	case errors.Is(err, services.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, kindAccountDisabled, "Account is not approved yet")
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, kindConflict, "Email already registered")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, kindNotFound, "resource not found")
	case errors.Is(err, services.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, kindUnavailable, err.Error())
	case errors.As(err, &upstreamErr):
		log.Error("identity provider call failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("op", upstreamErr.Op),
			zap.Error(upstreamErr.Err),
		)
		writeError(w, http.StatusBadGateway, kindUpstream, "identity provider unavailable")
	default:
		log.Error(fallback,
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, kindInternal, fallback)
	}
}

func parseAccountID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid account id %q", raw)
	}
	return id, nil
}
