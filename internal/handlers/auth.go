package handlers

import (
	"errors"
	"net/http"

	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Workflow outcomes reported to WorkflowMetrics.
const (
	outcomeSuccess    = "success"
	outcomeConflict   = "conflict"
	outcomeInvalid    = "invalid"
	outcomeDisabled   = "disabled"
	outcomeBadCreds   = "bad_credentials"
	outcomeUpstream   = "upstream_error"
	outcomeError      = "error"
	outcomeIncomplete = "partial"
)

// WorkflowMetrics counts registration and login attempts by outcome.
type WorkflowMetrics interface {
	ObserveRegistration(outcome string)
	ObserveLogin(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRegistration(string) {}
func (nopMetrics) ObserveLogin(string)        {}

// AuthHandler serves registration and login.
type AuthHandler struct {
	accounts *services.AccountService
	metrics  WorkflowMetrics
	log      *zap.Logger
}

// NewAuthHandler constructs an AuthHandler. metrics may be nil.
func NewAuthHandler(accounts *services.AccountService, metrics WorkflowMetrics, log *zap.Logger) *AuthHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AuthHandler{accounts: accounts, metrics: metrics, log: logger.OrNop(log)}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, accounts *services.AccountService, metrics WorkflowMetrics, log *zap.Logger) {
	handler := NewAuthHandler(accounts, metrics, log)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
}

// Register creates a disabled account awaiting approval. The returned token
// is always empty.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeJSON(w, r, &req) {
		h.metrics.ObserveRegistration(outcomeInvalid)
		return
	}

	out, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		h.metrics.ObserveRegistration(registrationOutcome(err))
		writeServiceError(w, r, h.log, err, "failed to register account")
		return
	}

	outcome := outcomeSuccess
	if len(services.Failed(out.SideEffects)) > 0 {
		outcome = outcomeIncomplete
	}
	h.metrics.ObserveRegistration(outcome)
	writeJSON(w, http.StatusOK, out.Response)
}

// Login exchanges credentials for an access token and the local profile.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !decodeJSON(w, r, &req) {
		h.metrics.ObserveLogin(outcomeInvalid)
		return
	}

	resp, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		h.metrics.ObserveLogin(loginOutcome(err))
		writeServiceError(w, r, h.log, err, "failed to authenticate")
		return
	}

	h.metrics.ObserveLogin(outcomeSuccess)
	writeJSON(w, http.StatusOK, resp)
}

func registrationOutcome(err error) string {
	var (
		validationErr *services.ValidationError
		upstreamErr   *services.UpstreamError
	)
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return outcomeConflict
	case errors.As(err, &validationErr):
		return outcomeInvalid
	case errors.As(err, &upstreamErr):
		return outcomeUpstream
	default:
		return outcomeError
	}
}

func loginOutcome(err error) string {
	var (
		validationErr *services.ValidationError
		upstreamErr   *services.UpstreamError
	)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return outcomeBadCreds
	case errors.Is(err, services.ErrAccountDisabled):
		return outcomeDisabled
	case errors.As(err, &validationErr):
		return outcomeInvalid
	case errors.As(err, &upstreamErr):
		return outcomeUpstream
	default:
		return outcomeError
	}
}
