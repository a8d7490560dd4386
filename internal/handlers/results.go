package handlers

import (
	"net/http"

	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ResultHandler serves assessment result submission and history for the
// token subject.
type ResultHandler struct {
	results *services.ResultService
	log     *zap.Logger
}

func NewResultHandler(results *services.ResultService, log *zap.Logger) *ResultHandler {
	return &ResultHandler{results: results, log: logger.OrNop(log)}
}

// BurnoutRouter registers burnout result routes behind authentication.
func BurnoutRouter(r chi.Router, results *services.ResultService, authMiddleware func(http.Handler) http.Handler, log *zap.Logger) {
	handler := NewResultHandler(results, log)

	r.Use(authMiddleware)
	r.Post("/", handler.SubmitBurnout)
	r.Get("/me", handler.ListBurnout)
}

// FatigueRouter registers fatigue result routes behind authentication.
func FatigueRouter(r chi.Router, results *services.ResultService, authMiddleware func(http.Handler) http.Handler, log *zap.Logger) {
	handler := NewResultHandler(results, log)

	r.Use(authMiddleware)
	r.Post("/", handler.SubmitFatigue)
	r.Get("/me", handler.ListFatigue)
}

func (h *ResultHandler) SubmitBurnout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "missing authorization")
		return
	}
	var req services.BurnoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.results.SubmitBurnout(r.Context(), claims.Subject, req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to save burnout result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ResultHandler) ListBurnout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "missing authorization")
		return
	}

	results, err := h.results.ListBurnout(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list burnout results")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *ResultHandler) SubmitFatigue(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "missing authorization")
		return
	}
	var req services.FatigueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.results.SubmitFatigue(r.Context(), claims.Subject, req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to save fatigue result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ResultHandler) ListFatigue(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "missing authorization")
		return
	}

	results, err := h.results.ListFatigue(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list fatigue results")
		return
	}
	writeJSON(w, http.StatusOK, results)
}
