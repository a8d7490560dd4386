package handlers

import (
	"net/http"

	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/internal/services"
	"github.com/burncare/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminRole is the realm role required for every admin route.
const AdminRole = "ADMIN"

// AdminHandler serves account administration and statistics.
type AdminHandler struct {
	accounts *services.AccountService
	stats    *services.StatsService
	log      *zap.Logger
}

func NewAdminHandler(accounts *services.AccountService, stats *services.StatsService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{accounts: accounts, stats: stats, log: logger.OrNop(log)}
}

// AdminRouter registers admin routes. Every route requires authentication
// and the ADMIN realm role.
func AdminRouter(
	r chi.Router,
	accounts *services.AccountService,
	stats *services.StatsService,
	authMiddleware func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	handler := NewAdminHandler(accounts, stats, log)

	r.Use(authMiddleware, RequireRole(AdminRole))
	r.Get("/users", handler.ListUsers)
	r.Put("/users/{id}", handler.UpdateUser)
	r.Delete("/users/{id}", handler.DeleteUser)
	r.Get("/stats", handler.Stats)
	r.Post("/stats/snapshots", handler.Snapshot)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list users")
		return
	}
	if accounts == nil {
		accounts = []types.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// UpdateUser applies a partial update; setting "enabled": true approves the
// account.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseAccountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return
	}

	var update services.AccountUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	out, err := h.accounts.Approve(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, out.Account)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseAccountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return
	}

	if _, err := h.accounts.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ref, err := h.stats.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to store stats snapshot")
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}
