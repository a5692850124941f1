package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DylanCerv/sublimacion/internal/controller"
	"github.com/DylanCerv/sublimacion/internal/query"
	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
	"github.com/DylanCerv/sublimacion/pkg/httputil"
	"github.com/DylanCerv/sublimacion/pkg/validator"
)

// settleTimeout bounds how long GET results waits for a pending evaluation.
const settleTimeout = 5 * time.Second

// SessionHandler exposes query views as server-side sessions.
type SessionHandler struct {
	sessions *controller.Sessions
	logger   *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(sessions *controller.Sessions, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// --- Request DTOs ---

// SetTermRequest is the JSON request body for replacing the search term.
type SetTermRequest struct {
	Term string `json:"term" validate:"max=200"`
}

// SetPriceRangeRequest is the JSON request body for the price filter.
type SetPriceRangeRequest struct {
	Min *int64 `json:"min" validate:"required,gte=0"`
	Max *int64 `json:"max" validate:"required,gte=0"`
}

// sessionResponse is returned by every query update.
type sessionResponse struct {
	ID    string      `json:"id"`
	Query query.Query `json:"query"`
}

// --- Handlers ---

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, v, err := h.sessions.Create()
	if err != nil {
		if errors.Is(err, controller.ErrTooManySessions) {
			httputil.WriteError(w, r, apperrors.RateLimited(), h.logger)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+id)
	httputil.WriteData(w, http.StatusCreated, sessionResponse{ID: id, Query: v.Query()})
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, v, ok := h.view(w, r)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, sessionResponse{ID: id, Query: v.Query()})
}

// Delete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.sessions.Delete(id) {
		httputil.WriteError(w, r, apperrors.NotFound("session", id), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetTerm handles PUT /api/v1/sessions/{id}/term
func (h *SessionHandler) SetTerm(w http.ResponseWriter, r *http.Request) {
	id, v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req SetTermRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, sessionResponse{ID: id, Query: v.SetTerm(req.Term)})
}

// Toggle handles POST /api/v1/sessions/{id}/toggle/{facet}/{value}, where
// facet is one of collection, size or color.
func (h *SessionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, v, ok := h.view(w, r)
	if !ok {
		return
	}

	value := chi.URLParam(r, "value")
	var q query.Query
	switch chi.URLParam(r, "facet") {
	case "collection":
		q = v.ToggleCollection(value)
	case "size":
		q = v.ToggleSize(value)
	case "color":
		q = v.ToggleColor(value)
	default:
		httputil.WriteError(w, r, apperrors.InvalidInput("facet must be one of: collection, size, color"), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sessionResponse{ID: id, Query: q})
}

// SetPriceRange handles PUT /api/v1/sessions/{id}/price
func (h *SessionHandler) SetPriceRange(w http.ResponseWriter, r *http.Request) {
	id, v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req SetPriceRangeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	q, err := v.SetPriceRange(*req.Min, *req.Max)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sessionResponse{ID: id, Query: q})
}

// ClearAll handles DELETE /api/v1/sessions/{id}/filters. The term is kept.
func (h *SessionHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	id, v, ok := h.view(w, r)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, sessionResponse{ID: id, Query: v.ClearAll()})
}

// Results handles GET /api/v1/sessions/{id}/results. By default it waits for
// the latest query to be evaluated; ?wait=false returns the last published
// result immediately.
func (h *SessionHandler) Results(w http.ResponseWriter, r *http.Request) {
	_, v, ok := h.view(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("wait") == "false" {
		httputil.WriteData(w, http.StatusOK, v.Result())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), settleTimeout)
	defer cancel()
	res, err := v.Settle(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Still evaluating; serve what is published.
			httputil.WriteData(w, http.StatusAccepted, v.Result())
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *SessionHandler) view(w http.ResponseWriter, r *http.Request) (string, *controller.View, bool) {
	id := chi.URLParam(r, "id")
	v, ok := h.sessions.Get(id)
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("session", id), h.logger)
		return "", nil, false
	}
	return id, v, true
}
