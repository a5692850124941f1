package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DylanCerv/sublimacion/internal/controller"
	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/service"
	"github.com/DylanCerv/sublimacion/pkg/httputil"
)

// AdminHandler handles the catalog mutation endpoints.
type AdminHandler struct {
	service    *service.CatalogService
	controller *controller.Controller
	logger     *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.CatalogService, ctrl *controller.Controller, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service:    svc,
		controller: ctrl,
		logger:     logger,
	}
}

// mutationMeta is attached when a write was committed but the catalog
// could not be reloaded afterwards.
type mutationMeta struct {
	RefreshError string `json:"refresh_error"`
}

// writeMutation renders the outcome of a write. A committed write whose
// follow-up refresh failed is a 202: the data is stored but not yet served.
func (h *AdminHandler) writeMutation(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	if err == nil {
		if data == nil {
			w.WriteHeader(status)
			return
		}
		httputil.WriteData(w, status, data)
		return
	}
	if errors.Is(err, service.ErrRefreshFailed) {
		h.logger.WarnContext(r.Context(), "catalog write committed but refresh failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
			Data: data,
			Meta: mutationMeta{RefreshError: err.Error()},
		})
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// CreateProduct handles POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), in)
	h.writeMutation(w, r, http.StatusCreated, nilIfNil(p), err)
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	h.writeMutation(w, r, http.StatusOK, nilIfNil(p), err)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	h.writeMutation(w, r, http.StatusNoContent, nil, err)
}

// CreateCollection handles POST /api/v1/admin/collections
func (h *AdminHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var in domain.CollectionInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.service.CreateCollection(r.Context(), in)
	h.writeMutation(w, r, http.StatusCreated, nilIfNil(c), err)
}

// UpdateCollection handles PUT /api/v1/admin/collections/{id}
func (h *AdminHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	var in domain.CollectionInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.service.UpdateCollection(r.Context(), chi.URLParam(r, "id"), in)
	h.writeMutation(w, r, http.StatusOK, nilIfNil(c), err)
}

// DeleteCollection handles DELETE /api/v1/admin/collections/{id}
func (h *AdminHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteCollection(r.Context(), chi.URLParam(r, "id"))
	h.writeMutation(w, r, http.StatusNoContent, nil, err)
}

// Refresh handles POST /api/v1/admin/catalog/refresh, the retry behind the
// storefront's error screen.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Refresh(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.controller.Status())
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// decode reads a JSON body into dst. Field rules are checked by the
// service.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteValidationError(w, fmt.Errorf("decode request body: %w", err))
		return false
	}
	return true
}

// nilIfNil turns a typed nil pointer into an untyped nil so writeMutation
// can tell "no body" apart from a result.
func nilIfNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}
