package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DylanCerv/sublimacion/internal/controller"
	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/query"
	"github.com/DylanCerv/sublimacion/internal/service"
	"github.com/DylanCerv/sublimacion/pkg/httputil"
	"github.com/DylanCerv/sublimacion/pkg/pagination"
)

const (
	defaultFeaturedLimit = 4
	defaultRelatedLimit  = 4
	maxListLimit         = 50
)

// CatalogHandler serves the read-only storefront endpoints.
type CatalogHandler struct {
	service    *service.CatalogService
	controller *controller.Controller
	logger     *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, ctrl *controller.Controller, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service:    svc,
		controller: ctrl,
		logger:     logger,
	}
}

// searchMeta describes a one-shot search result.
type searchMeta struct {
	Query query.Query `json:"query"`
	Total int         `json:"total"`
}

// Search handles GET /api/v1/catalog/search
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := query.FromValues(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, err := h.controller.Search(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: products,
		Meta: searchMeta{Query: q, Total: len(products)},
	})
}

// Facets handles GET /api/v1/catalog/facets
func (h *CatalogHandler) Facets(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.controller.Facets())
}

// Status handles GET /api/v1/catalog/status
func (h *CatalogHandler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.controller.Status())
}

// ListProducts handles GET /api/v1/catalog/products in catalog order.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Paginate(products, pagination.FromRequest(r)))
}

// GetProduct handles GET /api/v1/catalog/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, detail)
}

// Related handles GET /api/v1/catalog/products/{id}/related
func (h *CatalogHandler) Related(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, defaultRelatedLimit)
	if !ok {
		return
	}
	products, err := h.service.Related(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// Featured handles GET /api/v1/catalog/featured
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, defaultFeaturedLimit)
	if !ok {
		return
	}
	products, err := h.service.ListFeatured(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// ListCollections handles GET /api/v1/catalog/collections
func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.service.ListCollections(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, collections)
}

type collectionProducts struct {
	Collection *domain.Collection `json:"collection"`
	Products   []domain.Product   `json:"products"`
}

// CollectionProducts handles GET /api/v1/catalog/collections/{slug}/products
func (h *CatalogHandler) CollectionProducts(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCollectionBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	products, err := h.service.ProductsInCollection(r.Context(), c.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, collectionProducts{Collection: c, Products: products})
}

// parseLimit reads ?limit=, writing a 400 and returning false when it is
// not an integer in [1, maxListLimit].
func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxListLimit {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "limit must be an integer between 1 and " + strconv.Itoa(maxListLimit),
			},
		})
		return 0, false
	}
	return n, true
}
