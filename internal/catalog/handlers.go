package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	rows, err := h.service.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Products handles GET /api/v1/products with filters, sorting, and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, "")
}

// CategoryProducts handles GET /api/v1/categories/{category}/products.
func (h *Handler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, chi.URLParam(r, "category"))
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	item, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

func (h *Handler) browse(w http.ResponseWriter, r *http.Request, scope string) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	listing, err := h.service.Browse(r.Context(), scope, r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(listing.TotalCount))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": listing.Items,
		"pagination": common.Pagination{
			Page:       listing.Page,
			PerPage:    listing.PageSize,
			TotalItems: listing.TotalCount,
			TotalPages: listing.TotalPages,
		},
		"filters": listing.Filters,
	})
}

var errorMappings = []common.ErrorMapping{
	{Target: ErrNotFound, Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "product not found"},
	{Target: pricing.ErrInvalidInput, Code: "INVALID_INPUT", Status: http.StatusUnprocessableEntity},
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, common.FromError(err, errorMappings...))
}
