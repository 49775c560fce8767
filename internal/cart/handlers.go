package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

var errorMappings = []common.ErrorMapping{
	{Target: ErrNotFound, Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "cart item not found"},
	{Target: catalog.ErrNotFound, Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "product not found"},
	{Target: pricing.ErrInvalidInput, Code: "INVALID_INPUT", Status: http.StatusUnprocessableEntity},
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.View(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem handles POST /api/v1/cart/items and returns the repriced cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload AddInput
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	item, err := h.Svc.Add(r.Context(), session, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.View(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"item": item, "cart": view}})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Remove(r.Context(), session, chi.URLParam(r, "itemId")); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.View(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return "", false
	}
	session, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return "", false
	}
	return session, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, common.FromError(err, errorMappings...))
}
