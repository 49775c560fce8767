package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Handler exposes checkout and order endpoints.
type Handler struct {
	Svc *Service
}

var errorMappings = []common.ErrorMapping{
	{Target: ErrEmptyCart, Code: "EMPTY_CART", Status: http.StatusConflict, Message: "cart is empty"},
	{Target: ErrNotFound, Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "order not found"},
	{Target: ErrNotCancellable, Code: "NOT_CANCELLABLE", Status: http.StatusConflict, Message: "order cannot be cancelled"},
	{Target: cart.ErrNotFound, Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "cart item not found"},
	{Target: pricing.ErrInvalidInput, Code: "INVALID_INPUT", Status: http.StatusUnprocessableEntity},
}

// Summary handles GET /api/v1/checkout/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Summary(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// PlaceOrder handles POST /api/v1/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload Input
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	order, err := h.Svc.PlaceOrder(r.Context(), session, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

// Orders handles GET /api/v1/orders.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	orders, err := h.Svc.ListOrders(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// Cancel handles POST /api/v1/orders/{orderId}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	order, err := h.Svc.Cancel(r.Context(), session, chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
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
