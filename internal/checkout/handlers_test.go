package checkout_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/common"
)

type errorResponse struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newRouter(f fixture) http.Handler {
	h := &checkout.Handler{Svc: f.svc}
	r := chi.NewRouter()
	r.Use(common.SessionMiddleware)
	r.Group(func(r chi.Router) {
		r.Use(common.RequireSession)
		r.Get("/checkout/summary", h.Summary)
		r.Get("/orders", h.Orders)
		r.Post("/orders", h.PlaceOrder)
		r.Post("/orders/{orderId}/cancel", h.Cancel)
	})
	return r
}

func serve(h http.Handler, method, path, session, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if session != "" {
		req.Header.Set(common.SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const orderBody = `{"name":"Asha","mobile":"9876543210","address":"12 MG Road","paymentMethod":"razorpay"}`

func TestCheckoutHandlers(t *testing.T) {
	f := newFixture(t)
	f.fill(t, "s1")
	router := newRouter(f)

	rec := serve(router, http.MethodGet, "/checkout/summary", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Data cart.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.EqualValues(t, 1698, summary.Data.Summary.GrandTotal)

	rec = serve(router, http.MethodPost, "/orders", "s1", orderBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var placed struct {
		Data checkout.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	require.Equal(t, checkout.PaymentRazorpay, placed.Data.PaymentMethod)
	require.NotContains(t, rec.Body.String(), "s1", "session id is not serialized")

	rec = serve(router, http.MethodGet, "/orders", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data []checkout.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)

	rec = serve(router, http.MethodPost, "/orders/"+placed.Data.ID+"/cancel", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodPost, "/orders/"+placed.Data.ID+"/cancel", "s1", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	var errResp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "NOT_CANCELLABLE", errResp.Error.Code)

	rec = serve(router, http.MethodPost, "/orders/unknown/cancel", "s1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutHandlerErrors(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec := serve(router, http.MethodPost, "/orders", "", orderBody)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodPost, "/orders", "s1", orderBody)
	require.Equal(t, http.StatusConflict, rec.Code)
	var errResp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "EMPTY_CART", errResp.Error.Code)

	rec = serve(router, http.MethodPost, "/orders", "s1", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/orders", "s1", `{"name":"Asha"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
