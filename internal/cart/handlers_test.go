package cart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/common"
)

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newService(t)
	h := &cart.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Use(common.SessionMiddleware)
	r.Get("/cart", h.Get)
	r.Post("/cart/items", h.AddItem)
	r.Delete("/cart/items/{itemId}", h.RemoveItem)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set(common.SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCartHandlersFlow(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items", `{"productId":"p1","size":"L","quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var added struct {
		Data struct {
			Item cart.Item `json:"item"`
			Cart cart.View `json:"cart"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.Equal(t, "p1", added.Data.Item.ProductID)
	require.Equal(t, 2, added.Data.Cart.Count)
	require.EqualValues(t, 1799, added.Data.Cart.Summary.GrandTotal)
	require.EqualValues(t, 1798, added.Data.Cart.Items[0].LineTotal)

	rec = do(t, router, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Data cart.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Data.Items, 1)

	rec = do(t, router, http.MethodDelete, "/cart/items/"+added.Data.Item.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Empty(t, got.Data.Items)

	rec = do(t, router, http.MethodDelete, "/cart/items/"+added.Data.Item.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartHandlersErrors(t *testing.T) {
	router := newRouter(t)

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/cart/items", `{`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/cart/items", `{"productId":"p1","quantity":500}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	})

	t.Run("unknown product", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/cart/items", `{"productId":"zz","quantity":1}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing session", func(t *testing.T) {
		h := &cart.Handler{Svc: &cart.Service{}}
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/cart", nil).WithContext(context.Background()))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
