package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, remote: "10.0.0.2:80", want: "203.0.113.9"},
		{name: "garbage forwarded falls back", headers: map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.4"}, remote: "10.0.0.2:80", want: "198.51.100.4"},
		{name: "remote addr", remote: "192.0.2.1:4321", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, ClientIP(req))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha"}`))
	require.NoError(t, DecodeJSON(req, &payload))
	require.Equal(t, "Asha", payload.Name)

	for _, body := range []string{"", "{", `{"name":"a"}{"name":"b"}`} {
		err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &payload)
		var appErr *AppError
		require.True(t, errors.As(err, &appErr), "body %q", body)
		require.Equal(t, "BAD_REQUEST", appErr.Code)
		require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	}
}
