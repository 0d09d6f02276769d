package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{name: "forwarded single", forwarded: "192.168.1.1", want: "192.168.1.1"},
		{name: "forwarded chain takes first", forwarded: "203.0.113.1, 198.51.100.1", want: "203.0.113.1"},
		{name: "forwarded padded", forwarded: "203.0.113.1  ,  198.51.100.1", want: "203.0.113.1"},
		{name: "forwarded beats real ip", forwarded: "203.0.113.1", realIP: "192.168.1.100", want: "203.0.113.1"},
		{name: "real ip", realIP: "192.168.1.100", want: "192.168.1.100"},
		{name: "remote ipv4", remoteAddr: "192.168.1.1:54321", want: "192.168.1.1"},
		{name: "remote ipv6", remoteAddr: "[2001:db8::1]:54321", want: "2001:db8::1"},
		{name: "remote without port", remoteAddr: "10.0.0.7", want: "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.remoteAddr != "" {
				r.RemoteAddr = tt.remoteAddr
			}

			require.Equal(t, tt.want, ExtractClientIP(r))

			var seen string
			ClientIPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = ClientIPFromContext(r.Context())
			})).ServeHTTP(httptest.NewRecorder(), r)
			require.Equal(t, tt.want, seen)
		})
	}

	require.Empty(t, ClientIPFromContext(context.Background()))
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestStatusRecorder(t *testing.T) {
	t.Run("implicit ok", func(t *testing.T) {
		rec := NewStatusRecorder(httptest.NewRecorder())
		_, err := rec.Write([]byte("hello"))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, rec.Status())
		require.Equal(t, 5, rec.Bytes())
	})

	t.Run("first status wins", func(t *testing.T) {
		rec := NewStatusRecorder(httptest.NewRecorder())
		rec.WriteHeader(http.StatusConflict)
		rec.WriteHeader(http.StatusOK)
		require.Equal(t, http.StatusConflict, rec.Status())
	})
}
