package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	httpmiddleware "github.com/wolfeidau/casework/internal/http"
)

func TestRequests(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "ok", status: http.StatusOK, wantLevel: "info"},
		{name: "not found", status: http.StatusNotFound, wantLevel: "info"},
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := zerolog.New(&buf)

			var sawLogger bool
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				sawLogger = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})

			wrapped := httpmiddleware.ClientIPMiddleware()(Requests(log)(handler))

			req := httptest.NewRequest(http.MethodGet, "/api/reports/organization", nil)
			req.Header.Set("X-Real-IP", "10.0.0.9")
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, req)

			require.True(t, sawLogger)
			require.Equal(t, tt.status, rec.Code)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			require.Equal(t, tt.wantLevel, entry["level"])
			require.Equal(t, "GET", entry["method"])
			require.Equal(t, "/api/reports/organization", entry["path"])
			require.Equal(t, "10.0.0.9", entry["client_ip"])
			require.EqualValues(t, tt.status, entry["status"])
			require.EqualValues(t, 4, entry["bytes"])
		})
	}
}

func TestSetup(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, Setup(false).GetLevel())
	require.Equal(t, zerolog.DebugLevel, Setup(true).GetLevel())
}
