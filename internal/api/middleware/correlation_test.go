package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDHonorsProxyHeader(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := CorrelationID(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("handled")
		w.WriteHeader(http.StatusNoContent)
	}))

	request := httptest.NewRequest("GET", "/api/events/", nil)
	request.Header.Set("X-Request-ID", "req-123")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, "req-123", recorder.Header().Get("X-Request-ID"))
	require.Contains(t, buf.String(), `"request_id":"req-123"`)
}

func TestCorrelationIDGeneratesID(t *testing.T) {
	handler := CorrelationID(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	request := httptest.NewRequest("GET", "/api/events/", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	// Generated IDs are UUIDs.
	require.Len(t, recorder.Header().Get("X-Request-ID"), 36)
}
