package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		statusCode int
		label      string
	}{
		{
			name:       "uses the chi route pattern",
			method:     http.MethodGet,
			path:       "/api/v1/wallets/01HXYZ",
			statusCode: http.StatusTeapot,
			label:      "/api/v1/wallets/{id}",
		},
		{
			name:       "falls back to normalized path",
			method:     http.MethodPost,
			path:       "/api/v1/envelopes/E1/unknown",
			statusCode: http.StatusNotFound,
			label:      "/api/v1/envelopes/:id/unknown",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			httpRequestsTotal.Reset()
			httpRequestDuration.Reset()
			httpRequestsInFlight.Set(0)

			r := chi.NewRouter()
			r.Use(Metrics)
			r.Get("/api/v1/wallets/{id}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.statusCode)
			})
			r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.statusCode)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))

			assert.Zero(t, testutil.ToFloat64(httpRequestsInFlight))
			counter := httpRequestsTotal.WithLabelValues(tc.method, tc.label, strconv.Itoa(tc.statusCode))
			assert.Equal(t, float64(1), testutil.ToFloat64(counter))
		})
	}
}

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"wallet without suffix", "/api/v1/wallets/ABC123", "/api/v1/wallets/:id"},
		{"wallet with suffix", "/api/v1/wallets/ABC123/transactions", "/api/v1/wallets/:id/transactions"},
		{"nested ids", "/api/v1/envelopes/E1/participants/u2", "/api/v1/envelopes/:id/participants/:id"},
		{"collection root", "/api/v1/transactions", "/api/v1/transactions"},
		{"non-matching path", "/health", "/health"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, normalizePath(tc.input))
		})
	}
}
