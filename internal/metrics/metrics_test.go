// internal/metrics/metrics_test.go
package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transferd/internal/bank"
)

func TestObserveTransfer(t *testing.T) {
	m := New("transferd")
	m.ObserveTransfer(bank.OutcomeCompleted, 3*time.Millisecond)
	m.ObserveTransfer(bank.OutcomeCompleted, time.Millisecond)
	m.ObserveTransfer(bank.OutcomeInsufficient, time.Millisecond)
	m.ReportCritical(context.Background(), bank.Incident{})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transfers.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transfers.WithLabelValues("insufficient_funds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.critical))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New("transferd")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/accounts/{username}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	for _, u := range []string{"alice", "bob", "dave"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/"+u, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/accounts/{username}", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `transferd_http_requests_total{method="GET",route="/accounts/{username}",status="404"} 3`))
}
