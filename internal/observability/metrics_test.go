package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics("ticket-tracker")

	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 20*time.Millisecond)
	m.RecordError("/tickets/:id", "GET", "NOT_FOUND")
	m.RecordJobEnqueued("email-notification")
	m.RecordJobTransition("email-notification", "processing")

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/tickets", "GET", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/tickets/:id", "GET", "NOT_FOUND")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.jobsEnqueued.WithLabelValues("email-notification")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.jobTransitions.WithLabelValues("email-notification", "processing")))
}

func TestMetricsHandlerExposesNamespacedSeries(t *testing.T) {
	m := NewMetrics("ticket-tracker")
	m.RegisterGauge("tickets", "Tickets currently stored.", func() float64 { return 3 })
	m.RecordJobEnqueued("status-update")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	require.Contains(t, string(body), "ticket_tracker_tickets 3")
	require.Contains(t, string(body), `ticket_tracker_queue_jobs_enqueued_total{type="status-update"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordJobEnqueued("x")
		m.RecordJobTransition("x", "y")
		m.RegisterGauge("g", "h", func() float64 { return 0 })
	})
	require.Nil(t, m.Registry())
	require.NotNil(t, m.Handler())
}
