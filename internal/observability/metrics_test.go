package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "success", status(nil))
	assert.Equal(t, "error", status(errors.New("boom")))
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordPublish(nil)
	m.RecordPublish(nil)
	m.RecordPublish(errors.New("broker down"))
	m.RecordDelivery(nil)
	m.RecordDelivery(errors.New("callback failed"))
	m.RecordListenerFailure()
	m.RecordReconnect()
	m.RecordReconnect()
	m.SetListenerState(broadcaster.StateBackoff)
	m.SetSubscriptions(2, 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.publishedTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishedTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.listenerFailuresTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.listenerReconnectTotal))
	assert.Equal(t, float64(broadcaster.StateBackoff), testutil.ToFloat64(m.listenerState))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.channels))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.subscriptions))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordPublish(nil)
	m.SetSubscriptions(1, 3)

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `broadcaster_published_total{status="success"} 1`)
	assert.Contains(t, string(body), "broadcaster_subscriptions 3")
}
