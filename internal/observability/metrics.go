package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

// Metrics holds the Prometheus metrics of a broadcaster. It implements
// broadcaster.Metrics.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Publish side
	publishedTotal *prometheus.CounterVec

	// Listener side
	deliveriesTotal        *prometheus.CounterVec
	listenerFailuresTotal  prometheus.Counter
	listenerReconnectTotal prometheus.Counter
	listenerState          prometheus.Gauge

	// Registry
	channels      prometheus.Gauge
	subscriptions prometheus.Gauge
}

var _ broadcaster.Metrics = (*Metrics)(nil)

// NewMetrics creates and registers the broadcaster metrics on reg. A nil
// reg uses the Prometheus default registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Metrics{
		gatherer: gatherer,

		publishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broadcaster_published_total",
				Help: "Total number of messages published",
			},
			[]string{"status"},
		),

		deliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broadcaster_deliveries_total",
				Help: "Total number of callback invocations",
			},
			[]string{"status"},
		),
		listenerFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "broadcaster_listener_failures_total",
				Help: "Total number of failed or dropped listener connections",
			},
		),
		listenerReconnectTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "broadcaster_listener_reconnects_total",
				Help: "Total number of listener reconnection attempts",
			},
		),
		listenerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "broadcaster_listener_state",
				Help: "Current listener state (0=connecting, 1=listening, 2=failed, 3=backoff, 4=stopped)",
			},
		),

		channels: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "broadcaster_channels",
				Help: "Current number of channels with at least one subscription",
			},
		),
		subscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "broadcaster_subscriptions",
				Help: "Current number of subscriptions",
			},
		),
	}
}

// RecordPublish records a publish attempt
func (m *Metrics) RecordPublish(err error) {
	m.publishedTotal.WithLabelValues(status(err)).Inc()
}

// RecordDelivery records a single callback invocation
func (m *Metrics) RecordDelivery(err error) {
	m.deliveriesTotal.WithLabelValues(status(err)).Inc()
}

// RecordListenerFailure records a failed connect or a dropped listener connection
func (m *Metrics) RecordListenerFailure() {
	m.listenerFailuresTotal.Inc()
}

// RecordReconnect records a reconnection attempt
func (m *Metrics) RecordReconnect() {
	m.listenerReconnectTotal.Inc()
}

// SetListenerState updates the listener state gauge
func (m *Metrics) SetListenerState(state broadcaster.State) {
	m.listenerState.Set(float64(state))
}

// SetSubscriptions updates the registry gauges
func (m *Metrics) SetSubscriptions(channels, subscriptions int) {
	m.channels.Set(float64(channels))
	m.subscriptions.Set(float64(subscriptions))
}

// Handler returns a Fiber handler serving the metrics in the Prometheus
// exposition format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
