package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the player.
type Metrics struct {
	registry      *prometheus.Registry
	requestsTotal prometheus.Counter
	errorsTotal   prometheus.Counter
	switchesTotal *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	commandsTotal *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	rotationSize  prometheus.Gauge
	clients       *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camwall_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camwall_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		switchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camwall_switches_total",
			Help: "Cam switches by reason",
		}, []string{"reason"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camwall_failures_total",
			Help: "Reported cam failures by reason",
		}, []string{"reason"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camwall_commands_total",
			Help: "Inbound commands by outcome",
		}, []string{"outcome"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camwall_publish_errors_total",
			Help: "Failed snapshot deliveries by sink",
		}, []string{"sink"}),
		rotationSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camwall_rotation_size",
			Help: "Number of cams in the current rotation",
		}),
		clients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "camwall_ws_clients",
			Help: "Connected websocket clients by role",
		}, []string{"role"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.switchesTotal,
		m.failuresTotal,
		m.commandsTotal,
		m.publishErrors,
		m.rotationSize,
		m.clients,
	)

	return m
}

func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

func (m *Metrics) IncSwitches(reason string) {
	m.switchesTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncFailures(reason string) {
	m.failuresTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncCommands(outcome string) {
	m.commandsTotal.WithLabelValues(outcome).Inc()
}

// IncPublishErrors counts a failed delivery to the named sink.
func (m *Metrics) IncPublishErrors(sink string) {
	m.publishErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) SetRotationSize(n int) {
	m.rotationSize.Set(float64(n))
}

func (m *Metrics) SetClients(role string, n int) {
	m.clients.WithLabelValues(role).Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
