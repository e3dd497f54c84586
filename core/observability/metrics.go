// Package observability collects server metrics and serves the Prometheus
// text exposition through an ordinary handler, so /metrics is just another
// registered route.
package observability

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/lightningtools/lightning/core/http"
)

// Metrics tracks accept and dispatch activity for one server instance.
type Metrics struct {
	registry *prometheus.Registry

	accepted     prometheus.Counter
	acceptErrors prometheus.Counter
	inFlight     prometheus.Gauge
	requests     *prometheus.CounterVec
	duration     prometheus.Histogram
}

// New creates a metrics set backed by its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "lightning_connections_accepted_total",
			Help: "Connections accepted by the listener.",
		}),
		acceptErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "lightning_accept_errors_total",
			Help: "Accept attempts that failed without stopping the loop.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lightning_connections_in_flight",
			Help: "Connections currently being handled.",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lightning_requests_total",
			Help: "Requests dispatched, by response status code.",
		}, []string{"code"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lightning_request_duration_seconds",
			Help:    "Time from decode start to response flushed.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ConnAccepted records an accepted connection entering handling
func (m *Metrics) ConnAccepted() {
	m.accepted.Inc()
	m.inFlight.Inc()
}

// ConnClosed records a handled connection being closed
func (m *Metrics) ConnClosed() {
	m.inFlight.Dec()
}

// AcceptError records a tolerated accept failure
func (m *Metrics) AcceptError() {
	m.acceptErrors.Inc()
}

// Request records one completed request/response exchange
func (m *Metrics) Request(code int, elapsed time.Duration) {
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Handler returns a handler serving the text exposition format
func (m *Metrics) Handler() http.Handler {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return func(req *http.Request) (*http.Response, error) {
		families, err := m.registry.Gather()
		if err != nil {
			return nil, fmt.Errorf("gather metrics: %w", err)
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return nil, fmt.Errorf("encode metrics: %w", err)
			}
		}

		resp := &http.Response{Code: 200, Body: buf.Bytes()}
		resp.SetHeader("Content-Type", string(format))
		return resp, nil
	}
}
