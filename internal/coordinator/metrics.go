package coordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus instrumentation for the coordinator. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	InFlight      prometheus.Gauge
	RequestsTotal *prometheus.CounterVec
	RoundTrip     *prometheus.HistogramVec
	Timeouts      prometheus.Counter
	Cancellations prometheus.Counter
	Disconnects   prometheus.Counter
}

// NewMetrics registers coordinator metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "firebridge_requests_in_flight",
			Help: "Number of peer requests currently awaiting a response",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firebridge_requests_total",
			Help: "Total peer requests by action and outcome",
		}, []string{"action", "outcome"}),
		RoundTrip: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "firebridge_request_duration_seconds",
			Help:    "Peer request round-trip duration",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120},
		}, []string{"action"}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firebridge_request_timeouts_total",
			Help: "Peer requests that hit the response deadline",
		}),
		Cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firebridge_request_cancellations_total",
			Help: "Peer requests cancelled by the user",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firebridge_channel_disconnects_total",
			Help: "Peer channel disconnect events",
		}),
	}

	reg.MustRegister(m.InFlight, m.RequestsTotal, m.RoundTrip,
		m.Timeouts, m.Cancellations, m.Disconnects)
	return m
}

func (m *Metrics) requestStarted(action string) {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) requestFinished(action string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.InFlight.Dec()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.RequestsTotal.WithLabelValues(action, outcome).Inc()
	m.RoundTrip.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *Metrics) timedOut() {
	if m == nil {
		return
	}
	m.Timeouts.Inc()
}

func (m *Metrics) cancelled() {
	if m == nil {
		return
	}
	m.Cancellations.Inc()
}

func (m *Metrics) disconnected(drained int) {
	if m == nil {
		return
	}
	m.Disconnects.Inc()
}
