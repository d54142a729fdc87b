package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the relay's Prometheus collectors. All methods are safe on a nil
// receiver so components can run without metrics in tests.
type Metrics struct {
	// signatureOutcomes counts verification attempts by outcome
	signatureOutcomes *prometheus.CounterVec

	// enqueued counts agent events by lane
	enqueued *prometheus.CounterVec

	// dispatched counts dispatch ticks that handled an item, by terminal state
	dispatched *prometheus.CounterVec

	// tickDuration tracks how long a non-idle dispatch tick takes, token wait included
	tickDuration prometheus.Histogram

	validatedReviews prometheus.Gauge
	rotations        prometheus.Counter
	advisories       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		signatureOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_signature_verifications_total",
			Help: "Webhook signature verification attempts by outcome",
		}, []string{"outcome"}),
		enqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_queue_enqueued_total",
			Help: "Agent events enqueued by lane",
		}, []string{"lane"}),
		dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_dispatch_total",
			Help: "Dispatched queue items by terminal state",
		}, []string{"outcome"}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_dispatch_tick_duration_seconds",
			Help:    "Duration of dispatch ticks that processed an item",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 17), // 1ms to ~65s
		}),
		validatedReviews: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_validated_reviews",
			Help: "Validated reviews currently held in the review store",
		}),
		rotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_secret_rotations_total",
			Help: "Webhook secret rotations",
		}),
		advisories: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_security_advisories_total",
			Help: "Security advisory webhooks ingested by severity",
		}, []string{"severity"}),
	}
}

func (m *Metrics) ObserveSignature(outcome string) {
	if m == nil {
		return
	}
	m.signatureOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveEnqueue(lane string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(lane).Inc()
}

func (m *Metrics) ObserveDispatch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(outcome).Inc()
	m.tickDuration.Observe(d.Seconds())
}

func (m *Metrics) SetValidatedReviews(n int) {
	if m == nil {
		return
	}
	m.validatedReviews.Set(float64(n))
}

func (m *Metrics) ObserveRotation() {
	if m == nil {
		return
	}
	m.rotations.Inc()
}

func (m *Metrics) ObserveAdvisory(severity string) {
	if m == nil {
		return
	}
	m.advisories.WithLabelValues(severity).Inc()
}
