// Package metrics holds the service's prometheus instruments. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "odjassa"

type Metrics struct {
	ordersCreated       *prometheus.CounterVec
	inventoryRejections *prometheus.CounterVec
	claims              *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	createDuration      prometheus.Histogram
	jobRuns             *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Order creation attempts by outcome.",
		}, []string{"outcome"}),
		inventoryRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_rejections_total",
			Help:      "Cart lines rejected by the inventory guard.",
		}, []string{"reason"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_claims_total",
			Help:      "Delivery claim attempts by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Applied order status transitions.",
		}, []string{"actor", "to"}),
		createDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_create_duration_seconds",
			Help:      "Latency of the order creation transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_runs_total",
			Help:      "Scheduled job runs by outcome.",
		}, []string{"job", "outcome"}),
	}

	reg.MustRegister(
		m.ordersCreated,
		m.inventoryRejections,
		m.claims,
		m.transitions,
		m.createDuration,
		m.jobRuns,
	)
	return m
}

func (m *Metrics) OrderCreated(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(outcome).Inc()
	m.createDuration.Observe(took.Seconds())
}

func (m *Metrics) InventoryRejected(reason string) {
	if m == nil {
		return
	}
	m.inventoryRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) Claim(outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Transition(actor, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(actor, to).Inc()
}

func (m *Metrics) JobRun(job, outcome string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

// Handler serves the gatherer in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
