package services

import (
	"time"

	"crm/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics считает операции сервисов и доменные события
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// NewMetrics регистрирует счетчики в reg; при nil счетчики не регистрируются
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency including repository calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "domain_events_total",
			Help:      "Domain events recorded by services.",
		}, []string{"event"}),
	}
}

// Observe учитывает результат операции; безопасен для nil
func (m *Metrics) Observe(operation string, success bool, d time.Duration) {
	if m == nil || operation == "" {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// Record реализует domain.EventSink
func (m *Metrics) Record(e domain.Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(e.Name)).Inc()
}
