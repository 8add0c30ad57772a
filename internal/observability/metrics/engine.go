package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

// EngineMetrics records conversation engine events.
type EngineMetrics struct {
	service string

	actionsTotal      *prometheus.CounterVec
	clarityTotal      *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	retrievalPoolSize *prometheus.HistogramVec
	degradedTotal     *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
}

func NewEngineMetrics(service string, registerer prometheus.Registerer) *EngineMetrics {
	actionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "actions_total",
			Help:      "Outbound actions by kind and error kind.",
		},
		[]string{"service", "kind", "error_kind"},
	)
	clarityTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "clarity_verdicts_total",
			Help:      "Clarity verdicts by outcome, forced flag and fallback reason.",
		},
		[]string{"service", "outcome", "forced", "fallback"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Hybrid retrieval duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievalPoolSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "pool_size",
			Help:      "Chunks in the domain-filtered candidate pool.",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Retrievals ranked lexically because the embedding provider failed.",
		},
		[]string{"service"},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session status transitions.",
		},
		[]string{"service", "from", "to"},
	)

	registerer.MustRegister(actionsTotal, clarityTotal, retrievalDuration, retrievalPoolSize, degradedTotal, transitionsTotal)

	return &EngineMetrics{
		service:           service,
		actionsTotal:      actionsTotal,
		clarityTotal:      clarityTotal,
		retrievalDuration: retrievalDuration,
		retrievalPoolSize: retrievalPoolSize,
		degradedTotal:     degradedTotal,
		transitionsTotal:  transitionsTotal,
	}
}

func (m *EngineMetrics) RecordAction(kind domain.ActionKind, errKind domain.ErrorKind) {
	m.actionsTotal.WithLabelValues(m.service, string(kind), string(errKind)).Inc()
}

func (m *EngineMetrics) RecordClarity(outcome domain.ClarityOutcome, forced bool, fallbackReason string) {
	forcedLabel := "false"
	if forced {
		forcedLabel = "true"
	}
	m.clarityTotal.WithLabelValues(m.service, string(outcome), forcedLabel, fallbackReason).Inc()
}

func (m *EngineMetrics) RecordRetrieval(duration time.Duration, poolSize int, degraded bool) {
	m.retrievalDuration.WithLabelValues(m.service).Observe(duration.Seconds())
	m.retrievalPoolSize.WithLabelValues(m.service).Observe(float64(poolSize))
	if degraded {
		m.degradedTotal.WithLabelValues(m.service).Inc()
	}
}

func (m *EngineMetrics) RecordTransition(from, to domain.SessionStatus) {
	m.transitionsTotal.WithLabelValues(m.service, string(from), string(to)).Inc()
}
