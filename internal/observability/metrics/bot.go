package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BotMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueDepth      prometheus.Gauge
	publishFailures *prometheus.CounterVec
}

func NewBotMetrics(service string) *BotMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "messages_processed_total",
			Help:      "Total processed inbound messages by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "message_duration_seconds",
			Help:      "Inbound message handling duration in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "messages_in_flight",
			Help:      "Number of inbound messages being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "dispatcher_queue_depth",
			Help:      "Inbound messages waiting behind an earlier message of the same thread.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	publishFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "publish_failures_total",
			Help:      "Outbound actions that could not be published.",
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueDepth, publishFailures)

	return &BotMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueDepth:      queueDepth,
		publishFailures: publishFailures,
	}
}

func (m *BotMetrics) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *BotMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *BotMetrics) StartMessage() {
	m.processInFlight.Inc()
}

func (m *BotMetrics) FinishMessage(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *BotMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *BotMetrics) RecordPublishFailure(service string) {
	m.publishFailures.WithLabelValues(service).Inc()
}
