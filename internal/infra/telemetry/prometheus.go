package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"capcall/internal/domain"
)

type PrometheusMetrics struct {
	invokeDuration  *prometheus.HistogramVec
	invokeAttempts  *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	registerSeconds *prometheus.HistogramVec
	sessionRecycles prometheus.Counter
	sessionState    *prometheus.GaugeVec
	catalogSize     *prometheus.GaugeVec
	catalogLoads    *prometheus.CounterVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		invokeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capcall_invoke_duration_seconds",
				Help:    "Duration of capability invocations in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"capability", "status"},
		),
		invokeAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capcall_invoke_attempts",
				Help:    "Number of transport attempts consumed per invocation",
				Buckets: []float64{1, 2, 3, 4, 5, 8},
			},
			[]string{"capability"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capcall_invoke_retries_total",
				Help: "Total number of invocation retries by error kind",
			},
			[]string{"capability", "kind"},
		),
		registerSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capcall_register_duration_seconds",
				Help:    "Duration of session registration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
		sessionRecycles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "capcall_session_recycles_total",
				Help: "Total number of session teardowns forced by retries",
			},
		),
		sessionState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capcall_session_state",
				Help: "Current session state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),
		catalogSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capcall_catalog_size",
				Help: "Number of capabilities in the most recent catalog snapshot",
			},
			[]string{"source"},
		),
		catalogLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capcall_catalog_loads_total",
				Help: "Total number of catalog snapshots served by source",
			},
			[]string{"source"},
		),
	}
}

func (p *PrometheusMetrics) ObserveInvoke(metric domain.InvokeMetric) {
	p.invokeDuration.WithLabelValues(metric.Capability, string(metric.Status)).Observe(metric.Duration.Seconds())
	p.invokeAttempts.WithLabelValues(metric.Capability).Observe(float64(metric.Attempts))
}

func (p *PrometheusMetrics) ObserveRetry(capability string, kind domain.ErrorKind) {
	p.retries.WithLabelValues(capability, string(kind)).Inc()
}

func (p *PrometheusMetrics) ObserveRegister(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.registerSeconds.WithLabelValues(status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveSessionRecycle() {
	p.sessionRecycles.Inc()
}

func (p *PrometheusMetrics) SetSessionState(state domain.SessionState) {
	for _, candidate := range []domain.SessionState{
		domain.SessionUninitialized,
		domain.SessionInitializing,
		domain.SessionReady,
		domain.SessionClosed,
	} {
		value := 0.0
		if candidate == state {
			value = 1.0
		}
		p.sessionState.WithLabelValues(string(candidate)).Set(value)
	}
}

func (p *PrometheusMetrics) ObserveCatalogSnapshot(source domain.CatalogSource, size int) {
	p.catalogSize.WithLabelValues(string(source)).Set(float64(size))
	p.catalogLoads.WithLabelValues(string(source)).Inc()
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
