package telemetry

import (
	"time"

	"capcall/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveInvoke(_ domain.InvokeMetric) {}

func (n *NoopMetrics) ObserveRetry(_ string, _ domain.ErrorKind) {}

func (n *NoopMetrics) ObserveRegister(_ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveSessionRecycle() {}

func (n *NoopMetrics) SetSessionState(_ domain.SessionState) {}

func (n *NoopMetrics) ObserveCatalogSnapshot(_ domain.CatalogSource, _ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
