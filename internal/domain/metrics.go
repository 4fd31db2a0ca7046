package domain

import "time"

// InvokeStatus labels the outcome of a capability invocation.
type InvokeStatus string

const (
	// InvokeStatusSuccess indicates the invocation returned a result.
	InvokeStatusSuccess InvokeStatus = "success"
	// InvokeStatusError indicates the invocation surfaced an error.
	InvokeStatusError InvokeStatus = "error"
)

// InvokeMetric captures metrics for one complete invocation, including
// any retries it consumed.
type InvokeMetric struct {
	Capability string
	Status     InvokeStatus
	Kind       ErrorKind
	Attempts   int
	Duration   time.Duration
}

// Metrics records operational metrics for sessions and invocations.
type Metrics interface {
	ObserveInvoke(metric InvokeMetric)
	ObserveRetry(capability string, kind ErrorKind)
	ObserveRegister(duration time.Duration, err error)
	ObserveSessionRecycle()
	SetSessionState(state SessionState)
	ObserveCatalogSnapshot(source CatalogSource, size int)
}
