// Package config loads and validates the client configuration. The
// resulting Config is immutable after construction and is handed to each
// component's constructor, so nothing reads the process environment at
// call time.
package config

import (
	"time"

	"capcall/internal/domain"
)

// Config is the fully resolved client configuration.
type Config struct {
	// Mode is the operating mode. It participates in the cache
	// fingerprint because different modes may see different catalogs.
	Mode string

	// BaseEndpoint is the primary service base URL, when the deployment
	// has one. Optional; fingerprint-relevant.
	BaseEndpoint string

	// VisionEnabled toggles image-capable capabilities on backends that
	// gate them. Fingerprint-relevant.
	VisionEnabled bool

	// Credential is the active secret, if any. It is never logged or
	// persisted; the redactor strips it from anything that leaves the
	// process.
	Credential string

	// Endpoints lists the backends to register, in discovery order.
	Endpoints []domain.EndpointSpec

	Retry domain.RetryPolicy
	Cache CacheConfig

	// CallTimeout bounds one whole capability call, retries and backoff
	// included. Zero disables the bound.
	CallTimeout time.Duration
}

// CacheConfig controls the on-disk catalog snapshot. A TTL of zero or
// below disables cache reads while leaving writes best-effort.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Dir     string
}

// Fingerprint derives the cache partition key for this configuration.
func (c Config) Fingerprint() (string, error) {
	return domain.ConfigFingerprint(c.Mode, c.BaseEndpoint, c.Endpoints, c.VisionEnabled)
}
