package domain

const (
	DefaultProtocolVersion = "2025-11-25"
	DefaultOperatingMode   = "standard"

	DefaultRetryBaseDelayMs = 250
	DefaultRetryMaxDelayMs  = 4000
	DefaultRetryJitterMaxMs = 250
	DefaultMaxRetries       = 2

	DefaultCacheEnabled = true
	DefaultCacheTTLMs   = 600_000

	DefaultCallTimeoutMs  = 30_000
	DefaultCloseTimeoutMs = 2_000

	DefaultHTTPMaxRetries = 3
)
