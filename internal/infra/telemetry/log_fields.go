package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent        = "event"
	FieldEndpoint     = "endpoint"
	FieldCapability   = "capability"
	FieldSessionID    = "sessionID"
	FieldInvocationID = "invocationID"
	FieldGeneration   = "generation"
	FieldState        = "state"
	FieldAttempt      = "attempt"
	FieldDurationMs   = "duration_ms"
	FieldDelayMs      = "delay_ms"
	FieldErrorKind    = "error_kind"
	FieldFingerprint  = "fingerprint"
	FieldSource       = "source"
	FieldETag         = "etag"
	FieldPath         = "path"
)

const (
	EventRegisterAttempt = "register_attempt"
	EventRegisterSuccess = "register_success"
	EventRegisterFailure = "register_failure"
	EventSessionRecycle  = "session_recycle"
	EventTeardown        = "teardown"
	EventTeardownTimeout = "teardown_timeout"
	EventInvokeRetry     = "invoke_retry"
	EventInvokeFailure   = "invoke_failure"
	EventCatalogRefresh  = "catalog_refresh"
	EventCacheHit        = "cache_hit"
	EventCacheMiss       = "cache_miss"
	EventCacheWriteSkip  = "cache_write_skip"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func EndpointField(endpoint string) zap.Field {
	return zap.String(FieldEndpoint, endpoint)
}

func CapabilityField(capability string) zap.Field {
	return zap.String(FieldCapability, capability)
}

func SessionIDField(sessionID string) zap.Field {
	return zap.String(FieldSessionID, sessionID)
}

func InvocationIDField(id string) zap.Field {
	return zap.String(FieldInvocationID, id)
}

func GenerationField(generation uint64) zap.Field {
	return zap.Uint64(FieldGeneration, generation)
}

func StateField(state string) zap.Field {
	return zap.String(FieldState, state)
}

func AttemptField(attempt int) zap.Field {
	return zap.Int(FieldAttempt, attempt)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func DelayField(delay time.Duration) zap.Field {
	return zap.Int64(FieldDelayMs, delay.Milliseconds())
}

func ErrorKindField(kind string) zap.Field {
	return zap.String(FieldErrorKind, kind)
}

func FingerprintField(fingerprint string) zap.Field {
	return zap.String(FieldFingerprint, fingerprint)
}

func SourceField(source string) zap.Field {
	return zap.String(FieldSource, source)
}

func ETagField(etag string) zap.Field {
	return zap.String(FieldETag, etag)
}

func PathField(path string) zap.Field {
	return zap.String(FieldPath, path)
}
