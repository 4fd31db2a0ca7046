package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type invocationContextKey struct{}

// WithInvocationID tags ctx with an invocation correlation id. Retries,
// session recycles and the final outcome of one call all log under the
// same id.
func WithInvocationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, invocationContextKey{}, id)
}

func InvocationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(invocationContextKey{}).(string)
	return id, ok && id != ""
}

func NewInvocationID() string {
	return uuid.NewString()
}

// EnsureInvocationID returns ctx carrying an invocation id, minting one
// when absent.
func EnsureInvocationID(ctx context.Context) (context.Context, string) {
	if id, ok := InvocationIDFromContext(ctx); ok {
		return ctx, id
	}
	id := NewInvocationID()
	return WithInvocationID(ctx, id), id
}

// LoggerWithInvocation returns base annotated with the invocation id from
// ctx, or base unchanged when there is none.
func LoggerWithInvocation(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if logger == nil {
		logger = zap.NewNop()
	}
	id, ok := InvocationIDFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(InvocationIDField(id))
}
