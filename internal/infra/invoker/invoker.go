// Package invoker executes resolved capability invocations with bounded,
// classified retries. Retriable failures recycle the shared session and
// back off exponentially; terminal failures surface immediately.
package invoker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"capcall/internal/domain"
	"capcall/internal/infra/telemetry"
	"capcall/internal/infra/transport"
)

// Sessions is the slice of the session manager the invoker drives. A
// retrying call only recycles the generation it observed, so a session
// another caller already replaced is left alone.
type Sessions interface {
	EnsureReady(ctx context.Context) (uint64, error)
	Recycle(ctx context.Context, generation uint64)
}

type Invoker struct {
	sessions  Sessions
	transport transport.Transport
	policy    domain.RetryPolicy
	logger    *zap.Logger
	metrics   domain.Metrics
}

type Options struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
}

func New(sessions Sessions, t transport.Transport, policy domain.RetryPolicy, opts Options) *Invoker {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	} else {
		logger = logger.Named("invoker")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Invoker{
		sessions:  sessions,
		transport: t,
		policy:    policy,
		logger:    logger,
		metrics:   metrics,
	}
}

// Invoke calls one capability by fully qualified name. Resolution happens
// upstream; args pass through to the transport unvalidated. The retry
// budget comes from the policy's namespace overrides, with the global
// default as fallback; an interrupted backoff surfaces the failure that
// triggered it.
func (i *Invoker) Invoke(ctx context.Context, name string, args any) (any, error) {
	const op = "invoke"

	ctx, _ = telemetry.EnsureInvocationID(ctx)
	logger := telemetry.LoggerWithInvocation(ctx, i.logger)

	budget := i.policy.RetriesFor(name)
	wait := newBackoff(i.policy)
	start := time.Now()
	attempt := 0

	for {
		generation, err := i.sessions.EnsureReady(ctx)
		haveSession := err == nil
		if err == nil {
			var raw any
			raw, err = i.transport.Invoke(ctx, name, args)
			if err == nil {
				i.observe(name, domain.InvokeStatusSuccess, "", attempt+1, start)
				return parseResult(raw), nil
			}
		}

		attempt++
		classified := domain.Classify(op, err)
		if !classified.Retryable || attempt > budget {
			logger.Warn("capability invocation failed",
				telemetry.EventField(telemetry.EventInvokeFailure),
				telemetry.CapabilityField(name),
				telemetry.AttemptField(attempt),
				telemetry.ErrorKindField(string(classified.Kind)),
				zap.Error(err),
			)
			i.observe(name, domain.InvokeStatusError, classified.Kind, attempt, start)
			return nil, classified
		}

		// The transport may be corrupted; force the next attempt onto a
		// fresh session. EnsureReady failures already left no session up.
		if haveSession {
			i.sessions.Recycle(ctx, generation)
		}

		delay := wait.Next()
		i.metrics.ObserveRetry(name, classified.Kind)
		logger.Info("retrying capability invocation",
			telemetry.EventField(telemetry.EventInvokeRetry),
			telemetry.CapabilityField(name),
			telemetry.AttemptField(attempt),
			telemetry.DelayField(delay),
			telemetry.ErrorKindField(string(classified.Kind)),
			zap.Error(err),
		)
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			i.observe(name, domain.InvokeStatusError, classified.Kind, attempt, start)
			return nil, classified
		}
	}
}

func (i *Invoker) observe(name string, status domain.InvokeStatus, kind domain.ErrorKind, attempts int, start time.Time) {
	i.metrics.ObserveInvoke(domain.InvokeMetric{
		Capability: name,
		Status:     status,
		Kind:       kind,
		Attempts:   attempts,
		Duration:   time.Since(start),
	})
}

// parseResult decodes string payloads that contain JSON. Backends often
// fold structured results into a text block; callers want the structure
// back. Anything that does not parse passes through unchanged.
func parseResult(raw any) any {
	text, ok := raw.(string)
	if !ok {
		return raw
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return raw
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return raw
	}
	return parsed
}
