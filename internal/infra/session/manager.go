// Package session owns the one shared transport session per client and
// its state machine. Registration is single-flight; teardown is bounded
// by a fixed timeout and never fails the caller.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"capcall/internal/domain"
	"capcall/internal/infra/telemetry"
	"capcall/internal/infra/transport"
)

// Manager drives the session lifecycle. Every successful registration
// produces a new generation; Recycle only tears down the generation the
// caller observed, so a call racing against an already-recreated session
// leaves the newer one alone.
type Manager struct {
	transport    transport.Transport
	endpoints    []domain.EndpointSpec
	closeTimeout time.Duration
	logger       *zap.Logger
	metrics      domain.Metrics

	flight singleflight.Group

	mu         sync.Mutex
	state      domain.SessionState
	generation uint64
	sessionID  string
	closed     bool
}

type Options struct {
	// CloseTimeout bounds how long teardown waits for the transport
	// before abandoning it. Defaults to domain.DefaultCloseTimeoutMs.
	CloseTimeout time.Duration
	Logger       *zap.Logger
	Metrics      domain.Metrics
}

func NewManager(t transport.Transport, endpoints []domain.EndpointSpec, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	} else {
		logger = logger.Named("session")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	closeTimeout := opts.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = domain.DefaultCloseTimeoutMs * time.Millisecond
	}
	return &Manager{
		transport:    t,
		endpoints:    append([]domain.EndpointSpec(nil), endpoints...),
		closeTimeout: closeTimeout,
		logger:       logger,
		metrics:      metrics,
		state:        domain.SessionUninitialized,
	}
}

// EnsureReady returns the generation of a ready session, registering the
// configured endpoints first when needed. Concurrent callers share one
// in-flight registration; a failed attempt clears the flight so the next
// caller starts from scratch.
func (m *Manager) EnsureReady(ctx context.Context) (uint64, error) {
	gen, ready, err := m.snapshot()
	if err != nil || ready {
		return gen, err
	}

	result, err, _ := m.flight.Do("register", func() (any, error) {
		gen, ready, err := m.snapshot()
		if err != nil || ready {
			return gen, err
		}
		return m.register(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

func (m *Manager) snapshot() (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, false, domain.ErrSessionClosed
	}
	return m.generation, m.state == domain.SessionReady, nil
}

func (m *Manager) register(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, domain.ErrSessionClosed
	}
	m.state = domain.SessionInitializing
	m.mu.Unlock()
	m.metrics.SetSessionState(domain.SessionInitializing)

	sessionID := uuid.NewString()
	start := time.Now()
	m.logger.Info("session registration started",
		telemetry.EventField(telemetry.EventRegisterAttempt),
		telemetry.SessionIDField(sessionID),
		zap.Int("endpoints", len(m.endpoints)),
	)

	result, err := m.transport.Register(ctx, m.endpoints)
	if err == nil && !result.Success {
		msg := strings.Join(result.Errors, "; ")
		if msg == "" {
			msg = "registration failed"
		}
		err = errors.New(msg)
	}
	m.metrics.ObserveRegister(time.Since(start), err)

	if err != nil {
		m.mu.Lock()
		stillOpen := !m.closed
		if stillOpen {
			m.state = domain.SessionUninitialized
		}
		m.mu.Unlock()
		if stillOpen {
			m.metrics.SetSessionState(domain.SessionUninitialized)
		}

		classified := domain.Classify("register", err)
		m.logger.Warn("session registration failed",
			telemetry.EventField(telemetry.EventRegisterFailure),
			telemetry.SessionIDField(sessionID),
			telemetry.ErrorKindField(string(classified.Kind)),
			zap.Error(err),
		)
		return 0, classified
	}

	m.mu.Lock()
	if m.closed {
		// Close ran while we were registering; the transport now holds
		// fresh connections that nothing will use.
		m.mu.Unlock()
		m.closeTransport(ctx)
		return 0, domain.ErrSessionClosed
	}
	m.generation++
	gen := m.generation
	m.state = domain.SessionReady
	m.sessionID = sessionID
	m.mu.Unlock()
	m.metrics.SetSessionState(domain.SessionReady)

	m.logger.Info("session ready",
		telemetry.EventField(telemetry.EventRegisterSuccess),
		telemetry.SessionIDField(sessionID),
		telemetry.GenerationField(gen),
		telemetry.DurationField(time.Since(start)),
	)
	return gen, nil
}

// Recycle tears down the session if generation is still the live one. A
// stale generation means another caller already recycled it or a newer
// session is up; the call is then a no-op.
func (m *Manager) Recycle(ctx context.Context, generation uint64) {
	m.mu.Lock()
	if m.closed || m.state != domain.SessionReady || m.generation != generation {
		m.mu.Unlock()
		return
	}
	m.state = domain.SessionUninitialized
	sessionID := m.sessionID
	m.sessionID = ""
	m.mu.Unlock()

	m.metrics.ObserveSessionRecycle()
	m.metrics.SetSessionState(domain.SessionUninitialized)
	m.logger.Info("session recycled",
		telemetry.EventField(telemetry.EventSessionRecycle),
		telemetry.SessionIDField(sessionID),
		telemetry.GenerationField(generation),
	)

	m.closeTransport(ctx)
}

// Close tears the session down permanently. It is bounded by the close
// timeout and never returns an error; a hung transport is abandoned.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessionID := m.sessionID
	m.state = domain.SessionClosed
	m.sessionID = ""
	m.mu.Unlock()

	m.metrics.SetSessionState(domain.SessionClosed)
	m.logger.Info("session closed",
		telemetry.EventField(telemetry.EventTeardown),
		telemetry.SessionIDField(sessionID),
		telemetry.StateField(string(domain.SessionClosed)),
	)

	m.closeTransport(ctx)
	return nil
}

// State reports the current lifecycle state.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// closeTransport races the underlying close against the close timeout.
// The close keeps running in its own goroutine if abandoned; we only
// stop waiting for it.
func (m *Manager) closeTransport(ctx context.Context) {
	done := make(chan error, 1)
	go func() {
		done <- m.transport.Close(context.Background())
	}()

	timer := time.NewTimer(m.closeTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Warn("transport close failed",
				telemetry.EventField(telemetry.EventTeardown),
				zap.Error(err),
			)
		}
	case <-timer.C:
		m.logger.Warn("transport close timed out",
			telemetry.EventField(telemetry.EventTeardownTimeout),
			telemetry.DurationField(m.closeTimeout),
		)
	case <-ctx.Done():
	}
}
