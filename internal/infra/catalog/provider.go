// Package catalog provides the read-through capability catalog and name
// resolution against it. Snapshots come from process memory, the on-disk
// cache, or live discovery, in that order; only live discovery touches
// the transport.
package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"capcall/internal/domain"
	"capcall/internal/infra/catalogcache"
	"capcall/internal/infra/telemetry"
	"capcall/internal/infra/transport"
)

// Sessions is the slice of the session manager discovery needs.
type Sessions interface {
	EnsureReady(ctx context.Context) (uint64, error)
}

type Provider struct {
	sessions  Sessions
	transport transport.Transport
	cache     *catalogcache.Cache
	logger    *zap.Logger
	metrics   domain.Metrics

	mu   sync.RWMutex
	snap domain.CatalogSnapshot
	have bool
}

type Options struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// NewProvider wires the catalog read path. cache must be non-nil; a
// disabled cache simply never hits.
func NewProvider(sessions Sessions, t transport.Transport, cache *catalogcache.Cache, opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	} else {
		logger = logger.Named("catalog")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Provider{
		sessions:  sessions,
		transport: t,
		cache:     cache,
		logger:    logger,
		metrics:   metrics,
	}
}

// Snapshot returns the current catalog. force bypasses the in-memory
// copy and the disk cache and always discovers live. A snapshot's Source
// records where its descriptors were obtained; cache-sourced descriptors
// are redacted on disk and must not be trusted for schema validation.
func (p *Provider) Snapshot(ctx context.Context, force bool) (domain.CatalogSnapshot, error) {
	if !force {
		if snap, ok := p.memory(); ok {
			p.metrics.ObserveCatalogSnapshot(domain.CatalogSourceMemory, len(snap.Capabilities))
			return snap, nil
		}
		if entry, ok := p.cache.Read(time.Now()); ok {
			snap := domain.CatalogSnapshot{
				ETag:         catalogETag(entry.Catalog),
				Source:       domain.CatalogSourceCache,
				CapturedAt:   entry.CapturedAt(),
				Capabilities: entry.Catalog,
			}
			p.remember(snap)
			p.metrics.ObserveCatalogSnapshot(domain.CatalogSourceCache, len(snap.Capabilities))
			return snap, nil
		}
	}
	return p.discover(ctx)
}

func (p *Provider) discover(ctx context.Context) (domain.CatalogSnapshot, error) {
	if _, err := p.sessions.EnsureReady(ctx); err != nil {
		return domain.CatalogSnapshot{}, err
	}
	capabilities, err := p.transport.ListCapabilities(ctx)
	if err != nil {
		return domain.CatalogSnapshot{}, domain.Classify("discover", err)
	}

	snap := domain.CatalogSnapshot{
		ETag:         catalogETag(capabilities),
		Source:       domain.CatalogSourceLive,
		CapturedAt:   time.Now(),
		Capabilities: capabilities,
	}
	p.remember(snap)
	p.cache.Write(capabilities)
	p.metrics.ObserveCatalogSnapshot(domain.CatalogSourceLive, len(capabilities))
	p.logger.Info("catalog discovered",
		telemetry.EventField(telemetry.EventCatalogRefresh),
		telemetry.ETagField(snap.ETag),
		zap.Int("capabilities", len(capabilities)),
	)
	return snap, nil
}

func (p *Provider) memory() (domain.CatalogSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.have {
		return domain.CatalogSnapshot{}, false
	}
	return p.snap.Clone(), true
}

func (p *Provider) remember(snap domain.CatalogSnapshot) {
	clone := snap.Clone()
	p.mu.Lock()
	p.snap = clone
	p.have = true
	p.mu.Unlock()
}
