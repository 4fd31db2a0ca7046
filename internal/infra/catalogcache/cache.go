// Package catalogcache persists catalog snapshots between process
// invocations. The cache is a latency optimization, never a correctness
// dependency: reads fail soft on any problem and writes swallow I/O
// errors. Every descriptor is redacted before it touches disk.
package catalogcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"capcall/internal/domain"
	"capcall/internal/infra/redact"
	"capcall/internal/infra/telemetry"
)

// FormatVersion is bumped whenever the entry layout changes; entries
// written by other versions are treated as absent.
const FormatVersion = 1

const cacheDirName = "capcall"

// Entry is the persisted representation of one catalog snapshot. Entries
// are created on write and never mutated in place.
type Entry struct {
	FormatVersion     int                           `json:"formatVersion"`
	CapturedAtEpochMs int64                         `json:"capturedAtEpochMs"`
	Catalog           []domain.CapabilityDescriptor `json:"catalog"`
}

// CapturedAt returns the entry's capture time.
func (e Entry) CapturedAt() time.Time {
	return time.UnixMilli(e.CapturedAtEpochMs)
}

type Cache struct {
	enabled     bool
	ttl         time.Duration
	fingerprint string
	path        string
	redactor    *redact.Redactor
	logger      *zap.Logger
}

type Options struct {
	Enabled bool
	// TTL bounds entry age on read. Zero or negative disables reads while
	// leaving writes best-effort.
	TTL time.Duration
	// Dir overrides the platform cache directory.
	Dir      string
	Redactor *redact.Redactor
	Logger   *zap.Logger
}

// New builds the cache for one configuration fingerprint. The entry
// location is resolved once: the explicit Dir override when set, else the
// platform user cache directory.
func New(fingerprint string, opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	} else {
		logger = logger.Named("catalogcache")
	}
	redactor := opts.Redactor
	if redactor == nil {
		redactor = redact.New("")
	}

	c := &Cache{
		enabled:     opts.Enabled,
		ttl:         opts.TTL,
		fingerprint: fingerprint,
		redactor:    redactor,
		logger:      logger,
	}

	dir := opts.Dir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			logger.Debug("no user cache directory, caching unavailable", zap.Error(err))
			return c
		}
		dir = filepath.Join(base, cacheDirName)
	}
	c.path = filepath.Join(dir, fmt.Sprintf("tools-%s.json", fingerprint))
	return c
}

// Path returns the entry's file location, or "" when no cache location
// could be resolved.
func (c *Cache) Path() string {
	return c.path
}

// Fingerprint returns the cache partition key this cache reads and
// writes.
func (c *Cache) Fingerprint() string {
	return c.fingerprint
}

// Read returns the stored entry when caching is enabled and the entry is
// present, well-formed, version-matched, and younger than the TTL at
// now. Every failure is a miss; none is an error.
func (c *Cache) Read(now time.Time) (Entry, bool) {
	if !c.enabled || c.ttl <= 0 || c.path == "" {
		return Entry{}, false
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("cache read failed",
				telemetry.EventField(telemetry.EventCacheMiss),
				telemetry.PathField(c.path),
				zap.Error(err),
			)
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Debug("cache entry unparsable",
			telemetry.EventField(telemetry.EventCacheMiss),
			telemetry.PathField(c.path),
			zap.Error(err),
		)
		return Entry{}, false
	}
	if entry.FormatVersion != FormatVersion {
		c.logger.Debug("cache entry format mismatch",
			telemetry.EventField(telemetry.EventCacheMiss),
			telemetry.PathField(c.path),
			zap.Int("format_version", entry.FormatVersion),
		)
		return Entry{}, false
	}
	if age := now.Sub(entry.CapturedAt()); age > c.ttl {
		c.logger.Debug("cache entry expired",
			telemetry.EventField(telemetry.EventCacheMiss),
			telemetry.PathField(c.path),
			telemetry.DurationField(age),
		)
		return Entry{}, false
	}

	c.logger.Debug("cache entry hit",
		telemetry.EventField(telemetry.EventCacheHit),
		telemetry.PathField(c.path),
		zap.Int("capabilities", len(entry.Catalog)),
	)
	return entry, true
}

// Write persists a redacted copy of catalog, best-effort. The caller's
// descriptors are never mutated; any failure is logged at debug and
// swallowed. Concurrent writers race with last-write-wins semantics.
func (c *Cache) Write(catalog []domain.CapabilityDescriptor) {
	if !c.enabled || c.path == "" {
		return
	}

	entry := Entry{
		FormatVersion:     FormatVersion,
		CapturedAtEpochMs: time.Now().UnixMilli(),
		Catalog:           c.redactor.Catalog(catalog),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.writeSkipped("marshal cache entry failed", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.writeSkipped("ensure cache directory failed", err)
		return
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		c.writeSkipped("write cache entry failed", err)
	}
}

func (c *Cache) writeSkipped(msg string, err error) {
	c.logger.Debug(msg,
		telemetry.EventField(telemetry.EventCacheWriteSkip),
		telemetry.PathField(c.path),
		zap.Error(err),
	)
}

// Clear removes the entry for this fingerprint. A missing entry is not
// an error.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// Info describes the cache entry for diagnostics. It inspects the file
// regardless of the enabled flag and TTL so operators see what is
// actually on disk.
type Info struct {
	Path              string `json:"path"`
	Fingerprint       string `json:"fingerprint"`
	Enabled           bool   `json:"enabled"`
	TTLMs             int64  `json:"ttlMs"`
	Exists            bool   `json:"exists"`
	FormatVersion     int    `json:"formatVersion,omitempty"`
	CapturedAtEpochMs int64  `json:"capturedAtEpochMs,omitempty"`
	AgeMs             int64  `json:"ageMs,omitempty"`
	Expired           bool   `json:"expired,omitempty"`
	Capabilities      int    `json:"capabilities,omitempty"`
}

func (c *Cache) Info(now time.Time) Info {
	info := Info{
		Path:        c.path,
		Fingerprint: c.fingerprint,
		Enabled:     c.enabled,
		TTLMs:       c.ttl.Milliseconds(),
	}
	if c.path == "" {
		return info
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return info
	}
	info.Exists = true

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return info
	}
	info.FormatVersion = entry.FormatVersion
	info.CapturedAtEpochMs = entry.CapturedAtEpochMs
	age := now.Sub(entry.CapturedAt())
	info.AgeMs = age.Milliseconds()
	info.Expired = c.ttl <= 0 || age > c.ttl
	info.Capabilities = len(entry.Catalog)
	return info
}
