package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/backlogcast/backlogcast/pkg/estat"
	"github.com/backlogcast/backlogcast/pkg/types"
)

// DefaultTTL is how long a loaded snapshot is served before the next read
// reloads it.
const DefaultTTL = time.Hour

var (
	// ErrDataUnavailable means the snapshot file could not be read. Retryable.
	ErrDataUnavailable = errors.New("store: data unavailable")

	// ErrDataCorrupt means the snapshot file exists but cannot be parsed.
	// Retrying will not help until the file is replaced.
	ErrDataCorrupt = errors.New("store: data corrupt")
)

// Snapshot is one fully normalized load of the batch file. It is never
// modified after it has been published to readers.
type Snapshot struct {
	Records []types.Record
	Periods []string // distinct periods, ascending
	Skipped int      // raw entries dropped for malformed time codes
}

type cacheState struct {
	snapshot *Snapshot
	loadedAt time.Time
}

// Observer receives the outcome of every reload.
type Observer interface {
	ObserveReload(elapsed time.Duration, records int, err error)
}

// Store serves filtered views of the cached snapshot.
//
// The cache is a single atomic pointer. Two readers that both find it stale
// may both reload; the reload is a pure function of the file, so the extra
// load is wasted work and never corruption. No lock guards it.
type Store struct {
	path      string
	ttl       time.Duration
	hierarchy types.Hierarchy
	observer  Observer
	cache     atomic.Pointer[cacheState]
	now       func() time.Time // injectable for deterministic tests
}

// Option configures a Store.
type Option func(*Store)

// WithHierarchy overrides the default region hierarchy used for deaggregation.
func WithHierarchy(h types.Hierarchy) Option {
	return func(s *Store) { s.hierarchy = h }
}

// WithObserver reports reload outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// New creates a Store reading the batch file at path. A non-positive ttl
// falls back to DefaultTTL.
func New(path string, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		path:      path,
		ttl:       ttl,
		hierarchy: types.DefaultHierarchy(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the snapshot file path.
func (s *Store) Path() string { return s.path }

// TTL returns the configured cache lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// All returns the records of the current snapshot that match f.
// The returned slice is owned by the caller.
func (s *Store) All(f types.Filter) ([]types.Record, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return f.Apply(snap.Records), nil
}

// Periods returns every period present in the current snapshot, ascending.
func (s *Store) Periods() ([]string, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), snap.Periods...), nil
}

// Current returns the cached snapshot, reloading it first when the cache is
// empty or older than the TTL.
func (s *Store) Current() (*Snapshot, error) {
	if st := s.cache.Load(); st != nil && s.now().Sub(st.loadedAt) < s.ttl {
		return st.snapshot, nil
	}

	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	s.cache.Store(&cacheState{snapshot: snap, loadedAt: s.now()})
	return snap, nil
}

// Invalidate drops the cached snapshot so the next read reloads the file.
func (s *Store) Invalidate() {
	s.cache.Store(nil)
	slog.Info("store: cache invalidated", "path", s.path)
}

// LoadedAt returns when the cached snapshot was loaded, or the zero time if
// the cache is empty.
func (s *Store) LoadedAt() time.Time {
	if st := s.cache.Load(); st != nil {
		return st.loadedAt
	}
	return time.Time{}
}

// Load reads and normalizes the batch file without touching the cache.
func (s *Store) Load() (snap *Snapshot, err error) {
	start := time.Now()
	defer func() {
		if s.observer != nil {
			n := 0
			if snap != nil {
				n = len(snap.Records)
			}
			s.observer.ObserveReload(time.Since(start), n, err)
		}
	}()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Error("store: data file not found", "path", s.path)
		} else {
			slog.Error("store: open data file", "path", s.path, "err", err)
		}
		return nil, fmt.Errorf("%w: open %q: %w", ErrDataUnavailable, s.path, err)
	}
	defer f.Close()

	payload, err := estat.Decode(f)
	if err != nil {
		slog.Error("store: parse data file", "path", s.path, "err", err)
		return nil, fmt.Errorf("%w: %q: %w", ErrDataCorrupt, s.path, err)
	}

	snap = Normalize(payload.Entries(), s.hierarchy)
	if snap.Skipped > 0 {
		slog.Warn("store: skipped entries with malformed time codes",
			"path", s.path, "count", snap.Skipped)
	}
	slog.Info("store: snapshot loaded",
		"path", s.path,
		"records", len(snap.Records),
		"periods", len(snap.Periods),
		"elapsed", time.Since(start),
	)
	return snap, nil
}
