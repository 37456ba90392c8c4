package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/brainscore/brainscore/internal/logging"
	"github.com/brainscore/brainscore/internal/observability"
)

// Options configures a Memo.
type Options struct {
	// Disable lists function names that always recompute and never touch
	// the store.
	Disable []string

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Stats is a snapshot of memo counters.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Bypasses int64 `json:"bypasses"`
	Errors   int64 `json:"errors"`
}

// Memo memoizes computations in a Store. Concurrent callers asking for the
// same key share one computation. Store failures degrade to recomputation
// and are logged, never returned.
type Memo struct {
	store    Store
	group    singleflight.Group
	disabled map[string]bool
	logger   *slog.Logger
	metrics  *observability.Metrics

	hits     atomic.Int64
	misses   atomic.Int64
	bypasses atomic.Int64
	errors   atomic.Int64
}

// NewMemo creates a memo over store.
func NewMemo(store Store, opts Options) *Memo {
	disabled := make(map[string]bool, len(opts.Disable))
	for _, fn := range opts.Disable {
		disabled[fn] = true
	}
	return &Memo{
		store:    store,
		disabled: disabled,
		logger:   logging.OrDiscard(opts.Logger),
		metrics:  opts.Metrics,
	}
}

var (
	defaultOnce sync.Once
	defaultMemo *Memo
)

// Default returns the process-wide in-memory memo.
func Default() *Memo {
	defaultOnce.Do(func() {
		defaultMemo = NewMemo(NewMemoryStore(), Options{})
	})
	return defaultMemo
}

// Store returns the underlying store.
func (m *Memo) Store() Store {
	return m.store
}

// Disabled reports whether function bypasses the store.
func (m *Memo) Disabled(function string) bool {
	return m.disabled[function]
}

// Stats returns a snapshot of the counters.
func (m *Memo) Stats() Stats {
	return Stats{
		Hits:     m.hits.Load(),
		Misses:   m.misses.Load(),
		Bypasses: m.bypasses.Load(),
		Errors:   m.errors.Load(),
	}
}

// Invalidate deletes every stored result of function and returns how many
// entries were removed.
func (m *Memo) Invalidate(ctx context.Context, function string) (int, error) {
	keys, err := m.store.Keys(ctx, function)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, k := range keys {
		if k != function && !strings.HasPrefix(k, function+"/") {
			continue
		}
		if err := m.store.Delete(ctx, k); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Close closes the underlying store.
func (m *Memo) Close() error {
	return m.store.Close()
}

// Cached returns the memoized value for key, calling compute on a miss.
//
// Every caller receives its own decoded copy, on hits and misses alike, so
// results never alias between callers. Errors from compute are returned
// and not stored. A value that cannot be encoded is returned as computed
// and recomputed on the next call. A nil memo always computes.
func Cached[T any](ctx context.Context, m *Memo, key Key, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	if m == nil {
		return compute(ctx)
	}

	fn := key.Function
	if m.disabled[fn] {
		m.bypasses.Add(1)
		m.metrics.ObserveCacheLookup(fn, observability.CacheBypass)
		return compute(ctx)
	}

	id := key.String()
	if out, ok := lookup[T](ctx, m, fn, id); ok {
		return out, nil
	}

	v, err, shared := m.group.Do(id, func() (interface{}, error) {
		// Another flight may have stored the value since our read.
		if data, ok := m.read(ctx, fn, id); ok {
			var stored T
			if Decode(data, &stored) == nil {
				m.hit(fn)
				return data, nil
			}
		}
		m.misses.Add(1)
		m.metrics.ObserveCacheLookup(fn, observability.CacheMiss)

		start := time.Now()
		value, err := compute(ctx)
		m.metrics.ObserveCompute(fn, time.Since(start))
		if err != nil {
			return nil, err
		}

		encoded, err := Encode(value)
		if err != nil {
			m.errors.Add(1)
			m.metrics.ObserveCacheError(fn, "encode")
			m.logger.Warn("result not storable", "key", id, "error", err)
			return unstored[T]{value: value}, nil
		}
		if err := m.store.Put(ctx, id, encoded); err != nil {
			m.errors.Add(1)
			m.metrics.ObserveCacheError(fn, "write")
			m.logger.Warn("failed to store result", "key", id, "error", err)
		}
		m.logger.Debug("computed result", "key", id, "duration", time.Since(start))
		return encoded, nil
	})
	if err != nil {
		return zero, err
	}
	if shared {
		m.logger.Debug("shared in-flight computation", "key", id)
	}

	if u, ok := v.(unstored[T]); ok {
		return u.value, nil
	}
	var out T
	if err := Decode(v.([]byte), &out); err != nil {
		return zero, err
	}
	return out, nil
}

// unstored carries a computed value that could not be encoded. Callers
// sharing its flight receive the same value.
type unstored[T any] struct {
	value T
}

// lookup returns a decoded stored value. Undecodable entries are logged
// and treated as misses, so the next computation overwrites them.
func lookup[T any](ctx context.Context, m *Memo, fn, id string) (T, bool) {
	var out T
	data, ok := m.read(ctx, fn, id)
	if !ok {
		return out, false
	}
	if err := Decode(data, &out); err != nil {
		m.errors.Add(1)
		m.metrics.ObserveCacheError(fn, "decode")
		m.logger.Warn("discarding undecodable cached result", "key", id, "error", err)
		var zero T
		return zero, false
	}
	m.hit(fn)
	return out, true
}

// read returns the stored bytes for id. Backend failures count as misses.
func (m *Memo) read(ctx context.Context, fn, id string) ([]byte, bool) {
	data, ok, err := m.store.Get(ctx, id)
	if err != nil {
		m.errors.Add(1)
		m.metrics.ObserveCacheError(fn, "read")
		m.logger.Warn("failed to read cached result", "key", id, "error", err)
		return nil, false
	}
	return data, ok
}

func (m *Memo) hit(fn string) {
	m.hits.Add(1)
	m.metrics.ObserveCacheLookup(fn, observability.CacheHit)
}
