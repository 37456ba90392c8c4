package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/logging"
	"github.com/brainscore/brainscore/internal/observability"
)

// Constructor builds a benchmark. It runs at most once successfully per
// pool entry.
type Constructor func(ctx context.Context) (Benchmark, error)

// Entry registers a constructor under an identifier.
type Entry struct {
	Identifier string
	Construct  Constructor
}

// slot holds either a pending constructor or the constructed benchmark.
type slot struct {
	mu        sync.Mutex
	construct Constructor
	value     Benchmark
}

// Pool maps identifiers to lazily constructed benchmarks. The key set is
// fixed at construction. Each benchmark is built on its first Load and
// shared by every later Load; a failed construction is retried on the next
// Load.
type Pool struct {
	keys    []string
	slots   map[string]*slot
	logger  *slog.Logger
	metrics *observability.Metrics
	stats   *observability.LoadStats
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = logging.OrDiscard(logger) }
}

// WithMetrics records constructions and loads.
func WithMetrics(m *observability.Metrics) PoolOption {
	return func(p *Pool) { p.metrics = m }
}

// WithLoadStats records every successful load.
func WithLoadStats(s *observability.LoadStats) PoolOption {
	return func(p *Pool) { p.stats = s }
}

// NewPool creates a pool over entries, keeping their order. Identifiers
// must be non-empty and unique and every entry needs a constructor.
func NewPool(entries []Entry, opts ...PoolOption) (*Pool, error) {
	p := &Pool{
		keys:   make([]string, 0, len(entries)),
		slots:  make(map[string]*slot, len(entries)),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i, e := range entries {
		if e.Identifier == "" {
			return nil, bserrors.NewValidationError(bserrors.CodeInvalidIdentifier,
				fmt.Sprintf("entry %d has an empty identifier", i))
		}
		if e.Construct == nil {
			return nil, bserrors.NewValidationError(bserrors.CodeInvalidIdentifier,
				fmt.Sprintf("benchmark '%s' has no constructor", e.Identifier))
		}
		if _, dup := p.slots[e.Identifier]; dup {
			return nil, bserrors.NewValidationError(bserrors.CodeDuplicateBenchmark,
				fmt.Sprintf("benchmark '%s' is registered twice", e.Identifier))
		}
		p.keys = append(p.keys, e.Identifier)
		p.slots[e.Identifier] = &slot{construct: e.Construct}
	}
	return p, nil
}

// Keys returns the registered identifiers in registration order.
func (p *Pool) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Contains reports whether name is registered.
func (p *Pool) Contains(name string) bool {
	_, ok := p.slots[name]
	return ok
}

// Len returns the number of registered benchmarks.
func (p *Pool) Len() int {
	return len(p.keys)
}

// Constructed reports whether the benchmark for name has been built.
func (p *Pool) Constructed(name string) bool {
	s, ok := p.slots[name]
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value != nil
}

// Load returns the benchmark registered as name, constructing it on first
// use. Callers racing on the first Load of a name wait for one
// construction. Unknown names fail with UNKNOWN_BENCHMARK; construction
// errors are returned unchanged. A constructed benchmark without an
// identifier fails with NOT_IMPLEMENTED.
func (p *Pool) Load(ctx context.Context, name string) (Benchmark, error) {
	s, ok := p.slots[name]
	if !ok {
		p.metrics.ObserveLoad(name, "unknown")
		return nil, p.unknown(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value == nil {
		b, err := s.construct(ctx)
		p.metrics.ObserveConstruction(name, err)
		if err != nil {
			p.metrics.ObserveLoad(name, "error")
			p.logger.Warn("benchmark construction failed", "benchmark", name, "error", err)
			return nil, err
		}
		if b == nil {
			p.metrics.ObserveLoad(name, "error")
			return nil, bserrors.NewInternalError(
				fmt.Sprintf("constructor for benchmark '%s' returned no benchmark", name), nil)
		}
		if b.Identifier() == "" {
			p.metrics.ObserveLoad(name, "error")
			return nil, notImplemented("Identifier")
		}
		if b.Identifier() != name {
			p.metrics.ObserveLoad(name, "error")
			return nil, bserrors.NewBenchmarkError(bserrors.CodeIdentifierMismatch,
				fmt.Sprintf("benchmark registered as '%s' reports identifier '%s'", name, b.Identifier()))
		}
		s.value = b
		p.logger.Info("constructed benchmark", "benchmark", name)
	}

	p.metrics.ObserveLoad(name, "success")
	p.stats.Record(name, "load")
	return s.value, nil
}

func (p *Pool) unknown(name string) error {
	available := p.Keys()
	return bserrors.NewBenchmarkError(bserrors.CodeUnknownBenchmark,
		fmt.Sprintf("unknown benchmark '%s' - must choose from [%s]", name, strings.Join(available, ", "))).
		WithDetails(map[string]interface{}{
			"benchmark": name,
			"available": available,
		})
}
