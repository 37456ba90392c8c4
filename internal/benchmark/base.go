package benchmark

import (
	"context"

	"github.com/brainscore/brainscore/internal/cache"
	"github.com/brainscore/brainscore/pkg/score"
)

// CeilingFunction names ceiling entries in the result cache.
const CeilingFunction = "benchmark.Base.ceiling"

// CeilingFunc computes a benchmark ceiling. It is expected to be expensive
// and deterministic.
type CeilingFunc func(ctx context.Context) (*score.Score, error)

// CeilingKey is the cache key of the ceiling for identifier.
func CeilingKey(identifier string) cache.Key {
	return cache.NewKey(CeilingFunction, "identifier", identifier)
}

// Base stores an identifier and a ceiling function. Ceilings are memoized
// by identifier, not by instance: two bases with the same identifier share
// one cache entry. Score is not implemented; variants embed Base and add it.
type Base struct {
	Unimplemented

	identifier  string
	ceilingFunc CeilingFunc
	memo        *cache.Memo
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithCeilingCache memoizes ceilings in memo instead of the process-wide
// in-memory default.
func WithCeilingCache(memo *cache.Memo) BaseOption {
	return func(b *Base) {
		if memo != nil {
			b.memo = memo
		}
	}
}

// NewBase creates a base. The identifier is stored verbatim.
func NewBase(identifier string, ceiling CeilingFunc, opts ...BaseOption) *Base {
	b := &Base{
		identifier:  identifier,
		ceilingFunc: ceiling,
		memo:        cache.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Base) Identifier() string {
	return b.identifier
}

// Ceiling returns the memoized ceiling, computing it at most once per
// identifier for the life of the cache. Concurrent first reads share one
// computation.
func (b *Base) Ceiling(ctx context.Context) (*score.Score, error) {
	if b.ceilingFunc == nil {
		return b.Unimplemented.Ceiling(ctx)
	}
	return cache.Cached(ctx, b.memo, CeilingKey(b.identifier), func(ctx context.Context) (*score.Score, error) {
		return b.ceilingFunc(ctx)
	})
}
