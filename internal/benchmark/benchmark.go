// Package benchmark defines the benchmark contract, a base implementation
// with a memoized ceiling, ceiling normalization, and the lazily
// constructed benchmark pool.
package benchmark

import (
	"context"

	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/pkg/score"
)

// Candidate is the model under evaluation. Its capabilities are defined by
// the benchmark that scores it.
type Candidate any

// Benchmark scores candidates against measurements and reports the best
// achievable score.
type Benchmark interface {
	// Score evaluates candidate.
	Score(ctx context.Context, candidate Candidate) (*score.Score, error)

	// Identifier is the stable unique benchmark name.
	Identifier() string

	// Ceiling is the empirical upper bound on Score.
	Ceiling(ctx context.Context) (*score.Score, error)
}

// Unimplemented is the bare contract. Every member fails with
// NOT_IMPLEMENTED; embed it and override what the variant supports.
type Unimplemented struct{}

func (Unimplemented) Score(ctx context.Context, candidate Candidate) (*score.Score, error) {
	return nil, notImplemented("Score")
}

// Identifier returns the empty string, which Pool.Load rejects with
// NOT_IMPLEMENTED.
func (Unimplemented) Identifier() string {
	return ""
}

func (Unimplemented) Ceiling(ctx context.Context) (*score.Score, error) {
	return nil, notImplemented("Ceiling")
}

func notImplemented(member string) error {
	return bserrors.NewBenchmarkError(bserrors.CodeNotImplemented, member+" is not implemented").
		WithDetails(map[string]interface{}{"member": member})
}
