package benchmark

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/observability"
	"github.com/brainscore/brainscore/pkg/score"
)

// fixed is a benchmark returning constant scores.
type fixed struct {
	*Base
	value float64
}

func (f *fixed) Score(ctx context.Context, candidate Candidate) (*score.Score, error) {
	return score.New(f.value), nil
}

func entry(id string, constructions *atomic.Int32) Entry {
	return Entry{
		Identifier: id,
		Construct: func(context.Context) (Benchmark, error) {
			constructions.Add(1)
			return &fixed{Base: NewBase(id, nil), value: 0.5}, nil
		},
	}
}

func TestPool_KeysInRegistrationOrder(t *testing.T) {
	var n atomic.Int32
	p, err := NewPool([]Entry{entry("b", &n), entry("a", &n), entry("c", &n)})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, p.Keys())
	assert.Equal(t, 3, p.Len())
	assert.True(t, p.Contains("a"))
	assert.False(t, p.Contains("d"))

	keys := p.Keys()
	keys[0] = "mutated"
	assert.Equal(t, "b", p.Keys()[0], "Keys returns a copy")
}

func TestPool_LazyConstruction(t *testing.T) {
	var n atomic.Int32
	p, err := NewPool([]Entry{entry("a", &n), entry("b", &n)})
	require.NoError(t, err)
	assert.Equal(t, int32(0), n.Load(), "nothing is built at registration")

	first, err := p.Load(context.Background(), "a")
	require.NoError(t, err)
	second, err := p.Load(context.Background(), "a")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "a", first.Identifier())
	assert.Equal(t, int32(1), n.Load())
	assert.True(t, p.Constructed("a"))
	assert.False(t, p.Constructed("b"))
	assert.False(t, p.Constructed("zzz"))
}

func TestPool_ConcurrentFirstLoadConstructsOnce(t *testing.T) {
	var n atomic.Int32
	p, err := NewPool([]Entry{entry("a", &n)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([]Benchmark, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = p.Load(context.Background(), "a")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), n.Load())
	for _, b := range got {
		assert.Same(t, got[0], b)
	}
}

func TestPool_UnknownBenchmark(t *testing.T) {
	var n atomic.Int32
	p, err := NewPool([]Entry{entry("a", &n), entry("b", &n)})
	require.NoError(t, err)

	_, err = p.Load(context.Background(), "nonexistent")
	require.True(t, bserrors.HasCode(err, bserrors.ErrCategoryBenchmark, bserrors.CodeUnknownBenchmark))
	assert.Equal(t, "[BENCHMARK:UNKNOWN_BENCHMARK] unknown benchmark 'nonexistent' - must choose from [a, b]", err.Error())

	details := bserrors.GetDetails(err)
	assert.Equal(t, "nonexistent", details["benchmark"])
	assert.Equal(t, p.Keys(), details["available"])
}

func TestPool_FailedConstructionIsRetried(t *testing.T) {
	var attempts atomic.Int32
	p, err := NewPool([]Entry{{
		Identifier: "flaky",
		Construct: func(context.Context) (Benchmark, error) {
			if attempts.Add(1) == 1 {
				return nil, errors.New("storage unavailable")
			}
			return NewBase("flaky", nil), nil
		},
	}})
	require.NoError(t, err)

	_, err = p.Load(context.Background(), "flaky")
	require.EqualError(t, err, "storage unavailable", "construction errors propagate unchanged")
	assert.False(t, p.Constructed("flaky"))

	b, err := p.Load(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, "flaky", b.Identifier())
}

func TestPool_IdentifierMismatch(t *testing.T) {
	p, err := NewPool([]Entry{{
		Identifier: "registered",
		Construct: func(context.Context) (Benchmark, error) {
			return NewBase("other", nil), nil
		},
	}})
	require.NoError(t, err)

	_, err = p.Load(context.Background(), "registered")
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryBenchmark, bserrors.CodeIdentifierMismatch))
	assert.False(t, p.Constructed("registered"))
}

func TestPool_ConstructorReturnsNothing(t *testing.T) {
	p, err := NewPool([]Entry{{
		Identifier: "empty",
		Construct: func(context.Context) (Benchmark, error) {
			return nil, nil
		},
	}})
	require.NoError(t, err)

	_, err = p.Load(context.Background(), "empty")
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryInternal, bserrors.CodeUnexpected))
	assert.False(t, p.Constructed("empty"))
}

func TestPool_UnimplementedIdentifier(t *testing.T) {
	p, err := NewPool([]Entry{{
		Identifier: "bare",
		Construct: func(context.Context) (Benchmark, error) {
			return Unimplemented{}, nil
		},
	}})
	require.NoError(t, err)

	_, err = p.Load(context.Background(), "bare")
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryBenchmark, bserrors.CodeNotImplemented))
	assert.False(t, p.Constructed("bare"))
}

func TestNewPool_Validation(t *testing.T) {
	var n atomic.Int32
	tests := []struct {
		name    string
		entries []Entry
		code    string
	}{
		{"duplicate", []Entry{entry("a", &n), entry("a", &n)}, bserrors.CodeDuplicateBenchmark},
		{"empty identifier", []Entry{entry("", &n)}, bserrors.CodeInvalidIdentifier},
		{"no constructor", []Entry{{Identifier: "a"}}, bserrors.CodeInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPool(tt.entries)
			assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryValidation, tt.code), "got %v", err)
		})
	}
}

func TestPool_RecordsLoadStats(t *testing.T) {
	var n atomic.Int32
	stats := observability.NewLoadStats(0)
	p, err := NewPool([]Entry{entry("a", &n)}, WithLoadStats(stats), WithLogger(nil))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := p.Load(context.Background(), "a")
		require.NoError(t, err)
	}
	_, _ = p.Load(context.Background(), "missing")

	top := stats.TopBenchmarks(5)
	require.Len(t, top, 1)
	assert.Equal(t, int64(3), top[0].Frequency)
}
