package benchmark

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainscore/brainscore/internal/cache"
	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/pkg/score"
)

func countingCeiling(calls *atomic.Int32, center float64) CeilingFunc {
	return func(context.Context) (*score.Score, error) {
		calls.Add(1)
		return score.NewAggregate(center, 0.01), nil
	}
}

func newMemo() *cache.Memo {
	return cache.NewMemo(cache.NewMemoryStore(), cache.Options{})
}

func TestUnimplemented(t *testing.T) {
	var b Benchmark = Unimplemented{}
	ctx := context.Background()

	_, err := b.Score(ctx, nil)
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryBenchmark, bserrors.CodeNotImplemented))
	_, err = b.Ceiling(ctx)
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryBenchmark, bserrors.CodeNotImplemented))
	assert.Equal(t, "", b.Identifier())
}

func TestBase_IdentifierVerbatim(t *testing.T) {
	b := NewBase("  odd id.with-anything  ", nil)
	assert.Equal(t, "  odd id.with-anything  ", b.Identifier())

	_, err := b.Score(context.Background(), nil)
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryBenchmark, bserrors.CodeNotImplemented),
		"Base does not score by itself")
}

func TestBase_CeilingComputedOnce(t *testing.T) {
	var calls atomic.Int32
	b := NewBase("dicarlo.Majaj2015.IT-pls", countingCeiling(&calls, 0.82), WithCeilingCache(newMemo()))
	ctx := context.Background()

	first, err := b.Ceiling(ctx)
	require.NoError(t, err)
	second, err := b.Ceiling(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, first.Equal(second))
	assert.Equal(t, 0.82, first.Center())
}

func TestBase_NonFiniteCeilingComputedOnce(t *testing.T) {
	var calls atomic.Int32
	memo := newMemo()
	b := NewBase("x", func(context.Context) (*score.Score, error) {
		calls.Add(1)
		return score.NewAggregate(math.NaN(), math.Inf(1)), nil
	}, WithCeilingCache(memo))
	ctx := context.Background()

	first, err := b.Ceiling(ctx)
	require.NoError(t, err)
	second, err := b.Ceiling(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, math.IsNaN(first.Center()))
	assert.True(t, first.Equal(second))
	assert.True(t, math.IsInf(second.Values[1], 1))
	assert.Equal(t, int64(1), memo.Stats().Hits)
}

func TestBase_ConcurrentCeilingSingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	b := NewBase("dicarlo.Majaj2015.V4-pls", func(context.Context) (*score.Score, error) {
		calls.Add(1)
		<-release
		return score.NewAggregate(0.9, 0.02), nil
	}, WithCeilingCache(newMemo()))

	var wg sync.WaitGroup
	results := make([]*score.Score, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := b.Ceiling(context.Background())
			if err == nil {
				results[i] = s
			}
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, s := range results {
		require.NotNil(t, s)
		assert.True(t, s.Equal(results[0]))
	}
}

func TestBase_SharedIdentifierSharesCeiling(t *testing.T) {
	memo := newMemo()
	var firstCalls, secondCalls atomic.Int32
	a := NewBase("movshon.FreemanZiemba2013.V1-pls", countingCeiling(&firstCalls, 0.5), WithCeilingCache(memo))
	b := NewBase("movshon.FreemanZiemba2013.V1-pls", countingCeiling(&secondCalls, 0.7), WithCeilingCache(memo))
	ctx := context.Background()

	ca, err := a.Ceiling(ctx)
	require.NoError(t, err)
	cb, err := b.Ceiling(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), firstCalls.Load())
	assert.Equal(t, int32(0), secondCalls.Load(), "the cache is keyed by identifier, not instance")
	assert.True(t, ca.Equal(cb))
}

func TestBase_CeilingErrorIsNotMemoized(t *testing.T) {
	var calls atomic.Int32
	fail := true
	b := NewBase("x", func(context.Context) (*score.Score, error) {
		calls.Add(1)
		if fail {
			return nil, errors.New("assembly unavailable")
		}
		return score.New(0.6), nil
	}, WithCeilingCache(newMemo()))

	_, err := b.Ceiling(context.Background())
	require.Error(t, err)
	fail = false
	c, err := b.Ceiling(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.6, c.Center())
	assert.Equal(t, int32(2), calls.Load())
}

func TestBase_CeilingCopiesAreIndependent(t *testing.T) {
	b := NewBase("y", func(context.Context) (*score.Score, error) {
		return score.New(0.4), nil
	}, WithCeilingCache(newMemo()))

	c1, err := b.Ceiling(context.Background())
	require.NoError(t, err)
	c1.Values[0] = 1

	c2, err := b.Ceiling(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.4, c2.Values[0])
}

func TestBase_DisabledCeilingCacheRecomputes(t *testing.T) {
	var calls atomic.Int32
	memo := cache.NewMemo(cache.NewMemoryStore(), cache.Options{Disable: []string{CeilingFunction}})
	b := NewBase("z", countingCeiling(&calls, 0.3), WithCeilingCache(memo))

	for i := 0; i < 2; i++ {
		_, err := b.Ceiling(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestBase_NilCeilingFunc(t *testing.T) {
	_, err := NewBase("n", nil).Ceiling(context.Background())
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryBenchmark, bserrors.CodeNotImplemented))
}

func TestCeilingKey(t *testing.T) {
	assert.Equal(t, "benchmark.Base.ceiling/identifier=dicarlo.Majaj2015.IT-pls",
		CeilingKey("dicarlo.Majaj2015.IT-pls").String())
}
