package regressing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainscore/brainscore/internal/assembly"
	"github.com/brainscore/brainscore/internal/benchmark"
	"github.com/brainscore/brainscore/internal/cache"
	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/observability"
	"github.com/brainscore/brainscore/pkg/score"
)

func fixture(t *testing.T) (Deps, map[string]*assembly.Features) {
	t.Helper()
	src := assembly.NewMemorySource()
	features := make(map[string]*assembly.Features)
	for i, ref := range []assembly.Ref{
		{Name: Majaj2015, Region: "V4"},
		{Name: Majaj2015, Region: "IT"},
		{Name: FreemanZiemba2013, Region: "V1"},
		{Name: FreemanZiemba2013, Region: "V2"},
	} {
		a, f := assembly.Synthetic(assembly.SyntheticSpec{
			Name: ref.Name, Region: ref.Region,
			Stimuli: 60, Neuroids: 6, Repetitions: 4, Latents: 3, Noise: 0.2, Seed: int64(i + 1),
		})
		src.Add(a)
		features[ref.Region] = f
	}
	return Deps{
		Assemblies: src,
		Ceilings:   cache.NewMemo(cache.NewMemoryStore(), cache.Options{}),
		Settings:   Settings{Components: 3, Splits: 3, TrainFraction: 0.8, CeilingSplits: 4, Seed: 1},
		Stats:      observability.NewLoadStats(0),
	}, features
}

func TestConstructors(t *testing.T) {
	deps, _ := fixture(t)
	ctx := context.Background()

	tests := []struct {
		construct func(context.Context, Deps) (*Benchmark, error)
		id        string
		region    string
	}{
		{DicarloMajaj2015V4PLS, Majaj2015V4PLS, "V4"},
		{DicarloMajaj2015ITPLS, Majaj2015ITPLS, "IT"},
		{DicarloMajaj2015V4Mask, Majaj2015V4Mask, "V4"},
		{DicarloMajaj2015ITMask, Majaj2015ITMask, "IT"},
		{MovshonFreemanZiemba2013V1PLS, FreemanZiemba2013V1PLS, "V1"},
		{MovshonFreemanZiemba2013V2PLS, FreemanZiemba2013V2PLS, "V2"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			b, err := tt.construct(ctx, deps)
			require.NoError(t, err)
			assert.Equal(t, tt.id, b.Identifier())
			assert.Equal(t, tt.region, b.Assembly().Region)

			var _ benchmark.Benchmark = b
		})
	}
}

func TestConstructor_MissingAssembly(t *testing.T) {
	deps := Deps{Assemblies: assembly.NewMemorySource()}
	_, err := DicarloMajaj2015ITPLS(context.Background(), deps)
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryData, bserrors.CodeAssemblyNotFound), "got %v", err)
}

func TestConstructor_NoSource(t *testing.T) {
	_, err := DicarloMajaj2015ITPLS(context.Background(), Deps{})
	assert.Error(t, err)
}

func TestCeiling_MemoizedByIdentifier(t *testing.T) {
	deps, _ := fixture(t)
	ctx := context.Background()

	first, err := DicarloMajaj2015ITPLS(ctx, deps)
	require.NoError(t, err)
	c1, err := first.Ceiling(ctx)
	require.NoError(t, err)
	assert.Greater(t, c1.Center(), 0.5)

	// A second instance with the same identifier reads the stored ceiling.
	second, err := DicarloMajaj2015ITPLS(ctx, deps)
	require.NoError(t, err)
	c2, err := second.Ceiling(ctx)
	require.NoError(t, err)
	assert.True(t, c1.Equal(c2))

	stats := deps.Ceilings.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestScore_MatchingFeatures(t *testing.T) {
	deps, features := fixture(t)
	ctx := context.Background()

	b, err := DicarloMajaj2015ITPLS(ctx, deps)
	require.NoError(t, err)

	s, err := b.Score(ctx, PrecomputedCandidate{Features: features["IT"]})
	require.NoError(t, err)
	assert.Greater(t, s.Center(), 0.5)

	raw, ok := s.Attr(score.RawValuesKey)
	require.True(t, ok)
	ceiling, ok := s.Attr(score.CeilingKey)
	require.True(t, ok)

	expected, err := raw.(*score.Score).Div(ceiling.(*score.Score))
	require.NoError(t, err)
	assert.True(t, expected.Equal(s))

	top := deps.Stats.TopBenchmarks(1)
	require.Len(t, top, 1)
	assert.Equal(t, Majaj2015ITPLS, top[0].Benchmark)
}

func TestScore_TwoRepetitionCeiling(t *testing.T) {
	deps, _ := fixture(t)
	ctx := context.Background()

	src := assembly.NewMemorySource()
	a, f := assembly.Synthetic(assembly.SyntheticSpec{
		Name: Majaj2015, Region: "IT",
		Stimuli: 60, Neuroids: 6, Repetitions: 2, Latents: 3, Noise: 0.2, Seed: 7,
	})
	src.Add(a)
	deps.Assemblies = src
	deps.Settings.CeilingSplits = 10

	b, err := DicarloMajaj2015ITPLS(ctx, deps)
	require.NoError(t, err)

	ceiling, err := b.Ceiling(ctx)
	require.NoError(t, err)
	spread, ok := ceiling.Value(score.LabelError)
	require.True(t, ok)
	assert.InDelta(t, 0.0, spread, 1e-12, "every split-half of two repetitions is the same pair")

	s, err := b.Score(ctx, PrecomputedCandidate{Features: f})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(s.Center()))
	assert.Greater(t, s.Center(), 0.0)
}

func TestScore_Mask(t *testing.T) {
	deps, features := fixture(t)
	ctx := context.Background()

	b, err := DicarloMajaj2015V4Mask(ctx, deps)
	require.NoError(t, err)
	s, err := b.Score(ctx, PrecomputedCandidate{Features: features["V4"]})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestScore_UnsupportedCandidate(t *testing.T) {
	deps, _ := fixture(t)
	b, err := DicarloMajaj2015ITPLS(context.Background(), deps)
	require.NoError(t, err)

	_, err = b.Score(context.Background(), "alexnet")
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryValidation, bserrors.CodeUnsupportedCandidate), "got %v", err)
}

func TestScore_MissingStimuli(t *testing.T) {
	deps, features := fixture(t)
	b, err := DicarloMajaj2015ITPLS(context.Background(), deps)
	require.NoError(t, err)

	partial := &assembly.Features{
		StimulusIDs: features["IT"].StimulusIDs[:10],
		Values:      features["IT"].Values[:10],
	}
	_, err = b.Score(context.Background(), PrecomputedCandidate{Features: partial})
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryValidation, bserrors.CodeMissingStimuli), "got %v", err)

	_, err = b.Score(context.Background(), PrecomputedCandidate{})
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryValidation, bserrors.CodeMissingStimuli), "got %v", err)
}
