package metric

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainscore/brainscore/internal/assembly"
	bserrors "github.com/brainscore/brainscore/internal/errors"
)

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.True(t, math.IsNaN(Pearson([]float64{1}, []float64{1})))
	assert.True(t, math.IsNaN(Pearson([]float64{1, 2}, []float64{1})))
}

func TestSpearmanBrown(t *testing.T) {
	assert.InDelta(t, 2*0.5/1.5, SpearmanBrown(0.5, 2), 1e-12)
	assert.InDelta(t, 1.0, SpearmanBrown(1, 2), 1e-12)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 2.0, Median([]float64{math.NaN(), 2}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{1, 2, 3})
	assert.InDelta(t, 2.0, mean, 1e-12)
	assert.InDelta(t, 1.0, std, 1e-12)

	mean, std = MeanStd([]float64{0.7})
	assert.Equal(t, 0.7, mean)
	assert.Equal(t, 0.0, std)
}

func synthetic(noise float64) (*assembly.Assembly, *assembly.Features) {
	return assembly.Synthetic(assembly.SyntheticSpec{
		Name: "dicarlo.Majaj2015", Region: "IT",
		Stimuli: 120, Neuroids: 12, Repetitions: 6, Latents: 3, Noise: noise, Seed: 7,
	})
}

func TestInternalConsistency(t *testing.T) {
	ctx := context.Background()
	ic := InternalConsistency{Splits: 5, Seed: 1}

	clean, _ := synthetic(0.05)
	high, err := ic.Ceiling(ctx, clean)
	require.NoError(t, err)

	noisy, _ := synthetic(3)
	low, err := ic.Ceiling(ctx, noisy)
	require.NoError(t, err)

	assert.Greater(t, high.Center(), 0.95)
	assert.Less(t, low.Center(), high.Center())

	again, err := ic.Ceiling(ctx, clean)
	require.NoError(t, err)
	assert.True(t, high.Equal(again), "same seed must give the same ceiling")
}

func TestInternalConsistency_NeedsRepetitions(t *testing.T) {
	a, _ := synthetic(0.1)
	a.Repetitions = a.Repetitions[:1]
	_, err := InternalConsistency{Splits: 2}.Ceiling(context.Background(), a)
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryData, bserrors.CodeInvalidAssembly))
}

func TestPLS_RecoversLinearMap(t *testing.T) {
	a, f := synthetic(0)
	x, err := f.Align(a.StimulusIDs)
	require.NoError(t, err)
	y := a.Mean()

	pls := NewPLS(25)
	require.NoError(t, pls.Fit(x, y))
	assert.LessOrEqual(t, pls.Components(), 6, "components are capped by feature count")

	pred, err := pls.Predict(x)
	require.NoError(t, err)
	for j := 0; j < len(y[0]); j++ {
		assert.Greater(t, Pearson(column(pred, j), column(y, j)), 0.99)
	}
}

func TestPLS_Errors(t *testing.T) {
	pls := NewPLS(2)
	_, err := pls.Predict([][]float64{{1}})
	assert.Error(t, err)

	assert.Error(t, pls.Fit([][]float64{{1}}, [][]float64{{1}}))
	assert.Error(t, pls.Fit([][]float64{{1}, {2}}, [][]float64{{1}}))
}

func TestMask_PicksBestUnit(t *testing.T) {
	source := [][]float64{{0, 1}, {5, 2}, {1, 3}, {4, 4}}
	target := [][]float64{{3}, {5}, {7}, {9}} // 2*col1 + 1

	m := NewMask()
	require.NoError(t, m.Fit(source, target))
	assert.Equal(t, []int{1}, m.Units())

	pred, err := m.Predict([][]float64{{100, 10}})
	require.NoError(t, err)
	assert.InDelta(t, 21.0, pred[0][0], 1e-9)
}

func TestCrossRegressedCorrelation(t *testing.T) {
	ctx := context.Background()
	a, f := synthetic(0.5)
	x, err := f.Align(a.StimulusIDs)
	require.NoError(t, err)

	metric := CrossRegressedCorrelation{
		NewMapping:    func() Mapping { return NewPLS(25) },
		Splits:        4,
		TrainFraction: 0.9,
		Seed:          3,
	}
	s, err := metric.Score(ctx, x, a.Mean())
	require.NoError(t, err)
	assert.Greater(t, s.Center(), 0.8)

	// Shuffled features carry no signal
	shuffled := make([][]float64, len(x))
	for i := range x {
		shuffled[i] = x[(i*37+11)%len(x)]
	}
	chance, err := metric.Score(ctx, shuffled, a.Mean())
	require.NoError(t, err)
	assert.Less(t, chance.Center(), 0.6)
}

func TestCrossRegressedCorrelation_TooFewStimuli(t *testing.T) {
	metric := CrossRegressedCorrelation{NewMapping: func() Mapping { return NewMask() }, TrainFraction: 0.9}
	_, err := metric.Score(context.Background(), [][]float64{{1}, {2}, {3}}, [][]float64{{1}, {2}, {3}})
	assert.True(t, bserrors.HasCode(err, bserrors.ErrCategoryScore, bserrors.CodeShapeMismatch))
}
