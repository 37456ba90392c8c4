// Package regressing implements benchmarks that regress candidate
// activations onto recorded neural responses and normalize by the
// recordings' internal consistency.
package regressing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brainscore/brainscore/internal/assembly"
	"github.com/brainscore/brainscore/internal/benchmark"
	"github.com/brainscore/brainscore/internal/cache"
	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/logging"
	"github.com/brainscore/brainscore/internal/metric"
	"github.com/brainscore/brainscore/internal/observability"
	"github.com/brainscore/brainscore/pkg/score"
)

// Candidate produces model activations for stimuli.
type Candidate interface {
	Activations(ctx context.Context, stimulusIDs []string) (*assembly.Features, error)
}

// PrecomputedCandidate serves activations recorded ahead of time.
type PrecomputedCandidate struct {
	Features *assembly.Features
}

// Activations returns the stored features; alignment happens in Score.
func (p PrecomputedCandidate) Activations(ctx context.Context, stimulusIDs []string) (*assembly.Features, error) {
	if p.Features == nil {
		return nil, bserrors.NewValidationError(bserrors.CodeMissingStimuli, "candidate has no activations")
	}
	return p.Features, nil
}

// Settings tune the metric and the ceiling.
type Settings struct {
	Components    int
	Splits        int
	TrainFraction float64
	CeilingSplits int
	Seed          int64
}

// DefaultSettings returns the published benchmark configuration.
func DefaultSettings() Settings {
	return Settings{
		Components:    25,
		Splits:        10,
		TrainFraction: 0.9,
		CeilingSplits: 10,
	}
}

// Deps are the collaborators every regressing benchmark needs.
type Deps struct {
	Assemblies assembly.Source

	// Ceilings memoizes ceilings. Nil uses the process-wide memo.
	Ceilings *cache.Memo

	// Settings zero value means DefaultSettings.
	Settings Settings

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Stats   *observability.LoadStats
}

// Benchmark scores candidates on one assembly with one mapping.
type Benchmark struct {
	*benchmark.Base

	assembly *assembly.Assembly
	metric   metric.CrossRegressedCorrelation
	logger   *slog.Logger
	metrics  *observability.Metrics
	stats    *observability.LoadStats
}

// Assembly returns the recordings this benchmark compares against.
func (b *Benchmark) Assembly() *assembly.Assembly {
	return b.assembly
}

// Score regresses the candidate's activations onto the assembly and ceils
// the result by the benchmark ceiling.
func (b *Benchmark) Score(ctx context.Context, candidate benchmark.Candidate) (*score.Score, error) {
	start := time.Now()
	s, err := b.score(ctx, candidate)
	b.metrics.ObserveScore(b.Identifier(), time.Since(start), err)
	if err == nil {
		b.stats.Record(b.Identifier(), "score")
		b.logger.Info("scored candidate", "benchmark", b.Identifier(),
			"score", s.Center(), "duration", time.Since(start))
	}
	return s, err
}

func (b *Benchmark) score(ctx context.Context, candidate benchmark.Candidate) (*score.Score, error) {
	c, ok := candidate.(Candidate)
	if !ok {
		return nil, bserrors.NewValidationError(bserrors.CodeUnsupportedCandidate,
			fmt.Sprintf("benchmark %s needs a candidate with activations, got %T", b.Identifier(), candidate))
	}

	features, err := c.Activations(ctx, b.assembly.StimulusIDs)
	if err != nil {
		return nil, err
	}
	source, err := features.Align(b.assembly.StimulusIDs)
	if err != nil {
		return nil, err
	}

	raw, err := b.metric.Score(ctx, source, b.assembly.Mean())
	if err != nil {
		return nil, err
	}
	ceiling, err := b.Ceiling(ctx)
	if err != nil {
		return nil, err
	}
	return benchmark.CeilScore(raw, ceiling)
}

func newBenchmark(ctx context.Context, deps Deps, identifier, dataset, region string, mapping func(Settings) metric.Mapping) (*Benchmark, error) {
	if deps.Assemblies == nil {
		return nil, bserrors.NewInternalError("no assembly source configured", nil)
	}
	settings := deps.Settings
	if settings == (Settings{}) {
		settings = DefaultSettings()
	}

	a, err := deps.Assemblies.Load(ctx, dataset, region)
	if err != nil {
		return nil, err
	}

	consistency := metric.InternalConsistency{Splits: settings.CeilingSplits, Seed: settings.Seed}
	ceiling := func(ctx context.Context) (*score.Score, error) {
		return consistency.Ceiling(ctx, a)
	}

	return &Benchmark{
		Base:     benchmark.NewBase(identifier, ceiling, benchmark.WithCeilingCache(deps.Ceilings)),
		assembly: a,
		metric: metric.CrossRegressedCorrelation{
			NewMapping:    func() metric.Mapping { return mapping(settings) },
			Splits:        settings.Splits,
			TrainFraction: settings.TrainFraction,
			Seed:          settings.Seed,
		},
		logger:  logging.OrDiscard(deps.Logger).With("benchmark", identifier),
		metrics: deps.Metrics,
		stats:   deps.Stats,
	}, nil
}

func pls(s Settings) metric.Mapping { return metric.NewPLS(s.Components) }

func mask(Settings) metric.Mapping { return metric.NewMask() }
