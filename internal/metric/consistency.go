package metric

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/brainscore/brainscore/internal/assembly"
	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/pkg/score"
)

// InternalConsistency estimates how well an assembly agrees with itself:
// repetitions are split in half at random, the half means are correlated
// per neuroid, Spearman-Brown corrected to full length and reduced by the
// median over neuroids. The result is the mean and standard deviation over
// splits, labeled center and error.
type InternalConsistency struct {
	Splits int
	Seed   int64
}

// Ceiling computes the consistency of a.
func (c InternalConsistency) Ceiling(ctx context.Context, a *assembly.Assembly) (*score.Score, error) {
	if a.NumRepetitions() < 2 {
		return nil, bserrors.NewDataError(bserrors.CodeInvalidAssembly,
			fmt.Sprintf("assembly %s/%s needs at least 2 repetitions for a split-half ceiling, has %d",
				a.Name, a.Region, a.NumRepetitions()), nil)
	}
	splits := c.Splits
	if splits < 1 {
		splits = 1
	}

	rng := rand.New(rand.NewSource(c.Seed))
	perSplit := make([]float64, 0, splits)
	for i := 0; i < splits; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		order := rng.Perm(a.NumRepetitions())
		half := len(order) / 2
		first := a.MeanOf(order[:half])
		second := a.MeanOf(order[half:])

		neuroids := make([]float64, a.NumNeuroids())
		for n := range neuroids {
			r := Pearson(column(first, n), column(second, n))
			neuroids[n] = SpearmanBrown(r, 2)
		}
		perSplit = append(perSplit, Median(neuroids))
	}

	center, spread := MeanStd(perSplit)
	s := score.NewAggregate(center, spread)
	s.SetAttr("splits", float64(splits))
	return s, nil
}
