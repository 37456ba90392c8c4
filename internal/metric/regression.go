package metric

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/pkg/score"
)

// CrossRegressedCorrelation scores how well source features predict target
// responses: over random train/test splits of the stimuli, a fresh mapping
// is fit on the training stimuli and each target's held-out predictions are
// correlated with its responses. Per split, the median over targets is
// kept; the result is mean and standard deviation over splits.
type CrossRegressedCorrelation struct {
	NewMapping    func() Mapping
	Splits        int
	TrainFraction float64
	Seed          int64
}

// Score evaluates source ([stimulus][feature]) against target
// ([stimulus][neuroid]).
func (c CrossRegressedCorrelation) Score(ctx context.Context, source, target [][]float64) (*score.Score, error) {
	n := len(source)
	if n != len(target) {
		return nil, bserrors.NewScoreError(bserrors.CodeShapeMismatch,
			fmt.Sprintf("%d source stimuli but %d target stimuli", n, len(target)))
	}
	train := int(math.Round(float64(n) * c.TrainFraction))
	if train < 2 || n-train < 2 {
		return nil, bserrors.NewScoreError(bserrors.CodeShapeMismatch,
			fmt.Sprintf("%d stimuli cannot be split %.2f into train and test sets of at least 2", n, c.TrainFraction))
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

		order := rng.Perm(n)
		trainIdx, testIdx := order[:train], order[train:]

		mapping := c.NewMapping()
		if err := mapping.Fit(rows(source, trainIdx), rows(target, trainIdx)); err != nil {
			return nil, fmt.Errorf("split %d: fit: %w", i, err)
		}
		pred, err := mapping.Predict(rows(source, testIdx))
		if err != nil {
			return nil, fmt.Errorf("split %d: predict: %w", i, err)
		}

		actual := rows(target, testIdx)
		targets := len(actual[0])
		corr := make([]float64, targets)
		for j := 0; j < targets; j++ {
			corr[j] = Pearson(column(pred, j), column(actual, j))
		}
		perSplit = append(perSplit, Median(corr))
	}

	center, spread := MeanStd(perSplit)
	s := score.NewAggregate(center, spread)
	s.SetAttr("splits", float64(splits))
	return s, nil
}
