package benchmark

import (
	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/pkg/score"
)

// CeilScore divides raw by ceiling. The result records copies of both
// operands under score.RawValuesKey and score.CeilingKey; the operands are
// not modified.
func CeilScore(raw, ceiling *score.Score) (*score.Score, error) {
	if raw == nil {
		return nil, bserrors.NewScoreError(bserrors.CodeShapeMismatch, "no score to ceil")
	}
	ceiled, err := raw.Div(ceiling)
	if err != nil {
		return nil, err
	}
	ceiled.SetAttr(score.RawValuesKey, raw.Clone())
	ceiled.SetAttr(score.CeilingKey, ceiling.Clone())
	return ceiled, nil
}
