// Package assembly holds neural recordings (assemblies) and the model
// activations (features) they are compared against.
package assembly

import (
	"fmt"

	bserrors "github.com/brainscore/brainscore/internal/errors"
)

// Assembly is a recording of neuroid responses to a stimulus set, with one
// matrix per repetition of the stimulus presentation.
type Assembly struct {
	Name        string   `json:"name"`
	Region      string   `json:"region"`
	StimulusIDs []string `json:"stimulus_ids"`
	NeuroidIDs  []string `json:"neuroid_ids"`

	// Repetitions is indexed [repetition][stimulus][neuroid].
	Repetitions [][][]float64 `json:"repetitions"`
}

// NumStimuli returns the number of stimuli.
func (a *Assembly) NumStimuli() int { return len(a.StimulusIDs) }

// NumNeuroids returns the number of recorded neuroids.
func (a *Assembly) NumNeuroids() int { return len(a.NeuroidIDs) }

// NumRepetitions returns the number of presentations per stimulus.
func (a *Assembly) NumRepetitions() int { return len(a.Repetitions) }

// Validate checks that every repetition matrix matches the stimulus and
// neuroid axes and that stimulus ids are unique.
func (a *Assembly) Validate() error {
	invalid := func(msg string) error {
		return bserrors.NewDataError(bserrors.CodeInvalidAssembly,
			fmt.Sprintf("assembly %s/%s: %s", a.Name, a.Region, msg), nil)
	}

	if len(a.StimulusIDs) == 0 || len(a.NeuroidIDs) == 0 {
		return invalid("no stimuli or neuroids")
	}
	if len(a.Repetitions) == 0 {
		return invalid("no repetitions")
	}
	seen := make(map[string]struct{}, len(a.StimulusIDs))
	for _, id := range a.StimulusIDs {
		if _, dup := seen[id]; dup {
			return invalid(fmt.Sprintf("duplicate stimulus %q", id))
		}
		seen[id] = struct{}{}
	}
	for r, rep := range a.Repetitions {
		if len(rep) != len(a.StimulusIDs) {
			return invalid(fmt.Sprintf("repetition %d has %d stimuli, want %d", r, len(rep), len(a.StimulusIDs)))
		}
		for s, row := range rep {
			if len(row) != len(a.NeuroidIDs) {
				return invalid(fmt.Sprintf("repetition %d stimulus %d has %d neuroids, want %d",
					r, s, len(row), len(a.NeuroidIDs)))
			}
		}
	}
	return nil
}

// Mean averages responses over repetitions, returning [stimulus][neuroid].
func (a *Assembly) Mean() [][]float64 {
	return a.MeanOf(allIndices(len(a.Repetitions)))
}

// MeanOf averages the selected repetitions.
func (a *Assembly) MeanOf(reps []int) [][]float64 {
	out := make([][]float64, len(a.StimulusIDs))
	for s := range out {
		out[s] = make([]float64, len(a.NeuroidIDs))
	}
	if len(reps) == 0 {
		return out
	}
	for _, r := range reps {
		for s, row := range a.Repetitions[r] {
			for n, v := range row {
				out[s][n] += v
			}
		}
	}
	k := float64(len(reps))
	for s := range out {
		for n := range out[s] {
			out[s][n] /= k
		}
	}
	return out
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Features are model activations, one row per stimulus.
type Features struct {
	StimulusIDs []string    `json:"stimulus_ids"`
	Values      [][]float64 `json:"values"`
}

// Align returns feature rows in the order of ids. Every id must be present
// and rows must share one width.
func (f *Features) Align(ids []string) ([][]float64, error) {
	if len(f.StimulusIDs) != len(f.Values) {
		return nil, bserrors.NewValidationError(bserrors.CodeMissingStimuli,
			fmt.Sprintf("features list %d stimuli but %d rows", len(f.StimulusIDs), len(f.Values)))
	}
	index := make(map[string]int, len(f.StimulusIDs))
	for i, id := range f.StimulusIDs {
		index[id] = i
	}

	var missing []string
	out := make([][]float64, len(ids))
	width := -1
	for i, id := range ids {
		row, ok := index[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if width < 0 {
			width = len(f.Values[row])
		} else if len(f.Values[row]) != width {
			return nil, bserrors.NewValidationError(bserrors.CodeMissingStimuli,
				fmt.Sprintf("feature row for %q has %d values, want %d", id, len(f.Values[row]), width))
		}
		out[i] = f.Values[row]
	}
	if len(missing) > 0 {
		return nil, bserrors.NewValidationError(bserrors.CodeMissingStimuli,
			fmt.Sprintf("features are missing %d of %d stimuli", len(missing), len(ids))).
			WithDetails(map[string]interface{}{"missing": missing})
	}
	if width == 0 {
		return nil, bserrors.NewValidationError(bserrors.CodeMissingStimuli, "features have no values")
	}
	return out, nil
}
