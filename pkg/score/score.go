// Package score provides the numeric result type produced by benchmarks.
//
// A Score is a small vector of values with optional labels (for aggregated
// scores, conventionally "center" and "error") and a string-keyed attribute
// table used for provenance.
package score

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	bserrors "github.com/brainscore/brainscore/internal/errors"
)

// Well-known attribute keys.
const (
	// RawValuesKey holds the unceiled score a ceiled score was derived from.
	RawValuesKey = "raw"
	// CeilingKey holds the ceiling a score was normalized by.
	CeilingKey = "ceiling"
)

// Aggregation labels.
const (
	LabelCenter = "center"
	LabelError  = "error"
)

// Score is a numeric measurement with a provenance side-table.
type Score struct {
	Values []float64              `json:"values"`
	Labels []string               `json:"labels,omitempty"`
	Attrs  map[string]interface{} `json:"attrs,omitempty"`
}

// New creates an unlabeled score from the given values.
func New(values ...float64) *Score {
	v := make([]float64, len(values))
	copy(v, values)
	return &Score{Values: v}
}

// NewAggregate creates a score labeled with center and error.
func NewAggregate(center, err float64) *Score {
	return &Score{
		Values: []float64{center, err},
		Labels: []string{LabelCenter, LabelError},
	}
}

// Len returns the number of values.
func (s *Score) Len() int {
	return len(s.Values)
}

// Value returns the value for a label.
func (s *Score) Value(label string) (float64, bool) {
	for i, l := range s.Labels {
		if l == label && i < len(s.Values) {
			return s.Values[i], true
		}
	}
	return 0, false
}

// Center returns the value labeled center, or the first value of an
// unlabeled score. Empty scores return NaN.
func (s *Score) Center() float64 {
	if v, ok := s.Value(LabelCenter); ok {
		return v
	}
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[0]
}

// Attr returns an attribute value.
func (s *Score) Attr(key string) (interface{}, bool) {
	if s.Attrs == nil {
		return nil, false
	}
	v, ok := s.Attrs[key]
	return v, ok
}

// SetAttr sets an attribute, allocating the table if needed.
func (s *Score) SetAttr(key string, value interface{}) {
	if s.Attrs == nil {
		s.Attrs = make(map[string]interface{})
	}
	s.Attrs[key] = value
}

// Clone returns a deep copy. Nested scores in the attribute table are
// cloned as well; other attribute values are copied by assignment.
func (s *Score) Clone() *Score {
	if s == nil {
		return nil
	}
	cp := &Score{Values: make([]float64, len(s.Values))}
	copy(cp.Values, s.Values)
	if s.Labels != nil {
		cp.Labels = make([]string, len(s.Labels))
		copy(cp.Labels, s.Labels)
	}
	if s.Attrs != nil {
		cp.Attrs = make(map[string]interface{}, len(s.Attrs))
		for k, v := range s.Attrs {
			if nested, ok := v.(*Score); ok {
				cp.Attrs[k] = nested.Clone()
				continue
			}
			cp.Attrs[k] = v
		}
	}
	return cp
}

// Equal reports whether two scores have the same labels and values.
// Attributes are ignored. NaN values compare equal to NaN.
func (s *Score) Equal(other *Score) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Values) != len(other.Values) || len(s.Labels) != len(other.Labels) {
		return false
	}
	for i := range s.Labels {
		if s.Labels[i] != other.Labels[i] {
			return false
		}
	}
	for i := range s.Values {
		a, b := s.Values[i], other.Values[i]
		if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
			return false
		}
	}
	return true
}

// Div divides s by other element-wise and returns a new score.
//
// A single-value divisor broadcasts over all values. When both scores are
// labeled, values are matched by label; otherwise by position. A zero, NaN
// or infinite divisor for any component other than the one labeled error
// fails with DEGENERATE_CEILING; the error component follows IEEE division.
// The result carries the labels of s and no attributes; neither operand is
// modified.
func (s *Score) Div(other *Score) (*Score, error) {
	if other == nil || len(other.Values) == 0 {
		return nil, bserrors.NewScoreError(bserrors.CodeShapeMismatch, "divisor has no values")
	}

	divisors := make([]float64, len(s.Values))
	switch {
	case len(other.Values) == 1:
		for i := range divisors {
			divisors[i] = other.Values[0]
		}
	case len(s.Labels) > 0 && len(other.Labels) > 0:
		for i, label := range s.Labels {
			v, ok := other.Value(label)
			if !ok {
				return nil, bserrors.NewScoreError(bserrors.CodeShapeMismatch,
					fmt.Sprintf("divisor has no value labeled %q", label))
			}
			divisors[i] = v
		}
	case len(other.Values) == len(s.Values):
		copy(divisors, other.Values)
	default:
		return nil, bserrors.NewScoreError(bserrors.CodeShapeMismatch,
			fmt.Sprintf("cannot divide %d values by %d values", len(s.Values), len(other.Values)))
	}

	for i, d := range divisors {
		if i < len(s.Labels) && s.Labels[i] == LabelError {
			continue
		}
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, bserrors.NewScoreError(bserrors.CodeDegenerateCeiling,
				fmt.Sprintf("divisor component %d is %v", i, d)).
				WithDetails(map[string]interface{}{"index": i, "value": d})
		}
	}

	out := &Score{Values: make([]float64, len(s.Values))}
	for i, v := range s.Values {
		out.Values[i] = v / divisors[i]
	}
	if s.Labels != nil {
		out.Labels = make([]string, len(s.Labels))
		copy(out.Labels, s.Labels)
	}
	return out, nil
}

// String renders the score for logs and CLI output.
func (s *Score) String() string {
	if len(s.Labels) == len(s.Values) && len(s.Labels) > 0 {
		out := "Score("
		for i := range s.Values {
			if i > 0 {
				out += ", "
			}
			out += fmt.Sprintf("%s=%.4f", s.Labels[i], s.Values[i])
		}
		return out + ")"
	}
	return fmt.Sprintf("Score(%v)", s.Values)
}

type scoreJSON struct {
	Values []jsonFloat            `json:"values"`
	Labels []string               `json:"labels,omitempty"`
	Attrs  map[string]interface{} `json:"attrs,omitempty"`
}

// MarshalJSON encodes non-finite values as the strings "NaN", "+Inf" and
// "-Inf".
func (s Score) MarshalJSON() ([]byte, error) {
	out := scoreJSON{Labels: s.Labels, Attrs: s.Attrs}
	if s.Values != nil {
		out.Values = make([]jsonFloat, len(s.Values))
		for i, v := range s.Values {
			out.Values[i] = jsonFloat(v)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON.
func (s *Score) UnmarshalJSON(data []byte) error {
	var in scoreJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Values = nil
	if in.Values != nil {
		s.Values = make([]float64, len(in.Values))
		for i, v := range in.Values {
			s.Values[i] = float64(v)
		}
	}
	s.Labels = in.Labels
	s.Attrs = in.Attrs
	return nil
}

type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("invalid score value %q: %w", text, err)
		}
		*f = jsonFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}
