package metric

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Mapping learns a linear map from source features to target responses.
// Both are row-major with one row per stimulus.
type Mapping interface {
	Fit(source, target [][]float64) error
	Predict(source [][]float64) ([][]float64, error)
}

const eps = 1e-12

// PLS is a partial least squares regression (NIPALS, multiple targets) on
// standardized inputs.
type PLS struct {
	components int

	xMean, xStd []float64
	yMean, yStd []float64

	// weights, x loadings and y loadings per extracted component
	w, p, q []*mat.VecDense
}

// NewPLS creates a PLS mapping extracting up to components latent factors.
func NewPLS(components int) *PLS {
	return &PLS{components: components}
}

// Components returns how many factors the last Fit extracted.
func (m *PLS) Components() int {
	return len(m.w)
}

func (m *PLS) Fit(source, target [][]float64) error {
	x, err := toDense(source)
	if err != nil {
		return fmt.Errorf("pls source: %w", err)
	}
	y, err := toDense(target)
	if err != nil {
		return fmt.Errorf("pls target: %w", err)
	}
	n, px := x.Dims()
	ny, py := y.Dims()
	if n != ny {
		return fmt.Errorf("pls: %d source rows but %d target rows", n, ny)
	}
	if n < 2 {
		return errors.New("pls: need at least 2 samples")
	}

	m.xMean, m.xStd = standardize(x)
	m.yMean, m.yStd = standardize(y)
	m.w, m.p, m.q = nil, nil, nil

	limit := m.components
	if px < limit {
		limit = px
	}
	if n-1 < limit {
		limit = n - 1
	}

	for a := 0; a < limit; a++ {
		w, t, ok := nipals(x, y)
		if !ok {
			break
		}
		tt := mat.Dot(t, t)

		p := mat.NewVecDense(px, nil)
		p.MulVec(x.T(), t)
		p.ScaleVec(1/tt, p)

		q := mat.NewVecDense(py, nil)
		q.MulVec(y.T(), t)
		q.ScaleVec(1/tt, q)

		var tp, tq mat.Dense
		tp.Outer(1, t, p)
		x.Sub(x, &tp)
		tq.Outer(1, t, q)
		y.Sub(y, &tq)

		m.w = append(m.w, w)
		m.p = append(m.p, p)
		m.q = append(m.q, q)
	}
	return nil
}

// nipals extracts one component from the residuals x and y.
func nipals(x, y *mat.Dense) (w, t *mat.VecDense, ok bool) {
	n, px := x.Dims()
	_, py := y.Dims()

	u := mat.NewVecDense(n, nil)
	u.CopyVec(y.ColView(maxVarianceColumn(y)))
	if mat.Norm(u, 2) < eps {
		return nil, nil, false
	}

	w = mat.NewVecDense(px, nil)
	t = mat.NewVecDense(n, nil)
	c := mat.NewVecDense(py, nil)
	prev := mat.NewVecDense(px, nil)
	diff := mat.NewVecDense(px, nil)

	for iter := 0; iter < 500; iter++ {
		w.MulVec(x.T(), u)
		norm := mat.Norm(w, 2)
		if norm < eps {
			return nil, nil, false
		}
		w.ScaleVec(1/norm, w)

		t.MulVec(x, w)
		tt := mat.Dot(t, t)
		if tt < eps {
			return nil, nil, false
		}
		c.MulVec(y.T(), t)
		c.ScaleVec(1/tt, c)
		cc := mat.Dot(c, c)
		if cc < eps {
			return nil, nil, false
		}
		u.MulVec(y, c)
		u.ScaleVec(1/cc, u)

		diff.SubVec(w, prev)
		if mat.Norm(diff, 2) < 1e-10 {
			break
		}
		prev.CopyVec(w)
	}
	return w, t, true
}

func (m *PLS) Predict(source [][]float64) ([][]float64, error) {
	if m.xMean == nil {
		return nil, errors.New("pls: predict before fit")
	}
	x, err := toDense(source)
	if err != nil {
		return nil, fmt.Errorf("pls source: %w", err)
	}
	n, px := x.Dims()
	if px != len(m.xMean) {
		return nil, fmt.Errorf("pls: fitted on %d features, got %d", len(m.xMean), px)
	}
	applyStandardize(x, m.xMean, m.xStd)

	py := len(m.yMean)
	out := mat.NewDense(n, py, nil)
	t := mat.NewVecDense(n, nil)
	for a := range m.w {
		t.MulVec(x, m.w[a])

		var tp, tq mat.Dense
		tp.Outer(1, t, m.p[a])
		x.Sub(x, &tp)
		tq.Outer(1, t, m.q[a])
		out.Add(out, &tq)
	}

	pred := make([][]float64, n)
	for i := range pred {
		pred[i] = make([]float64, py)
		for j := range pred[i] {
			pred[i][j] = out.At(i, j)*m.yStd[j] + m.yMean[j]
		}
	}
	return pred, nil
}

// Mask maps each target to the single source feature it correlates with
// best on the training data, through a fitted linear transform.
type Mask struct {
	unit      []int
	intercept []float64
	slope     []float64
	features  int
}

// NewMask creates a one-unit mask mapping.
func NewMask() *Mask {
	return &Mask{}
}

// Units returns the source feature chosen for each target.
func (m *Mask) Units() []int {
	return append([]int(nil), m.unit...)
}

func (m *Mask) Fit(source, target [][]float64) error {
	if len(source) != len(target) {
		return fmt.Errorf("mask: %d source rows but %d target rows", len(source), len(target))
	}
	if len(source) < 2 || len(source[0]) == 0 || len(target[0]) == 0 {
		return errors.New("mask: need at least 2 samples with features and targets")
	}

	m.features = len(source[0])
	nTargets := len(target[0])
	m.unit = make([]int, nTargets)
	m.intercept = make([]float64, nTargets)
	m.slope = make([]float64, nTargets)

	sourceCols := make([][]float64, m.features)
	for f := range sourceCols {
		sourceCols[f] = column(source, f)
	}

	for j := 0; j < nTargets; j++ {
		y := column(target, j)
		best, bestR := 0, -1.0
		for f, x := range sourceCols {
			r := math.Abs(Pearson(x, y))
			if !math.IsNaN(r) && r > bestR {
				best, bestR = f, r
			}
		}
		m.unit[j] = best
		if bestR < 0 {
			// No informative feature: predict the training mean.
			m.intercept[j] = stat.Mean(y, nil)
			continue
		}
		m.intercept[j], m.slope[j] = stat.LinearRegression(sourceCols[best], y, nil, false)
	}
	return nil
}

func (m *Mask) Predict(source [][]float64) ([][]float64, error) {
	if m.unit == nil {
		return nil, errors.New("mask: predict before fit")
	}
	pred := make([][]float64, len(source))
	for i, row := range source {
		if len(row) != m.features {
			return nil, fmt.Errorf("mask: fitted on %d features, got %d", m.features, len(row))
		}
		pred[i] = make([]float64, len(m.unit))
		for j, f := range m.unit {
			pred[i][j] = m.intercept[j] + m.slope[j]*row[f]
		}
	}
	return pred, nil
}

func toDense(m [][]float64) (*mat.Dense, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	cols := len(m[0])
	data := make([]float64, 0, len(m)*cols)
	for i, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(m), cols, data), nil
}

// standardize centers and scales the columns of d in place and returns the
// column means and standard deviations. Constant columns keep a scale of 1.
func standardize(d *mat.Dense) (mean, std []float64) {
	_, c := d.Dims()
	mean = make([]float64, c)
	std = make([]float64, c)
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, d)
		mean[j], std[j] = stat.MeanStdDev(col, nil)
		if std[j] < eps || math.IsNaN(std[j]) {
			std[j] = 1
		}
	}
	applyStandardize(d, mean, std)
	return mean, std
}

func applyStandardize(d *mat.Dense, mean, std []float64) {
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Set(i, j, (d.At(i, j)-mean[j])/std[j])
		}
	}
}

func maxVarianceColumn(d *mat.Dense) int {
	_, c := d.Dims()
	best, bestVar := 0, -1.0
	for j := 0; j < c; j++ {
		v := stat.Variance(mat.Col(nil, j, d), nil)
		if v > bestVar {
			best, bestVar = j, v
		}
	}
	return best
}
