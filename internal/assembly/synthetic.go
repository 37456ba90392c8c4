package assembly

import (
	"fmt"
	"math/rand"
)

// SyntheticSpec describes a generated assembly with a known latent
// structure, for demos and tests.
type SyntheticSpec struct {
	Name        string
	Region      string
	Stimuli     int
	Neuroids    int
	Repetitions int
	Latents     int
	Noise       float64
	Seed        int64
}

// Synthetic generates an assembly whose neuroids respond linearly to
// per-stimulus latent factors plus Gaussian trial noise, together with
// features that expose those latents (padded with distractor columns).
func Synthetic(spec SyntheticSpec) (*Assembly, *Features) {
	rng := rand.New(rand.NewSource(spec.Seed))

	stimuli := make([]string, spec.Stimuli)
	latents := make([][]float64, spec.Stimuli)
	for s := range stimuli {
		stimuli[s] = fmt.Sprintf("stim-%04d", s)
		latents[s] = normals(rng, spec.Latents)
	}

	neuroids := make([]string, spec.Neuroids)
	weights := make([][]float64, spec.Neuroids)
	for n := range neuroids {
		neuroids[n] = fmt.Sprintf("%s-%03d", spec.Region, n)
		weights[n] = normals(rng, spec.Latents)
	}

	reps := make([][][]float64, spec.Repetitions)
	for r := range reps {
		reps[r] = make([][]float64, spec.Stimuli)
		for s := range reps[r] {
			row := make([]float64, spec.Neuroids)
			for n := range row {
				row[n] = dot(weights[n], latents[s]) + spec.Noise*rng.NormFloat64()
			}
			reps[r][s] = row
		}
	}

	features := &Features{StimulusIDs: append([]string(nil), stimuli...), Values: make([][]float64, spec.Stimuli)}
	for s := range features.Values {
		row := append([]float64(nil), latents[s]...)
		row = append(row, normals(rng, spec.Latents)...)
		features.Values[s] = row
	}

	return &Assembly{
		Name:        spec.Name,
		Region:      spec.Region,
		StimulusIDs: stimuli,
		NeuroidIDs:  neuroids,
		Repetitions: reps,
	}, features
}

func normals(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
