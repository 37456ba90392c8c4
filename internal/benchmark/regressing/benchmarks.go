package regressing

import "context"

// Benchmark identifiers.
const (
	Majaj2015V4PLS         = "dicarlo.Majaj2015.V4-pls"
	Majaj2015ITPLS         = "dicarlo.Majaj2015.IT-pls"
	Majaj2015V4Mask        = "dicarlo.Majaj2015.V4-mask"
	Majaj2015ITMask        = "dicarlo.Majaj2015.IT-mask"
	FreemanZiemba2013V1PLS = "movshon.FreemanZiemba2013.V1-pls"
	FreemanZiemba2013V2PLS = "movshon.FreemanZiemba2013.V2-pls"
)

// Assembly datasets.
const (
	Majaj2015         = "dicarlo.Majaj2015"
	FreemanZiemba2013 = "movshon.FreemanZiemba2013"
)

// DicarloMajaj2015V4PLS maps candidates onto Majaj2015 V4 sites with PLS.
func DicarloMajaj2015V4PLS(ctx context.Context, deps Deps) (*Benchmark, error) {
	return newBenchmark(ctx, deps, Majaj2015V4PLS, Majaj2015, "V4", pls)
}

// DicarloMajaj2015ITPLS maps candidates onto Majaj2015 IT sites with PLS.
func DicarloMajaj2015ITPLS(ctx context.Context, deps Deps) (*Benchmark, error) {
	return newBenchmark(ctx, deps, Majaj2015ITPLS, Majaj2015, "IT", pls)
}

// DicarloMajaj2015V4Mask maps each Majaj2015 V4 site to one model unit.
func DicarloMajaj2015V4Mask(ctx context.Context, deps Deps) (*Benchmark, error) {
	return newBenchmark(ctx, deps, Majaj2015V4Mask, Majaj2015, "V4", mask)
}

// DicarloMajaj2015ITMask maps each Majaj2015 IT site to one model unit.
func DicarloMajaj2015ITMask(ctx context.Context, deps Deps) (*Benchmark, error) {
	return newBenchmark(ctx, deps, Majaj2015ITMask, Majaj2015, "IT", mask)
}

// MovshonFreemanZiemba2013V1PLS maps candidates onto FreemanZiemba2013 V1
// neurons with PLS.
func MovshonFreemanZiemba2013V1PLS(ctx context.Context, deps Deps) (*Benchmark, error) {
	return newBenchmark(ctx, deps, FreemanZiemba2013V1PLS, FreemanZiemba2013, "V1", pls)
}

// MovshonFreemanZiemba2013V2PLS maps candidates onto FreemanZiemba2013 V2
// neurons with PLS.
func MovshonFreemanZiemba2013V2PLS(ctx context.Context, deps Deps) (*Benchmark, error) {
	return newBenchmark(ctx, deps, FreemanZiemba2013V2PLS, FreemanZiemba2013, "V2", pls)
}
