// Package registry exposes the published benchmarks as one lazily
// constructed pool.
package registry

import (
	"context"
	"sync"

	"github.com/brainscore/brainscore/internal/assembly"
	"github.com/brainscore/brainscore/internal/benchmark"
	"github.com/brainscore/brainscore/internal/benchmark/regressing"
	"github.com/brainscore/brainscore/internal/cache"
	"github.com/brainscore/brainscore/internal/config"
	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/storage"
)

var identifiers = []string{
	regressing.Majaj2015V4PLS,
	regressing.Majaj2015ITPLS,
	regressing.Majaj2015V4Mask,
	regressing.Majaj2015ITMask,
	regressing.FreemanZiemba2013V1PLS,
	regressing.FreemanZiemba2013V2PLS,
}

// Identifiers returns the registered benchmark identifiers in registration
// order.
func Identifiers() []string {
	return append([]string(nil), identifiers...)
}

// Assemblies lists the assemblies the registered benchmarks read.
func Assemblies() []assembly.Ref {
	return []assembly.Ref{
		{Name: regressing.Majaj2015, Region: "V4"},
		{Name: regressing.Majaj2015, Region: "IT"},
		{Name: regressing.FreemanZiemba2013, Region: "V1"},
		{Name: regressing.FreemanZiemba2013, Region: "V2"},
	}
}

// Entries binds each identifier to its constructor over deps.
func Entries(deps regressing.Deps) []benchmark.Entry {
	constructors := map[string]func(context.Context, regressing.Deps) (*regressing.Benchmark, error){
		regressing.Majaj2015V4PLS:         regressing.DicarloMajaj2015V4PLS,
		regressing.Majaj2015ITPLS:         regressing.DicarloMajaj2015ITPLS,
		regressing.Majaj2015V4Mask:        regressing.DicarloMajaj2015V4Mask,
		regressing.Majaj2015ITMask:        regressing.DicarloMajaj2015ITMask,
		regressing.FreemanZiemba2013V1PLS: regressing.MovshonFreemanZiemba2013V1PLS,
		regressing.FreemanZiemba2013V2PLS: regressing.MovshonFreemanZiemba2013V2PLS,
	}

	entries := make([]benchmark.Entry, 0, len(identifiers))
	for _, id := range identifiers {
		construct := constructors[id]
		entries = append(entries, benchmark.Entry{
			Identifier: id,
			Construct: func(ctx context.Context) (benchmark.Benchmark, error) {
				b, err := construct(ctx, deps)
				if err != nil {
					return nil, err
				}
				return b, nil
			},
		})
	}
	return entries
}

// New builds a pool of the registered benchmarks. Nothing is constructed
// until the first Load of each identifier.
func New(deps regressing.Deps, opts ...benchmark.PoolOption) (*benchmark.Pool, error) {
	return benchmark.NewPool(Entries(deps), opts...)
}

var (
	mu          sync.Mutex
	defaultPool *benchmark.Pool
)

// Init installs the process-wide pool. It fails once a pool exists,
// whether from an earlier Init or from Default.
func Init(deps regressing.Deps, opts ...benchmark.PoolOption) error {
	mu.Lock()
	defer mu.Unlock()
	if defaultPool != nil {
		return bserrors.NewInternalError("benchmark pool already initialized", nil)
	}
	p, err := New(deps, opts...)
	if err != nil {
		return err
	}
	defaultPool = p
	return nil
}

// Default returns the process-wide pool, creating it over DefaultDeps on
// first use.
func Default() (*benchmark.Pool, error) {
	mu.Lock()
	defer mu.Unlock()
	if defaultPool != nil {
		return defaultPool, nil
	}
	deps, err := DefaultDeps()
	if err != nil {
		return nil, err
	}
	p, err := New(deps)
	if err != nil {
		return nil, err
	}
	defaultPool = p
	return p, nil
}

// Load constructs or returns the named benchmark from the process-wide
// pool. Unknown names fail with UNKNOWN_BENCHMARK.
func Load(ctx context.Context, name string) (benchmark.Benchmark, error) {
	p, err := Default()
	if err != nil {
		return nil, err
	}
	return p.Load(ctx, name)
}

// DefaultDeps reads assemblies from local storage under the default data
// directory and memoizes ceilings in process memory.
func DefaultDeps() (regressing.Deps, error) {
	cfg := config.DefaultConfig()
	config.LoadFromEnv(cfg)
	cfg.Resolve()

	st, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		return regressing.Deps{}, err
	}
	return regressing.Deps{
		Assemblies: assembly.NewStorageSource(st, cfg.Assemblies.Prefix),
		Ceilings:   cache.Default(),
	}, nil
}

func reset() {
	mu.Lock()
	defaultPool = nil
	mu.Unlock()
}
