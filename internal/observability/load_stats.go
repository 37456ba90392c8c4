package observability

import (
	"sort"
	"sync"
	"time"
)

// LoadStats tracks how often each benchmark is loaded, scored and ceiled.
// It backs the /v1/stats endpoint.
type LoadStats struct {
	mu         sync.RWMutex
	benchmarks map[string]*BenchmarkStats
	window     time.Duration
}

// BenchmarkStats holds usage counters for one benchmark identifier.
type BenchmarkStats struct {
	Benchmark  string         `json:"benchmark"`
	Frequency  int64          `json:"frequency"`
	LastSeen   time.Time      `json:"last_seen"`
	Operations map[string]int `json:"operations"` // operation → count (e.g., "load" → 5, "score" → 2)
}

// NewLoadStats creates a new tracker.
// window: time duration for pruning idle entries (e.g., 1 hour)
func NewLoadStats(window time.Duration) *LoadStats {
	return &LoadStats{
		benchmarks: make(map[string]*BenchmarkStats),
		window:     window,
	}
}

// Record records one operation against a benchmark. Safe on a nil receiver.
func (l *LoadStats) Record(benchmark, operation string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	stats, exists := l.benchmarks[benchmark]
	if !exists {
		stats = &BenchmarkStats{
			Benchmark:  benchmark,
			Operations: make(map[string]int),
		}
		l.benchmarks[benchmark] = stats
	}

	stats.Frequency++
	stats.LastSeen = time.Now()
	stats.Operations[operation]++
}

// TopBenchmarks returns copies of the n most used benchmarks, by frequency
// descending, ties broken by identifier.
func (l *LoadStats) TopBenchmarks(n int) []BenchmarkStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || len(l.benchmarks) == 0 {
		return []BenchmarkStats{}
	}

	stats := make([]BenchmarkStats, 0, len(l.benchmarks))
	for _, s := range l.benchmarks {
		cp := BenchmarkStats{
			Benchmark:  s.Benchmark,
			Frequency:  s.Frequency,
			LastSeen:   s.LastSeen,
			Operations: make(map[string]int, len(s.Operations)),
		}
		for op, count := range s.Operations {
			cp.Operations[op] = count
		}
		stats = append(stats, cp)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Benchmark < stats[j].Benchmark
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes entries where time.Since(LastSeen) > window.
func (l *LoadStats) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := time.Now().Add(-l.window)
	for id, stats := range l.benchmarks {
		if stats.LastSeen.Before(threshold) {
			delete(l.benchmarks, id)
		}
	}
}
