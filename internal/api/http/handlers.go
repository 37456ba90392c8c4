package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brainscore/brainscore/internal/assembly"
	"github.com/brainscore/brainscore/internal/benchmark"
	"github.com/brainscore/brainscore/internal/benchmark/regressing"
	"github.com/brainscore/brainscore/internal/cache"
	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/logging"
	"github.com/brainscore/brainscore/internal/observability"
	"github.com/brainscore/brainscore/pkg/score"
)

// DefaultMaxBodyBytes caps score request bodies.
const DefaultMaxBodyBytes = 256 << 20

// Pool is the benchmark registry served by the API.
type Pool interface {
	Keys() []string
	Constructed(name string) bool
	Load(ctx context.Context, name string) (benchmark.Benchmark, error)
}

// BenchmarkInfo describes one registered benchmark.
type BenchmarkInfo struct {
	Identifier  string `json:"identifier"`
	Constructed bool   `json:"constructed"`
}

// BenchmarksResponse is returned by GET /v1/benchmarks.
type BenchmarksResponse struct {
	Benchmarks []BenchmarkInfo `json:"benchmarks"`
	RequestID  string          `json:"request_id"`
}

// CeilingResponse is returned by GET /v1/benchmarks/{id}/ceiling.
type CeilingResponse struct {
	Benchmark string       `json:"benchmark"`
	Ceiling   *score.Score `json:"ceiling"`
	RequestID string       `json:"request_id"`
}

// ScoreRequest carries precomputed activations, one row per stimulus.
type ScoreRequest struct {
	Activations *assembly.Features `json:"activations"`
}

// ScoreResponse is returned by POST /v1/benchmarks/{id}/score. Center is
// omitted when it is not finite.
type ScoreResponse struct {
	Benchmark string       `json:"benchmark"`
	Score     *score.Score `json:"score"`
	Center    *float64     `json:"center,omitempty"`
	RequestID string       `json:"request_id"`
}

// StatsResponse is returned by GET /v1/stats.
type StatsResponse struct {
	Benchmarks []observability.BenchmarkStats `json:"benchmarks"`
	Cache      cache.Stats                    `json:"cache"`
	RequestID  string                         `json:"request_id"`
}

// Handler serves the benchmark API.
type Handler struct {
	pool         Pool
	memo         *cache.Memo
	stats        *observability.LoadStats
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewHandler creates a handler. memo and stats may be nil.
func NewHandler(pool Pool, memo *cache.Memo, stats *observability.LoadStats, logger *slog.Logger) *Handler {
	return &Handler{
		pool:         pool,
		memo:         memo,
		stats:        stats,
		logger:       logging.OrDiscard(logger),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Register mounts the API routes on mux behind mw.
func (h *Handler) Register(mux *http.ServeMux, mw Middleware) {
	mux.Handle("GET /v1/benchmarks", mw(http.HandlerFunc(h.listBenchmarks)))
	mux.Handle("GET /v1/benchmarks/{id}/ceiling", mw(http.HandlerFunc(h.ceiling)))
	mux.Handle("POST /v1/benchmarks/{id}/score", mw(http.HandlerFunc(h.score)))
	mux.Handle("GET /v1/stats", mw(http.HandlerFunc(h.statistics)))
}

// NewMux returns a mux with the API, a health check and, when gatherer is
// non-nil, Prometheus metrics at metricsPath.
func NewMux(h *Handler, logger *slog.Logger, gatherer prometheus.Gatherer, metricsPath string) *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux, DefaultMiddleware(logger))
	mux.HandleFunc("GET /healthz", healthHandler)
	if gatherer != nil {
		mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) listBenchmarks(w http.ResponseWriter, r *http.Request) {
	keys := h.pool.Keys()
	resp := BenchmarksResponse{
		Benchmarks: make([]BenchmarkInfo, 0, len(keys)),
		RequestID:  GetRequestID(r.Context()),
	}
	for _, k := range keys {
		resp.Benchmarks = append(resp.Benchmarks, BenchmarkInfo{Identifier: k, Constructed: h.pool.Constructed(k)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ceiling(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, err := h.pool.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := b.Ceiling(r.Context())
	if err != nil {
		h.logger.Warn("ceiling failed", "benchmark", id, "error", err)
		writeError(w, r, err)
		return
	}
	h.stats.Record(id, "ceiling")

	writeJSON(w, http.StatusOK, CeilingResponse{
		Benchmark: id,
		Ceiling:   c,
		RequestID: GetRequestID(r.Context()),
	})
}

func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ScoreRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, r, bserrors.NewValidationError(bserrors.CodeInvalidRequest,
			fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	if req.Activations == nil || len(req.Activations.StimulusIDs) == 0 {
		writeError(w, r, bserrors.NewValidationError(bserrors.CodeMissingStimuli, "activations are required"))
		return
	}

	b, err := h.pool.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := b.Score(r.Context(), regressing.PrecomputedCandidate{Features: req.Activations})
	if err != nil {
		h.logger.Warn("score failed", "benchmark", id, "error", err)
		writeError(w, r, err)
		return
	}

	resp := ScoreResponse{
		Benchmark: id,
		Score:     s,
		RequestID: GetRequestID(r.Context()),
	}
	if c := s.Center(); !math.IsNaN(c) && !math.IsInf(c, 0) {
		resp.Center = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, bserrors.NewValidationError(bserrors.CodeInvalidRequest,
				fmt.Sprintf("top must be a positive integer, got %q", v)))
			return
		}
		top = n
	}

	resp := StatsResponse{
		Benchmarks: []observability.BenchmarkStats{},
		RequestID:  GetRequestID(r.Context()),
	}
	if h.stats != nil {
		resp.Benchmarks = h.stats.TopBenchmarks(top)
	}
	if h.memo != nil {
		resp.Cache = h.memo.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
