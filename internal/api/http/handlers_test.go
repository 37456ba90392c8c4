package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainscore/brainscore/internal/assembly"
	"github.com/brainscore/brainscore/internal/benchmark"
	"github.com/brainscore/brainscore/internal/benchmark/registry"
	"github.com/brainscore/brainscore/internal/benchmark/regressing"
	"github.com/brainscore/brainscore/internal/cache"
	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/observability"
)

type testServer struct {
	*httptest.Server
	features map[string]*assembly.Features
	memo     *cache.Memo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	stats := observability.NewLoadStats(0)
	memo := cache.NewMemo(cache.NewMemoryStore(), cache.Options{Metrics: metrics})

	src := assembly.NewMemorySource()
	features := make(map[string]*assembly.Features)
	for i, ref := range registry.Assemblies() {
		a, f := assembly.Synthetic(assembly.SyntheticSpec{
			Name: ref.Name, Region: ref.Region,
			Stimuli: 50, Neuroids: 5, Repetitions: 4, Latents: 2, Noise: 0.2, Seed: int64(i + 10),
		})
		src.Add(a)
		features[ref.Name+"/"+ref.Region] = f
	}

	pool, err := registry.New(regressing.Deps{
		Assemblies: src,
		Ceilings:   memo,
		Settings:   regressing.Settings{Components: 2, Splits: 2, TrainFraction: 0.8, CeilingSplits: 3},
		Metrics:    metrics,
		Stats:      stats,
	}, benchmark.WithMetrics(metrics), benchmark.WithLoadStats(stats))
	require.NoError(t, err)

	h := NewHandler(pool, memo, stats, nil)
	srv := httptest.NewServer(NewMux(h, nil, reg, "/metrics"))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, features: features, memo: memo}
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) post(t *testing.T, path string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(s.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestListBenchmarks(t *testing.T) {
	s := newTestServer(t)

	resp := s.get(t, "/v1/benchmarks")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	body := decode[BenchmarksResponse](t, resp)
	require.Len(t, body.Benchmarks, 6)
	for i, id := range registry.Identifiers() {
		assert.Equal(t, id, body.Benchmarks[i].Identifier)
		assert.False(t, body.Benchmarks[i].Constructed)
	}
}

func TestCeiling(t *testing.T) {
	s := newTestServer(t)

	resp := s.get(t, "/v1/benchmarks/dicarlo.Majaj2015.IT-pls/ceiling")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[CeilingResponse](t, resp)
	assert.Equal(t, regressing.Majaj2015ITPLS, body.Benchmark)
	require.NotNil(t, body.Ceiling)
	assert.Greater(t, body.Ceiling.Center(), 0.5)

	// Second read is served from the memo.
	resp = s.get(t, "/v1/benchmarks/dicarlo.Majaj2015.IT-pls/ceiling")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), s.memo.Stats().Misses)
	assert.Equal(t, int64(1), s.memo.Stats().Hits)

	list := decode[BenchmarksResponse](t, s.get(t, "/v1/benchmarks"))
	assert.True(t, list.Benchmarks[1].Constructed)
	assert.False(t, list.Benchmarks[0].Constructed)
}

func TestCeiling_UnknownBenchmark(t *testing.T) {
	s := newTestServer(t)

	resp := s.get(t, "/v1/benchmarks/nonexistent/ceiling")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, bserrors.CodeUnknownBenchmark, body.Code)
	assert.Equal(t, string(bserrors.ErrCategoryBenchmark), body.Category)
	assert.Contains(t, body.Error, "unknown benchmark 'nonexistent' - must choose from [")
	assert.Len(t, body.Details["available"], 6)
	assert.NotEmpty(t, body.RequestID)
}

func TestScore(t *testing.T) {
	s := newTestServer(t)

	req, err := json.Marshal(ScoreRequest{Activations: s.features["dicarlo.Majaj2015/V4"]})
	require.NoError(t, err)

	resp := s.post(t, "/v1/benchmarks/dicarlo.Majaj2015.V4-pls/score", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[ScoreResponse](t, resp)
	assert.Equal(t, regressing.Majaj2015V4PLS, body.Benchmark)
	require.NotNil(t, body.Center)
	assert.Greater(t, *body.Center, 0.5)
	assert.Contains(t, body.Score.Attrs, "raw")
	assert.Contains(t, body.Score.Attrs, "ceiling")

	stats := decode[StatsResponse](t, s.get(t, "/v1/stats"))
	require.Len(t, stats.Benchmarks, 1)
	assert.Equal(t, regressing.Majaj2015V4PLS, stats.Benchmarks[0].Benchmark)
	assert.Equal(t, 1, stats.Benchmarks[0].Operations["score"])
	assert.Equal(t, int64(1), stats.Cache.Misses)
}

func TestScore_BadRequests(t *testing.T) {
	s := newTestServer(t)
	full := s.features["dicarlo.Majaj2015/IT"]
	partial, err := json.Marshal(ScoreRequest{Activations: &assembly.Features{
		StimulusIDs: full.StimulusIDs[:5],
		Values:      full.Values[:5],
	}})
	require.NoError(t, err)

	tests := []struct {
		name string
		body []byte
		code string
	}{
		{"malformed", []byte("{"), bserrors.CodeInvalidRequest},
		{"no activations", []byte(`{}`), bserrors.CodeMissingStimuli},
		{"missing stimuli", partial, bserrors.CodeMissingStimuli},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.post(t, "/v1/benchmarks/dicarlo.Majaj2015.IT-pls/score", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, resp).Code)
		})
	}
}

func TestScore_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	resp := s.get(t, "/v1/benchmarks/dicarlo.Majaj2015.IT-pls/score")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStats_InvalidTop(t *testing.T) {
	s := newTestServer(t)
	resp := s.get(t, "/v1/stats?top=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp := s.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.get(t, "/v1/benchmarks/nonexistent/ceiling")
	resp = s.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `brainscore_pool_loads_total{benchmark="nonexistent",status="unknown"} 1`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := DefaultMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{bserrors.NewValidationError(bserrors.CodeMissingStimuli, "x"), http.StatusBadRequest},
		{bserrors.NewBenchmarkError(bserrors.CodeUnknownBenchmark, "x"), http.StatusNotFound},
		{bserrors.NewBenchmarkError(bserrors.CodeNotImplemented, "x"), http.StatusNotImplemented},
		{bserrors.NewScoreError(bserrors.CodeDegenerateCeiling, "x"), http.StatusUnprocessableEntity},
		{bserrors.NewDataError(bserrors.CodeAssemblyNotFound, "x", nil), http.StatusServiceUnavailable},
		{bserrors.NewStorageError(bserrors.CodeDownloadFailed, "x", nil), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}
