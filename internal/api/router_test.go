package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvkconsulling1/momo-sub000/internal/api/handlers"
	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/config"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
	"github.com/hvkconsulling1/momo-sub000/pkg/metrics"
)

// fakeRepo is an in-memory contracts.RunRepository
type fakeRepo struct {
	runs    map[string]contracts.RunSummary
	returns map[string][]contracts.ReturnRecord
	err     error
	limit   int
}

func newFakeRepo() *fakeRepo {
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &fakeRepo{
		runs: map[string]contracts.RunSummary{
			"run-1": {RunID: "run-1", StrategyID: "xs_momentum", ConfigHash: "abc", CreatedAt: created,
				Metrics: contracts.PerformanceMetrics{Periods: 2, FinalValue: 1.1, Sharpe: math.NaN()}},
		},
		returns: map[string][]contracts.ReturnRecord{
			"run-1": {
				{Date: time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), PortfolioReturn: 0.05, CumulativeValue: 1.05},
				{Date: time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC), PortfolioReturn: 0.0476, CumulativeValue: 1.1},
			},
		},
	}
}

func (f *fakeRepo) SaveRun(ctx context.Context, run *contracts.RunRecord) error { return nil }

func (f *fakeRepo) ListRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := make([]contracts.RunSummary, 0, len(f.runs))
	for _, r := range f.runs {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) GetRun(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.runs[runID]
	if !ok {
		return nil, contracts.ErrRunNotFound{RunID: runID}
	}
	return &r, nil
}

func (f *fakeRepo) GetReturns(ctx context.Context, runID string) ([]contracts.ReturnRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.returns[runID]
	if !ok {
		return nil, contracts.ErrRunNotFound{RunID: runID}
	}
	return r, nil
}

func newTestRouter(repo contracts.RunRepository, recorder *metrics.Recorder) http.Handler {
	log := logger.NewNop()
	return NewRouter(handlers.NewRunHandler(repo, log), recorder, log)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestRouter(newFakeRepo(), nil), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestListRuns(t *testing.T) {
	repo := newFakeRepo()
	rec := get(t, newTestRouter(repo, nil), "/api/runs?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.RunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "run-1", resp.Runs[0].RunID)
	assert.Equal(t, 10, repo.limit)
}

func TestListRuns_BadLimit(t *testing.T) {
	router := newTestRouter(newFakeRepo(), nil)
	for _, q := range []string{"abc", "0", "501"} {
		rec := get(t, router, "/api/runs?limit="+q)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestGetRun(t *testing.T) {
	router := newTestRouter(newFakeRepo(), nil)

	tests := []struct {
		path string
		want int
	}{
		{"/api/runs/run-1", http.StatusOK},
		{"/api/runs/missing", http.StatusNotFound},
		{"/api/runs/run-1/returns", http.StatusOK},
		{"/api/runs/missing/returns", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := get(t, router, tt.path); rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}

	rec := get(t, router, "/api/runs/run-1/returns")
	var resp handlers.ReturnsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.InDelta(t, 1.1, resp.Returns[1].CumulativeValue, 1e-12)

	// NaN 지표는 null 로 직렬화
	rec = get(t, router, "/api/runs/run-1")
	assert.Contains(t, rec.Body.String(), `"sharpe":null`)
}

func TestRepositoryFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("db down")
	router := newTestRouter(repo, nil)

	for _, path := range []string{"/api/runs", "/api/runs/run-1", "/api/runs/run-1/returns"} {
		rec := get(t, router, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "db down", "internal error text not leaked")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := metrics.New()
	router := newTestRouter(newFakeRepo(), recorder)

	get(t, router, "/api/runs/run-1")
	rec := get(t, router, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `route="/api/runs/{id}"`), "requests counted per route template")

	// recorder 없이는 /metrics 미등록
	assert.Equal(t, http.StatusNotFound, get(t, newTestRouter(newFakeRepo(), nil), "/metrics").Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(&config.Config{Port: "0", Env: "development"}, logger.NewNop(), newTestRouter(newFakeRepo(), nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
