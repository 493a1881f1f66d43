package backtest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hvkconsulling1/momo-sub000/internal/s1_universe"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
	"github.com/hvkconsulling1/momo-sub000/pkg/metrics"
)

// SinkFunc persists one finished run; called from worker goroutines
type SinkFunc func(ctx context.Context, result *Result) error

// SweepResult is the outcome of one configuration
type SweepResult struct {
	Config *strategyconfig.Config
	Result *Result
	Err    error
}

// Sweep runs independent configurations on a bounded worker pool.
// The index (panel + membership) is shared read-only; every run owns its
// aggregator, universe memo and return engine. A failing configuration is
// reported in its SweepResult; cancellation stops the pool.
type Sweep struct {
	index     *s1_universe.Index
	workers   int
	snapshots *s1_universe.SnapshotCache
	recorder  *metrics.Recorder
	sink      SinkFunc
	logger    *logger.Logger
}

// NewSweep creates a sweep over index with the given worker count
func NewSweep(index *s1_universe.Index, workers int, log *logger.Logger) *Sweep {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Sweep{index: index, workers: workers, logger: log}
}

// WithSnapshotCache shares universe snapshots across runs
func (s *Sweep) WithSnapshotCache(cache *s1_universe.SnapshotCache) *Sweep {
	s.snapshots = cache
	return s
}

// WithRecorder reports run and pool metrics
func (s *Sweep) WithRecorder(recorder *metrics.Recorder) *Sweep {
	s.recorder = recorder
	return s
}

// WithSink persists each run as soon as it finishes
func (s *Sweep) WithSink(sink SinkFunc) *Sweep {
	s.sink = sink
	return s
}

// Run executes configs; results keep the input order
func (s *Sweep) Run(ctx context.Context, configs []*strategyconfig.Config) ([]SweepResult, error) {
	results := make([]SweepResult, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	s.logger.WithFields(map[string]interface{}{
		"configs": len(configs),
		"workers": s.workers,
	}).Info("Starting sweep")

	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.runOne(gctx, cfg)
			// 취소만 풀 전체를 멈춤; 개별 설정 실패는 결과에 기록
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("sweep cancelled: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.WithFields(map[string]interface{}{
		"configs": len(configs),
		"failed":  failed,
	}).Info("Sweep completed")

	return results, nil
}

func (s *Sweep) runOne(ctx context.Context, cfg *strategyconfig.Config) SweepResult {
	if s.recorder != nil {
		s.recorder.SweepStarted()
		defer s.recorder.SweepDone()
	}

	out := SweepResult{Config: cfg}
	engine, err := NewEngine(cfg, s.index, s.logger)
	if err != nil {
		out.Err = err
		return out
	}
	if s.snapshots != nil {
		engine.WithSnapshotCache(s.snapshots)
	}
	if s.recorder != nil {
		engine.WithRecorder(s.recorder)
	}

	result, err := engine.Run(ctx, "")
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = result

	if s.sink != nil {
		if err := s.sink(ctx, result); err != nil {
			out.Err = fmt.Errorf("persist run %s: %w", result.RunID, err)
		}
	}
	return out
}
