package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// 결과 디렉터리 구성: {results_dir}/{run_id}/
const (
	ReturnsFile  = "returns.parquet"
	MetricsFile  = "metrics.json"
	ConfigFile   = "config.yaml"
	WarningsFile = "warnings.json"
	RunFile      = "run.json"
)

// tempGracePeriod protects temp directories a concurrent SaveRun may still be writing
const tempGracePeriod = time.Hour

// Compile-time interface check.
var _ contracts.RunRepository = (*FileStore)(nil)

// ReturnRow is the Parquet schema of one ReturnRecord
type ReturnRow struct {
	Date            int64   `parquet:"date,timestamp(millisecond)"`
	EndDate         int64   `parquet:"end_date,timestamp(millisecond)"`
	PortfolioReturn float64 `parquet:"portfolio_return"`
	CumulativeValue float64 `parquet:"cumulative_value"`
	Turnover        float64 `parquet:"turnover"`
	LongCount       int32   `parquet:"long_count"`
	ShortCount      int32   `parquet:"short_count"`
	ActiveCohorts   int32   `parquet:"active_cohorts"`
	MissingReturns  int32   `parquet:"missing_returns"`
	Degenerate      bool    `parquet:"degenerate"`
}

// FileStore writes finished runs under Dir and reads them back
// ⭐ SSOT: 결과 파일 레이아웃은 여기서만
// returns/metrics/config/warnings 는 같은 run 에 대해 바이트 단위로 동일
type FileStore struct {
	Dir    string
	logger *logger.Logger
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string, log *logger.Logger) *FileStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &FileStore{Dir: dir, logger: log.WithStage(contracts.StageAudit.ShortName())}
}

// RunDir returns the directory of a run
func (s *FileStore) RunDir(runID string) string {
	return filepath.Join(s.Dir, runID)
}

// SaveRun writes all files into a temp directory, then renames it into place.
// An existing directory for the same run is replaced.
func (s *FileStore) SaveRun(ctx context.Context, run *contracts.RunRecord) error {
	if run.RunID == "" {
		return fmt.Errorf("save run: empty run id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.Dir, err)
	}

	tmp, err := os.MkdirTemp(s.Dir, ".tmp-"+run.RunID+"-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := writeReturns(filepath.Join(tmp, ReturnsFile), run.Returns); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(tmp, MetricsFile), run.Metrics); err != nil {
		return err
	}
	warnings := run.Warnings
	if warnings == nil {
		warnings = []contracts.Warning{}
	}
	if err := writeJSON(filepath.Join(tmp, WarningsFile), warnings); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, ConfigFile), []byte(run.ConfigYAML), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := writeJSON(filepath.Join(tmp, RunFile), metaOf(run)); err != nil {
		return err
	}

	final := s.RunDir(run.RunID)
	if err := os.RemoveAll(final); err != nil {
		return fmt.Errorf("replace %s: %w", final, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename %s: %w", final, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":  run.RunID,
		"dir":     final,
		"periods": len(run.Returns),
	}).Info("Run results written")
	return nil
}

// ListRuns returns stored runs, newest first
func (s *FileStore) ListRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return []contracts.RunSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Dir, err)
	}

	runs := make([]contracts.RunSummary, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		summary, err := s.GetRun(ctx, e.Name())
		if err != nil {
			s.logger.WithError(err).WithField("run_id", e.Name()).Warn("Skipping unreadable run directory")
			continue
		}
		runs = append(runs, *summary)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun reads run.json and metrics.json of one run
func (s *FileStore) GetRun(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	dir := s.RunDir(runID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, contracts.ErrRunNotFound{RunID: runID}
	}

	var meta runMeta
	if err := readJSON(filepath.Join(dir, RunFile), &meta); err != nil {
		return nil, err
	}
	summary := &contracts.RunSummary{
		RunID:      meta.RunID,
		StrategyID: meta.StrategyID,
		ConfigHash: meta.ConfigHash,
		CreatedAt:  meta.CreatedAt,
	}
	if err := readJSON(filepath.Join(dir, MetricsFile), &summary.Metrics); err != nil {
		return nil, err
	}
	return summary, nil
}

// GetReturns reads returns.parquet of one run
func (s *FileStore) GetReturns(ctx context.Context, runID string) ([]contracts.ReturnRecord, error) {
	path := filepath.Join(s.RunDir(runID), ReturnsFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, contracts.ErrRunNotFound{RunID: runID}
	}
	return ReadReturns(path)
}

// Prune keeps the newest keep runs and removes the rest, plus leftover temp
// directories older than tempGracePeriod. It returns the removed run IDs.
func (s *FileStore) Prune(ctx context.Context, keep int) ([]string, error) {
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", s.Dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // 동시에 rename 된 경우
		}
		if time.Since(info.ModTime()) < tempGracePeriod {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.Dir, e.Name())); err != nil {
			return nil, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}

	if keep < 0 {
		keep = 0
	}
	if len(runs) <= keep {
		return nil, nil
	}

	removed := make([]string, 0, len(runs)-keep)
	for _, r := range runs[keep:] {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.RemoveAll(s.RunDir(r.RunID)); err != nil {
			return removed, fmt.Errorf("remove run %s: %w", r.RunID, err)
		}
		removed = append(removed, r.RunID)
	}

	s.logger.WithFields(map[string]interface{}{
		"kept":    keep,
		"removed": len(removed),
	}).Info("Old runs pruned")
	return removed, nil
}

// ReadReturns decodes a returns.parquet file
func ReadReturns(path string) ([]contracts.ReturnRecord, error) {
	rows, err := parquet.ReadFile[ReturnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	records := make([]contracts.ReturnRecord, len(rows))
	for i, r := range rows {
		records[i] = contracts.ReturnRecord{
			Date:            time.UnixMilli(r.Date).UTC(),
			EndDate:         time.UnixMilli(r.EndDate).UTC(),
			PortfolioReturn: r.PortfolioReturn,
			CumulativeValue: r.CumulativeValue,
			Turnover:        r.Turnover,
			LongCount:       int(r.LongCount),
			ShortCount:      int(r.ShortCount),
			ActiveCohorts:   int(r.ActiveCohorts),
			MissingReturns:  int(r.MissingReturns),
			Degenerate:      r.Degenerate,
		}
	}
	return records, nil
}

func writeReturns(path string, records []contracts.ReturnRecord) error {
	rows := make([]ReturnRow, len(records))
	for i, r := range records {
		rows[i] = ReturnRow{
			Date:            contracts.Day(r.Date).UnixMilli(),
			EndDate:         contracts.Day(r.EndDate).UnixMilli(),
			PortfolioReturn: r.PortfolioReturn,
			CumulativeValue: r.CumulativeValue,
			Turnover:        r.Turnover,
			LongCount:       int32(r.LongCount),
			ShortCount:      int32(r.ShortCount),
			ActiveCohorts:   int32(r.ActiveCohorts),
			MissingReturns:  int32(r.MissingReturns),
			Degenerate:      r.Degenerate,
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// runMeta is run.json; the only file that differs between reruns
type runMeta struct {
	RunID      string    `json:"run_id"`
	StrategyID string    `json:"strategy_id"`
	ConfigHash string    `json:"config_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

func metaOf(run *contracts.RunRecord) runMeta {
	return runMeta{
		RunID:      run.RunID,
		StrategyID: run.StrategyID,
		ConfigHash: run.ConfigHash,
		CreatedAt:  run.CreatedAt,
	}
}
