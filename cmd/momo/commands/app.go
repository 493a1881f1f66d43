package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hvkconsulling1/momo-sub000/internal/audit"
	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/s0_data"
	"github.com/hvkconsulling1/momo-sub000/internal/s1_universe"
	"github.com/hvkconsulling1/momo-sub000/pkg/config"
	"github.com/hvkconsulling1/momo-sub000/pkg/database"
	"github.com/hvkconsulling1/momo-sub000/pkg/httputil"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
	"github.com/hvkconsulling1/momo-sub000/pkg/metrics"
	"github.com/hvkconsulling1/momo-sub000/pkg/redis"
)

// app bundles the process-wide dependencies of one command
// Postgres / Redis 는 선택: 설정이 없으면 파일 기반으로 동작
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB // nil when DATABASE_URL is empty
	redis    *redis.Client
	recorder *metrics.Recorder
}

func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log, recorder: metrics.New()}

	// 3. Database (optional)
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("Database disabled, using file storage only")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.db = db
		log.Info("Connected to database")
	}

	// 4. Redis (optional; 연결 실패는 경고 후 비활성)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc = redis.Disabled()
	}
	a.redis = rc

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// remote returns the HTTP mirror of vendor exports
func (a *app) remote() *s0_data.RemoteExport {
	client := httputil.New(a.cfg, a.log)
	return s0_data.NewRemoteExport(a.cfg.Source.BaseURL, a.cfg.Storage.DataDir, client, a.log)
}

// sources picks explicit files, then Postgres, then the mirrored export
func (a *app) sources(universe, pricesPath, membershipPath string) (contracts.PriceSource, contracts.MembershipSource) {
	if pricesPath != "" {
		fs := s0_data.NewFileSource(pricesPath, membershipPath)
		return fs, fs
	}
	if a.db != nil {
		return s0_data.NewPriceRepository(a.db.Pool), s0_data.NewMembershipRepository(a.db.Pool)
	}
	dir := a.remote().LocalDir(universe)
	fs := s0_data.NewFileSource(filepath.Join(dir, "prices.parquet"), filepath.Join(dir, "membership.parquet"))
	return fs, fs
}

func (a *app) loader(universe, pricesPath, membershipPath string) *s0_data.Loader {
	prices, membership := a.sources(universe, pricesPath, membershipPath)
	return s0_data.NewLoader(prices, membership, s0_data.NewParquetCache(a.cfg.Storage.DataDir), a.log).
		WithObserver(a.recorder)
}

// snapshotCache is nil unless Redis is enabled
func (a *app) snapshotCache() *s1_universe.SnapshotCache {
	if !a.redis.Enabled() {
		return nil
	}
	return s1_universe.NewSnapshotCache(redis.NewCache(a.redis, "momo"), a.cfg.Redis.TTL, a.log)
}

func (a *app) fileStore() *audit.FileStore {
	return audit.NewFileStore(a.cfg.Storage.ResultsDir, a.log)
}

// sink writes every run to the results directory and, if configured, Postgres
func (a *app) sink() contracts.ResultSink {
	if a.db == nil {
		return a.fileStore()
	}
	return audit.MultiSink{a.fileStore(), audit.NewRepository(a.db.Pool)}
}

// repository serves stored runs to the API
func (a *app) repository() contracts.RunRepository {
	var inner contracts.RunRepository = a.fileStore()
	if a.db != nil {
		inner = audit.NewRepository(a.db.Pool)
	}
	return audit.NewCachedRepository(inner, redis.NewCache(a.redis, "momo"), 0, a.log)
}
