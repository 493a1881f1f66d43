package commands

import (
	"context"
	"fmt"

	"github.com/hvkconsulling1/momo-sub000/internal/backtest"
	"github.com/hvkconsulling1/momo-sub000/internal/s0_data"
	"github.com/hvkconsulling1/momo-sub000/internal/s1_universe"
	"github.com/hvkconsulling1/momo-sub000/internal/strategyconfig"
)

var (
	// 데이터 입력 (공통 플래그)
	strategyPath   string
	pricesPath     string
	membershipPath string
	forceRefresh   bool
)

// loadDataset runs S0 for the strategy's data window
func loadDataset(ctx context.Context, a *app, cfg *strategyconfig.Config) (*s0_data.Dataset, error) {
	from, to := backtest.DataWindow(cfg)
	ds, err := a.loader(cfg.Universe.Index, pricesPath, membershipPath).Load(ctx, s0_data.Request{
		Universe:     cfg.Universe.Index,
		Symbols:      cfg.Universe.Symbols,
		Start:        from,
		End:          to,
		ForceRefresh: forceRefresh,
	})
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	if len(ds.Skipped) > 0 {
		a.log.WithField("count", len(ds.Skipped)).Warn("Symbols without price data skipped")
	}
	return ds, nil
}

// loadIndex loads the strategy and builds the shared universe index
func loadIndex(ctx context.Context, a *app) (*strategyconfig.Config, *s1_universe.Index, error) {
	cfg, _, err := strategyconfig.Load(strategyPath)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range strategyconfig.Warn(cfg) {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}

	ds, err := loadDataset(ctx, a, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, s1_universe.NewIndex(ds.Panel, ds.Membership, a.log), nil
}
