package portfolio

import (
	"context"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// Compile-time interface check.
var _ contracts.PortfolioConstructor = (*Constructor)(nil)

// Constructor implements S4: equal-weight sub-portfolio construction
// ⭐ SSOT: S4 포트폴리오 구성 로직은 여기서만
type Constructor struct {
	constraints Constraints
	logger      *logger.Logger
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(constraints Constraints, log *logger.Logger) (*Constructor, error) {
	if constraints.LongExposure < 0 || constraints.ShortExposure < 0 {
		return nil, contracts.ConfigurationErrorf("exposures must be >= 0, got long=%v short=%v", constraints.LongExposure, constraints.ShortExposure)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Constructor{
		constraints: constraints,
		logger:      log.WithStage(contracts.StagePortfolio.ShortName()),
	}, nil
}

// Construct gives each long symbol long_exposure/|L| and each short symbol
// −short_exposure/|S|. An empty side (or zero exposure) contributes no entries.
func (c *Constructor) Construct(ctx context.Context, selection *contracts.Selection) (contracts.SubPortfolio, error) {
	sub := contracts.NewSubPortfolio(contracts.Day(selection.Date))
	if err := ctx.Err(); err != nil {
		return sub, err
	}

	if n := len(selection.Long); n > 0 && c.constraints.LongExposure > 0 {
		w := c.constraints.LongExposure / float64(n)
		for _, symbol := range selection.Long {
			sub.Weights[symbol] = w
		}
	}
	if n := len(selection.Short); n > 0 && c.constraints.ShortExposure > 0 {
		w := -c.constraints.ShortExposure / float64(n)
		for _, symbol := range selection.Short {
			if _, dup := sub.Weights[symbol]; dup {
				return sub, contracts.PortfolioErrorf("%s selected on both sides on %s", symbol, selection.Date.Format(contracts.DateLayout))
			}
			sub.Weights[symbol] = w
		}
	}

	if err := c.constraints.Check(sub); err != nil {
		return sub, err
	}

	c.logger.WithFields(map[string]interface{}{
		"date":  sub.FormationDate.Format(contracts.DateLayout),
		"long":  sub.LongCount(),
		"short": sub.ShortCount(),
	}).Debug("Sub-portfolio constructed")

	return sub, nil
}
