package strategyconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// 에러 필드명은 YAML 키 기준
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match errors.Is(err, contracts.ErrConfiguration)
func (e ValidationError) Unwrap() error {
	return contracts.ErrConfiguration
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (계산 시작 전 중단)
func Validate(cfg *Config) error {
	// === 필드 단위 규칙 (struct tag) ===
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return toValidationError(fieldErrs[0])
		}
		return ValidationError{"config", err.Error()}
	}

	// === Signals ===
	if cfg.Signals.SkipMonths >= cfg.Signals.LookbackMonths {
		return ValidationError{
			Field:   "signals.skip_months",
			Message: fmt.Sprintf("must be < lookback_months (%d), got %d", cfg.Signals.LookbackMonths, cfg.Signals.SkipMonths),
		}
	}

	// === Selection ===
	if err := validatePctRange(cfg.Selection.LongPct(), "selection.long_percentile"); err != nil {
		return err
	}
	if err := validatePctRange(cfg.Selection.ShortPct(), "selection.short_percentile"); err != nil {
		return err
	}
	// 같은 종목이 롱/숏 양쪽에 동시에 선정되지 않도록
	if cfg.Selection.ShortPct() >= cfg.Selection.LongPct() {
		return ValidationError{"selection", "short_percentile must be < long_percentile"}
	}

	// === Portfolio ===
	if cfg.Portfolio.LongExposure == 0 && cfg.Portfolio.ShortExposure == 0 {
		return ValidationError{"portfolio", "long_exposure and short_exposure cannot both be 0"}
	}

	// === Backtest ===
	if !cfg.Backtest.StartDate.Before(cfg.Backtest.EndDate) {
		return ValidationError{"backtest", "start_date must be before end_date"}
	}

	return nil
}

// Warn returns recommendation violations that do not block a run
func Warn(cfg *Config) []Warning {
	warnings := make([]Warning, 0)

	if cfg.Universe.MinHistoryMonths < cfg.Signals.LookbackMonths {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HISTORY_FILTER",
			Message: fmt.Sprintf("min_history_months=%d < lookback_months=%d: eligible symbols may have undefined scores", cfg.Universe.MinHistoryMonths, cfg.Signals.LookbackMonths),
		})
	}

	if cfg.Portfolio.LongExposure != cfg.Portfolio.ShortExposure {
		warnings = append(warnings, Warning{
			Code:    "NET_EXPOSURE",
			Message: fmt.Sprintf("portfolio is not dollar neutral: long=%.2f short=%.2f", cfg.Portfolio.LongExposure, cfg.Portfolio.ShortExposure),
		})
	}

	if cfg.Portfolio.HoldingMonths%cfg.Portfolio.MonthsPerPeriod() != 0 {
		warnings = append(warnings, Warning{
			Code:    "HOLDING_ROUNDED",
			Message: fmt.Sprintf("holding_months=%d is not a multiple of the %s period; using %d cohorts", cfg.Portfolio.HoldingMonths, cfg.Portfolio.RebalanceFrequency, cfg.Portfolio.HoldingPeriods()),
		})
	}

	if cfg.Selection.LongPercentile != nil || cfg.Selection.ShortPercentile != nil {
		warnings = append(warnings, Warning{
			Code:    "PERCENTILE_OVERRIDE",
			Message: fmt.Sprintf("explicit percentiles override selection.method=%s", cfg.Selection.Method),
		})
	}

	return warnings
}

// === Helper Functions ===

// toValidationError maps a struct tag failure to a YAML-path error
func toValidationError(fe validator.FieldError) ValidationError {
	// Namespace: "Config.signals.lookback_months" → "signals.lookback_months"
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "required"
	case "oneof":
		msg = fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		msg = fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		msg = fmt.Sprintf("must be <= %s", fe.Param())
	default:
		msg = fmt.Sprintf("failed validation: %s", fe.Tag())
	}

	return ValidationError{Field: field, Message: msg}
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
