package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every stage
// ⭐ SSOT: 에러 분류는 여기서만 정의, 호출자는 errors.Is 로 판별
var (
	// ErrData unrecognized index, broken panel, insufficient coverage (fatal)
	ErrData = errors.New("data error")

	// ErrCache unreadable or malformed cache file; a kind of ErrData
	ErrCache = fmt.Errorf("%w: cache", ErrData)

	// ErrSignal every score undefined for a date (recorded, not fatal)
	ErrSignal = errors.New("signal error")

	// ErrPortfolio weight-sum constraint violated (implementation defect, fatal)
	ErrPortfolio = errors.New("portfolio error")

	// ErrConfiguration invalid configuration record (fatal before any computation)
	ErrConfiguration = errors.New("configuration error")
)

// DataErrorf wraps ErrData with a formatted message
func DataErrorf(format string, args ...interface{}) error {
	return wrapf(ErrData, format, args...)
}

// CacheErrorf wraps ErrCache with a formatted message
func CacheErrorf(format string, args ...interface{}) error {
	return wrapf(ErrCache, format, args...)
}

// SignalErrorf wraps ErrSignal with a formatted message
func SignalErrorf(format string, args ...interface{}) error {
	return wrapf(ErrSignal, format, args...)
}

// PortfolioErrorf wraps ErrPortfolio with a formatted message
func PortfolioErrorf(format string, args ...interface{}) error {
	return wrapf(ErrPortfolio, format, args...)
}

// ConfigurationErrorf wraps ErrConfiguration with a formatted message
func ConfigurationErrorf(format string, args ...interface{}) error {
	return wrapf(ErrConfiguration, format, args...)
}

func wrapf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
