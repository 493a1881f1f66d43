package contracts

import (
	"sort"
	"time"
)

// UniverseSnapshot represents eligible symbols passed from S1 to S2
// ⭐ SSOT: S1 → S2 투자 가능 종목 전달
type UniverseSnapshot struct {
	Index    string            `json:"index"`
	Date     time.Time         `json:"date"`     // 요청 리밸런싱 날짜
	AsOf     time.Time         `json:"as_of"`    // 실제 사용한 거래일 (date 이하 최근 거래일)
	Symbols  []string          `json:"symbols"`  // 정렬된 편입 종목
	Excluded map[string]string `json:"excluded"` // 제외 종목: 사유
}

// Contains checks if a symbol is in the snapshot
func (u *UniverseSnapshot) Contains(symbol string) bool {
	i := sort.SearchStrings(u.Symbols, symbol)
	return i < len(u.Symbols) && u.Symbols[i] == symbol
}

// IsExcluded checks if a symbol was excluded and returns the reason
func (u *UniverseSnapshot) IsExcluded(symbol string) (bool, string) {
	reason, exists := u.Excluded[symbol]
	return exists, reason
}

// Count returns the number of eligible symbols
func (u *UniverseSnapshot) Count() int {
	return len(u.Symbols)
}
