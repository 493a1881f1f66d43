package contracts

import "time"

// Side is the direction a selected symbol is held on
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Selection represents long/short candidates passed from the selector to S5
// ⭐ SSOT: 선정 → S5 포트폴리오 전달
type Selection struct {
	Date        time.Time          `json:"date"`
	Long        []string           `json:"long"`              // 정렬된 롱 후보
	Short       []string           `json:"short"`             // 정렬된 숏 후보
	Percentiles map[string]float64 `json:"percentiles"`       // 정의된 점수만 순위 부여
	Emptied     []Side             `json:"emptied,omitempty"` // min_side_count 미달로 비운 쪽
}

// SideOf returns the side a symbol was selected on
func (s *Selection) SideOf(symbol string) (Side, bool) {
	for _, code := range s.Long {
		if code == symbol {
			return SideLong, true
		}
	}
	for _, code := range s.Short {
		if code == symbol {
			return SideShort, true
		}
	}
	return "", false
}

// Empty reports whether both sides are empty
func (s *Selection) Empty() bool {
	return len(s.Long) == 0 && len(s.Short) == 0
}
