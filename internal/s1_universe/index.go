package s1_universe

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/internal/s0_data/quality"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// GapBusinessDays breaks a continuous price history
const GapBusinessDays = 10

type change struct {
	date     time.Time
	isMember bool
}

type segment struct {
	start time.Time
	end   time.Time
}

// Index pre-indexes membership changes and continuous price runs once per panel
// ⭐ SSOT: S1 시점 기준 편입/이력 조회 (읽기 전용, 여러 run 에서 공유 가능)
type Index struct {
	panel       *contracts.PricePanel
	changes     map[string]map[string][]change // index → symbol → 날짜순 변경 이력
	segments    map[string][]segment           // symbol → 연속 가격 구간
	fingerprint string
}

// NewIndex builds the lookup tables. Records with a blank symbol or index name
// are skipped with a warning.
func NewIndex(panel *contracts.PricePanel, membership []contracts.MembershipRecord, log *logger.Logger) *Index {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithStage(contracts.StageUniverse.ShortName())

	idx := &Index{
		panel:    panel,
		changes:  make(map[string]map[string][]change),
		segments: make(map[string][]segment),
	}

	skipped := 0
	for _, r := range membership {
		symbol := strings.TrimSpace(r.Symbol)
		if symbol == "" || r.IndexName == "" {
			skipped++
			continue
		}
		bySymbol, ok := idx.changes[r.IndexName]
		if !ok {
			bySymbol = make(map[string][]change)
			idx.changes[r.IndexName] = bySymbol
		}
		bySymbol[symbol] = append(bySymbol[symbol], change{date: contracts.Day(r.Date), isMember: r.IsMember})
	}
	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("membership records with blank symbol or index skipped")
	}

	for _, bySymbol := range idx.changes {
		for _, history := range bySymbol {
			sort.SliceStable(history, func(i, j int) bool { return history[i].date.Before(history[j].date) })
		}
	}

	for _, symbol := range panel.Symbols() {
		idx.segments[symbol] = continuousRuns(panel.Series(symbol))
	}

	idx.fingerprint = idx.contentHash()
	return idx
}

// continuousRuns splits a series wherever consecutive bars are GapBusinessDays or more apart
func continuousRuns(series []contracts.PriceBar) []segment {
	if len(series) == 0 {
		return nil
	}
	runs := []segment{{start: series[0].Date, end: series[0].Date}}
	for i := 1; i < len(series); i++ {
		cur := &runs[len(runs)-1]
		if quality.BusinessDaysBetween(cur.end, series[i].Date) >= GapBusinessDays {
			runs = append(runs, segment{start: series[i].Date, end: series[i].Date})
			continue
		}
		cur.end = series[i].Date
	}
	return runs
}

// contentHash covers every bar key and close plus every membership change,
// so restated prices or flipped flags never share a snapshot cache key
func (x *Index) contentHash() string {
	h := sha256.New()
	buf := make([]byte, 0, 64)

	for _, b := range x.panel.Bars() {
		buf = buf[:0]
		buf = append(buf, 'P')
		buf = strconv.AppendInt(buf, contracts.Day(b.Date).Unix(), 10)
		buf = append(buf, '|')
		buf = append(buf, b.Symbol...)
		buf = append(buf, '|')
		buf = strconv.AppendUint(buf, math.Float64bits(b.Close), 16)
		buf = append(buf, '\n')
		h.Write(buf)
	}

	for _, index := range x.Indexes() {
		bySymbol := x.changes[index]
		symbols := make([]string, 0, len(bySymbol))
		for symbol := range bySymbol {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		for _, symbol := range symbols {
			for _, c := range bySymbol[symbol] {
				buf = buf[:0]
				buf = append(buf, 'M')
				buf = append(buf, index...)
				buf = append(buf, '|')
				buf = append(buf, symbol...)
				buf = append(buf, '|')
				buf = strconv.AppendInt(buf, c.date.Unix(), 10)
				buf = append(buf, '|')
				buf = strconv.AppendBool(buf, c.isMember)
				buf = append(buf, '\n')
				h.Write(buf)
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Panel returns the indexed price panel
func (x *Index) Panel() *contracts.PricePanel {
	return x.panel
}

// Fingerprint identifies the (panel, membership) pair for shared caches
func (x *Index) Fingerprint() string {
	return x.fingerprint
}

// Indexes returns known index names, sorted
func (x *Index) Indexes() []string {
	out := make([]string, 0, len(x.changes))
	for name := range x.changes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasIndex reports whether any membership record names index
func (x *Index) HasIndex(index string) bool {
	_, ok := x.changes[index]
	return ok
}

// Symbols returns every symbol ever recorded for index, sorted
func (x *Index) Symbols(index string) []string {
	bySymbol := x.changes[index]
	out := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsMember reports membership from the latest change dated on or before date.
// No change yet means not a member.
func (x *Index) IsMember(index, symbol string, date time.Time) bool {
	history := x.changes[index][symbol]
	date = contracts.Day(date)
	i := sort.Search(len(history), func(i int) bool { return history[i].date.After(date) })
	if i == 0 {
		return false
	}
	return history[i-1].isMember
}

// MembersAt returns the constituents of index at date (nearest prior change)
func (x *Index) MembersAt(index string, date time.Time) ([]string, error) {
	if !x.HasIndex(index) {
		return nil, contracts.DataErrorf("unrecognized index %q", index)
	}
	var members []string
	for _, symbol := range x.Symbols(index) {
		if x.IsMember(index, symbol, date) {
			members = append(members, symbol)
		}
	}
	return members, nil
}

// HistoryStart returns the start of the continuous price run that contains
// the symbol's last bar on or before asOf. ok=false when the symbol has no
// bar by asOf or that run ended GapBusinessDays or more before asOf.
func (x *Index) HistoryStart(symbol string, asOf time.Time) (time.Time, bool) {
	runs := x.segments[symbol]
	asOf = contracts.Day(asOf)
	i := sort.Search(len(runs), func(i int) bool { return runs[i].start.After(asOf) })
	if i == 0 {
		return time.Time{}, false
	}
	run := runs[i-1]
	last := run.end
	if last.After(asOf) {
		last = asOf
	}
	if quality.BusinessDaysBetween(last, asOf) >= GapBusinessDays {
		return time.Time{}, false
	}
	return run.start, true
}
