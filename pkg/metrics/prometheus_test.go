package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.RecordRun("ok")
	r.RecordRun("ok")
	r.RecordRun("error")
	r.AddPeriods(24)
	r.RecordWarning("MISSING_FORWARD_RETURN")
	r.RecordCache("prices", true)
	r.RecordCache("prices", false)
	r.RecordCache("prices", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("error")))
	assert.Equal(t, 24.0, testutil.ToFloat64(r.periodsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("prices", "miss")))
}

func TestRecorder_IndependentRegistries(t *testing.T) {
	// 두 Recorder 생성 시 중복 등록 패닉이 없어야 함
	a := New()
	b := New()
	a.RecordRun("ok")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.runsTotal.WithLabelValues("ok")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.SetSharpe("xs_momentum", 0.85)
	r.SweepStarted()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `momo_last_run_sharpe{strategy_id="xs_momentum"} 0.85`))
	assert.True(t, strings.Contains(body, "momo_sweep_in_flight 1"))
}
