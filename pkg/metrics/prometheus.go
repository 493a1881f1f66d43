package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects backtest pipeline metrics on its own registry
// ⭐ SSOT: 메트릭 정의는 여기서만 (전역 DefaultRegisterer 사용 안 함)
type Recorder struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	periodsTotal  prometheus.Counter
	warningsTotal *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	lastSharpe    *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	sweepInFlight prometheus.Gauge
}

// New creates a Recorder with a fresh registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momo_backtest_runs_total",
				Help: "Backtest runs by outcome",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "momo_stage_duration_seconds",
				Help:    "Time spent per pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		periodsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "momo_periods_processed_total",
			Help: "Rebalance periods processed",
		}),
		warningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momo_warnings_total",
				Help: "Backtest warnings by code",
			},
			[]string{"code"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momo_cache_lookups_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		lastSharpe: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "momo_last_run_sharpe",
				Help: "Sharpe ratio of the most recent run per strategy",
			},
			[]string{"strategy_id"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momo_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		sweepInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "momo_sweep_in_flight",
			Help: "Sweep variants currently running",
		}),
	}

	reg.MustRegister(
		r.runsTotal, r.stageDuration, r.periodsTotal, r.warningsTotal,
		r.cacheLookups, r.lastSharpe, r.httpRequests, r.sweepInFlight,
		collectors.NewGoCollector(),
	)
	return r
}

// Registry exposes the underlying registry (tests, custom handlers)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the /metrics HTTP handler
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordRun counts a finished run ("ok" or "error")
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records stage latency in seconds
func (r *Recorder) ObserveStage(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// AddPeriods counts processed rebalance periods
func (r *Recorder) AddPeriods(n int) {
	r.periodsTotal.Add(float64(n))
}

// RecordWarning counts a backtest warning
func (r *Recorder) RecordWarning(code string) {
	r.warningsTotal.WithLabelValues(code).Inc()
}

// RecordCache counts a cache hit or miss
func (r *Recorder) RecordCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(cache, result).Inc()
}

// SetSharpe publishes the latest Sharpe ratio for a strategy
func (r *Recorder) SetSharpe(strategyID string, sharpe float64) {
	r.lastSharpe.WithLabelValues(strategyID).Set(sharpe)
}

// RecordHTTP counts an API request
func (r *Recorder) RecordHTTP(route, method, status string) {
	r.httpRequests.WithLabelValues(route, method, status).Inc()
}

// SweepStarted / SweepDone track in-flight sweep variants
func (r *Recorder) SweepStarted() { r.sweepInFlight.Inc() }

func (r *Recorder) SweepDone() { r.sweepInFlight.Dec() }
