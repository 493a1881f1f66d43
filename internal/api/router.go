package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/hvkconsulling1/momo-sub000/internal/api/handlers"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
	"github.com/hvkconsulling1/momo-sub000/pkg/metrics"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
// recorder 가 nil 이면 /metrics 와 요청 카운터 비활성
func NewRouter(runHandler *handlers.RunHandler, recorder *metrics.Recorder, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if recorder != nil {
		r.Handle("/metrics", recorder.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Run endpoints
	api.HandleFunc("/runs", runHandler.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", runHandler.GetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/returns", runHandler.GetReturns).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log, recorder))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "momo-api",
	})
}

// statusWriter captures the response status for logging
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger, recorder *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(sw, r)

			// 라우트 템플릿 단위로 집계
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			if recorder != nil {
				recorder.RecordHTTP(route, r.Method, strconv.Itoa(sw.status))
			}

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
