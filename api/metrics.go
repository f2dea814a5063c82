package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docustream",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	pointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docustream",
		Subsystem: "accrual",
		Name:      "points_awarded_total",
		Help:      "Points awarded through the API, by transaction type.",
	}, []string{"type"})
)

// requestMetrics records request latency and status for every route.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		requestDuration.
			WithLabelValues(r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
