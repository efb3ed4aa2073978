package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "method", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictions_total",
		Help: "Stored predictions by result",
	}, []string{"result"})

	PipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_failures_total",
		Help: "Failed prediction or history requests by error kind",
	}, []string{"kind"})

	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "model_inference_duration_seconds",
		Help:    "Duration of classifier inference calls",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// ModelState is 0 while loading, 1 when ready and -1 after a failed load.
	ModelState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "model_state",
		Help: "Classifier lifecycle state (0 loading, 1 ready, -1 failed)",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency keyed by the matched route
// pattern so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		RequestCount.WithLabelValues(path, r.Method, fmt.Sprintf("%d", rec.statusCode)).Inc()
		RequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}
