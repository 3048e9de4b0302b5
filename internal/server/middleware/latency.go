package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cocoflow/insight-engine/internal/metrics"
)

// Latency times every request and feeds the in-process collector.
func Latency(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			userID, _ := UserIDFromContext(r.Context())
			collector.RecordLatency(metrics.LatencySample{
				Endpoint:   r.URL.Path,
				Method:     r.Method,
				Duration:   time.Since(started),
				StatusCode: ww.Status(),
				UserID:     userID,
			})
		})
	}
}
