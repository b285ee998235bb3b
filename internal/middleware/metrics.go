package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mcoot/captain-draft/internal/metrics"
)

// Metrics records request counts and latencies. Upgraded websocket
// connections are counted but their lifetime is not observed as latency.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := WrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			m.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(wrapped.Status())).Inc()
			if !wrapped.hijacked {
				m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
			}
		})
	}
}
