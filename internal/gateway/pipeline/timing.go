package pipeline

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aBasicDream/tc/internal/gateway/metrics"
)

// slowThreshold marks requests worth a warning log.
const slowThreshold = 5 * time.Second

// Timing is the outermost stage. It measures total time spent inside the
// chain, records it, and warns on requests slower than slowThreshold.
func Timing(logger *slog.Logger) Stage {
	return Stage{
		Name:  "timing",
		Order: OrderTiming,
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()
				rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

				next.ServeHTTP(rw, r)

				elapsed := time.Since(start)
				metrics.RequestDuration.Observe(elapsed.Seconds())
				metrics.RequestsTotal.WithLabelValues(outcome(rw.statusCode)).Inc()

				if elapsed > slowThreshold {
					metrics.SlowRequestsTotal.Inc()
					logger.Warn("slow request",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.Int("status", rw.statusCode),
						slog.Duration("elapsed", elapsed),
					)
				} else {
					logger.Debug("request timed",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.Duration("elapsed", elapsed),
					)
				}
			})
		},
	}
}

func outcome(status int) string {
	if status >= 200 && status < 400 {
		return "ok"
	}
	return strconv.Itoa(status)
}
