package pipeline

import (
	"log/slog"
	"net/http"

	transporthttp "github.com/aBasicDream/tc/internal/transport/httputil"
)

// RequestLog logs each request on arrival and again on completion with the
// status code. It runs inside the timing stage and outside authentication,
// so the identity headers it reads reflect what the caller sent, not what
// the auth stage injected.
func RequestLog(logger *slog.Logger) Stage {
	return Stage{
		Name:  "requestlog",
		Order: OrderRequestLog,
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.Info("request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("client_ip", transporthttp.ClientIP(r)),
					slog.String("user_agent", r.UserAgent()),
				)

				rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
				next.ServeHTTP(rw, r)

				logger.Info("request complete",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", rw.statusCode),
				)
			})
		},
	}
}
