package pipeline

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func namedStage(name string, order int, trace *[]string) Stage {
	return Stage{
		Name:  name,
		Order: order,
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				*trace = append(*trace, name+":in")
				next.ServeHTTP(w, r)
				*trace = append(*trace, name+":out")
			})
		},
	}
}

func TestChainRunsLowestOrderOutermost(t *testing.T) {
	var trace []string
	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trace = append(trace, "handler")
		}),
		namedStage("auth", OrderAuth, &trace),
		namedStage("timing", OrderTiming, &trace),
		namedStage("requestlog", OrderRequestLog, &trace),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, []string{
		"timing:in", "requestlog:in", "auth:in",
		"handler",
		"auth:out", "requestlog:out", "timing:out",
	}, trace)
}

func TestChainStableForEqualOrders(t *testing.T) {
	var trace []string
	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		namedStage("a", 0, &trace),
		namedStage("b", 0, &trace),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"a:in", "b:in", "b:out", "a:out"}, trace)
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusTeapot)

	require.Equal(t, http.StatusTeapot, rw.statusCode)
	require.Equal(t, http.StatusTeapot, rec.Code)
}
