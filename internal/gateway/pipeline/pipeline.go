// Package pipeline composes the ordered chain of request-processing stages
// every inbound request traverses at the edge: timing, request logging, and
// authentication. The chain is a statically declared ordered list; there is
// no runtime discovery or reordering.
package pipeline

import (
	"net/http"
	"sort"
)

// Stage orders: lower runs first, i.e. wraps everything that follows. The
// timing stage is outermost so its measurement covers the logging and
// authentication stages.
const (
	OrderTiming     = -300
	OrderRequestLog = -200
	OrderAuth       = -100
)

// Stage is one request-processing step. Middleware wraps the rest of the
// chain; stages must stay idempotent with respect to retries and touch
// nothing beyond request-scoped context and best-effort stat increments.
type Stage struct {
	Name       string
	Order      int
	Middleware func(http.Handler) http.Handler
}

// Chain composes stages around h in ascending order. The resulting order is
// fixed per request and never changes at runtime.
func Chain(h http.Handler, stages ...Stage) http.Handler {
	sorted := make([]Stage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	// Wrap inside-out: the last (highest-order) stage ends up innermost.
	for i := len(sorted) - 1; i >= 0; i-- {
		h = sorted[i].Middleware(h)
	}
	return h
}

// responseWriter captures the status code written downstream.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
