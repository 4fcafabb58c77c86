// Package monitor exposes the gateway's reporting surface: daily security
// counters and a liveness probe.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aBasicDream/tc/internal/security/stats"
	transporthttp "github.com/aBasicDream/tc/internal/transport/httputil"
)

// SnapshotSource reads today's counters.
type SnapshotSource interface {
	TodaySnapshot(ctx context.Context) (stats.Snapshot, error)
}

type Handler struct {
	source SnapshotSource
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(source SnapshotSource, logger *slog.Logger) *Handler {
	return &Handler{source: source, logger: logger, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/monitor/stats", h.statsHandler)
	r.Get("/api/monitor/health", h.healthHandler)
}

type statsResponse struct {
	stats.Snapshot
	LoginSuccessRate         string `json:"loginSuccessRate"`
	TokenValidateSuccessRate string `json:"tokenValidateSuccessRate"`
	Timestamp                int64  `json:"timestamp"`
}

func (h *Handler) statsHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.source.TodaySnapshot(r.Context())
	if err != nil {
		h.logger.Error("stats snapshot failed", slog.String("error", err.Error()))
		transporthttp.WriteErrorMessage(w, r, http.StatusServiceUnavailable, "statistics unavailable")
		return
	}

	transporthttp.WriteJSON(w, http.StatusOK, statsResponse{
		Snapshot:                 snap,
		LoginSuccessRate:         rate(snap.LoginSuccess, snap.LoginFailed),
		TokenValidateSuccessRate: rate(snap.TokenValidateSuccess, snap.TokenValidateFailed),
		Timestamp:                h.now().UnixMilli(),
	})
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	transporthttp.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "UP",
		"timestamp": h.now().UnixMilli(),
	})
}

// rate formats success/(success+failed) as a percentage. No attempts reads
// as fully successful.
func rate(success, failed int64) string {
	total := success + failed
	if total == 0 {
		return "100.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(success)/float64(total)*100)
}
