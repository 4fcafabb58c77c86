// Package audit records append-only login events. The pipeline writes them
// best-effort; nothing in this system reads them back.
package audit

import (
	"context"
	"time"
)

// Event is one login occurrence. Keep it transport-agnostic so stores and
// sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ClientIP  string    `json:"client_ip"`
	Device    string    `json:"device"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store appends events to a durable sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}
