package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryAppend(t *testing.T) {
	m := NewMemory()

	err := m.Append(context.Background(), Event{
		UserID:   42,
		Username: "alice",
		ClientIP: "10.0.0.1",
		Device:   "Chrome 120 / Linux",
	})
	require.NoError(t, err)

	events := m.Events()
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].ID)
	require.False(t, events[0].Timestamp.IsZero())
	require.Equal(t, "alice", events[0].Username)

	// Events() hands out a copy.
	events[0].Username = "mallory"
	require.Equal(t, "alice", m.Events()[0].Username)
}
