package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aBasicDream/tc/internal/user/models"
)

func TestMemoryFindByIdentifiers(t *testing.T) {
	m := NewMemory()
	added := m.Add(models.Account{
		Username: "alice",
		Phone:    "13800000001",
		Email:    "alice@example.com",
		Status:   models.StatusActive,
	})
	require.NotZero(t, added.ID)

	ctx := context.Background()
	for _, find := range []func() (*models.Account, error){
		func() (*models.Account, error) { return m.FindByUsername(ctx, "alice") },
		func() (*models.Account, error) { return m.FindByPhone(ctx, "13800000001") },
		func() (*models.Account, error) { return m.FindByEmail(ctx, "alice@example.com") },
	} {
		got, err := find()
		require.NoError(t, err)
		require.Equal(t, added.ID, got.ID)
	}

	_, err := m.FindByUsername(ctx, "bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryEmptyIdentifiersDoNotMatch(t *testing.T) {
	m := NewMemory()
	m.Add(models.Account{Username: "nophone", Status: models.StatusActive})

	_, err := m.FindByPhone(context.Background(), "")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindByEmail(context.Background(), "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	m.Add(models.Account{Username: "alice", Status: models.StatusActive})

	got, err := m.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	got.Status = models.StatusDisabled

	again, err := m.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, again.Status)
}
