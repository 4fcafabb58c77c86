// Package store provides account lookup backends.
package store

import (
	"context"
	"errors"

	"github.com/aBasicDream/tc/internal/user/models"
)

// ErrNotFound means no account matched the identifier.
var ErrNotFound = errors.New("account not found")

// AccountStore resolves accounts by their login identifiers.
type AccountStore interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}
