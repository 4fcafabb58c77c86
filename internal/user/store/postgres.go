package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aBasicDream/tc/internal/user/models"
)

// Postgres persists accounts in the user_info table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const accountColumns = `id, username, nickname, phone, email, avatar, password, status, created_at`

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.findBy(ctx, "username", username)
}

func (s *Postgres) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return s.findBy(ctx, "phone", phone)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findBy(ctx, "email", email)
}

func (s *Postgres) findBy(ctx context.Context, column, value string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_info WHERE %s = $1`, accountColumns, column)

	var a models.Account
	err := s.pool.QueryRow(ctx, query, value).Scan(
		&a.ID, &a.Username, &a.Nickname, &a.Phone, &a.Email,
		&a.Avatar, &a.PasswordHash, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account by %s: %w", column, err)
	}
	return &a, nil
}
