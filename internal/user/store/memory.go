package store

import (
	"context"
	"sync"

	"github.com/aBasicDream/tc/internal/user/models"
)

// Memory is an in-process AccountStore used in development and tests.
type Memory struct {
	mu       sync.RWMutex
	accounts map[int64]*models.Account
	nextID   int64
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[int64]*models.Account), nextID: 1}
}

// Add stores a copy of the account, assigning an id when unset.
func (m *Memory) Add(account models.Account) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == 0 {
		account.ID = m.nextID
	}
	if account.ID >= m.nextID {
		m.nextID = account.ID + 1
	}
	m.accounts[account.ID] = &account
	return &account
}

func (m *Memory) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	return m.find(func(a *models.Account) bool { return a.Username == username })
}

func (m *Memory) FindByPhone(_ context.Context, phone string) (*models.Account, error) {
	return m.find(func(a *models.Account) bool { return a.Phone != "" && a.Phone == phone })
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	return m.find(func(a *models.Account) bool { return a.Email != "" && a.Email == email })
}

func (m *Memory) find(match func(*models.Account) bool) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if match(a) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}
