package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Cache used by tests and single-node development
// setups. It honors TTLs against an injectable clock.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	locks   map[string]memoryLockEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

type memoryLockEntry struct {
	token     string
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]memoryLockEntry),
		now:     time.Now,
	}
}

// SetClock replaces the time source, letting tests advance TTLs without
// sleeping.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.expiry(ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live(key)
	return ok, nil
}

func (m *Memory) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	var expiresAt time.Time
	if e, ok := m.live(key); ok {
		n, _ = strconv.ParseInt(e.value, 10, 64)
		expiresAt = e.expiresAt
	}
	n++
	if ttl > 0 {
		expiresAt = m.expiry(ttl)
	}
	m.entries[key] = memoryEntry{value: strconv.FormatInt(n, 10), expiresAt: expiresAt}
	return n, nil
}

func (m *Memory) Counter(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (m *Memory) TryLock(ctx context.Context, name string, wait, lease time.Duration) (Unlocker, error) {
	token := uuid.NewString()
	deadline := m.nowLocked().Add(wait)

	for {
		if m.tryAcquire(name, token, lease) {
			return &memoryLock{owner: m, key: name, token: token}, nil
		}
		if m.nowLocked().After(deadline) {
			return nil, ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (m *Memory) tryAcquire(name, token string, lease time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.locks[name]; ok && m.now().Before(held.expiresAt) {
		return false
	}
	m.locks[name] = memoryLockEntry{token: token, expiresAt: m.now().Add(lease)}
	return true
}

func (m *Memory) nowLocked() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now()
}

// live returns the entry at key if present and unexpired, pruning it
// otherwise. Callers must hold mu.
func (m *Memory) live(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

type memoryLock struct {
	owner *Memory
	key   string
	token string
}

func (l *memoryLock) Unlock(_ context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if held, ok := l.owner.locks[l.key]; ok && held.token == l.token {
		delete(l.owner.locks, l.key)
	}
	return nil
}
