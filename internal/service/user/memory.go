package user

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore implements Store with in-memory storage.
// It backs tests and STORE_BACKEND=memory local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	return u.clone(), nil
}

func (m *MemoryStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.TrimSpace(email)
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}

	return false, nil
}

func (m *MemoryStore) Upsert(_ context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := u.clone()
	stored.Preferences = stored.Preferences.Materialize()
	if prev, ok := m.users[u.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	}
	m.users[u.ID] = stored

	return stored.clone(), nil
}

// Len returns the number of stored users.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

var _ Store = (*MemoryStore)(nil)
