package session

import (
	"context"
	"sync"
)

// Persisted key names. Both keys are written and removed together.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Record is the raw persisted state: an opaque token and a JSON user record.
// Either field may be empty when the storage holds partial or no state.
type Record struct {
	Token string
	User  []byte
}

// Storage persists the session record durably.
type Storage interface {
	// Load returns whatever is stored; missing keys are left empty.
	Load(ctx context.Context) (Record, error)
	// Save writes both keys atomically.
	Save(ctx context.Context, rec Record) error
	// Clear removes both keys atomically. Clearing empty storage is not an error.
	Clear(ctx context.Context) error
	Close() error
}

// MemoryStorage keeps the record in process memory
type MemoryStorage struct {
	mu   sync.Mutex
	keys map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{keys: make(map[string][]byte)}
}

// Load implements Storage
func (m *MemoryStorage) Load(ctx context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Record{
		Token: string(m.keys[TokenKey]),
		User:  append([]byte(nil), m.keys[UserKey]...),
	}, nil
}

// Save implements Storage
func (m *MemoryStorage) Save(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[TokenKey] = []byte(rec.Token)
	m.keys[UserKey] = append([]byte(nil), rec.User...)
	return nil
}

// Clear implements Storage
func (m *MemoryStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, TokenKey)
	delete(m.keys, UserKey)
	return nil
}

// Close implements Storage
func (m *MemoryStorage) Close() error {
	return nil
}

// Set writes a single raw key, bypassing the paired write. Used to seed tests
// with partial or corrupt state.
func (m *MemoryStorage) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = value
}

// Snapshot returns a copy of all stored keys
func (m *MemoryStorage) Snapshot() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.keys))
	for k, v := range m.keys {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
