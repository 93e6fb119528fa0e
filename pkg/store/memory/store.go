package memory

import (
	"context"
	"sync"

	"github.com/killallgit/cognilink/pkg/store"
)

type memoryStore struct {
	options store.Options
	values  map[string][]byte
	mu      sync.RWMutex
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memoryStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}

// NewStore returns a process-local store, used for tests and --ephemeral sessions
func NewStore(opts ...store.Option) store.Store {
	return &memoryStore{
		options: store.NewOptions(opts...),
		values:  make(map[string][]byte),
	}
}
