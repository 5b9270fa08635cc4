package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	value, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Scan(_ context.Context, prefix string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	result := make(map[string][]byte)
	for key, value := range m.data {
		if strings.HasPrefix(key, prefix) {
			cp := make([]byte, len(value))
			copy(cp, value)
			result[key] = cp
		}
	}
	return result, nil
}

// Update stages fn's writes in an overlay and applies them only when fn
// returns nil, so a failed transaction leaves the store untouched.
func (m *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()

	tx := &memoryTx{store: m, writes: make(map[string][]byte), deletes: make(map[string]bool)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for key := range tx.deletes {
		delete(m.data, key)
	}
	for key, value := range tx.writes {
		m.data[key] = value
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Keys returns all stored keys sorted, for test assertions
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// memoryTx overlays staged writes on the backing store
type memoryTx struct {
	store   *MemoryStore
	writes  map[string][]byte
	deletes map[string]bool
}

func (t *memoryTx) Get(ctx context.Context, key string) ([]byte, error) {
	if t.deletes[key] {
		return nil, ErrNotFound
	}
	if value, ok := t.writes[key]; ok {
		cp := make([]byte, len(value))
		copy(cp, value)
		return cp, nil
	}
	return t.store.Get(ctx, key)
}

func (t *memoryTx) Put(_ context.Context, key string, value []byte) error {
	delete(t.deletes, key)
	cp := make([]byte, len(value))
	copy(cp, value)
	t.writes[key] = cp
	return nil
}

func (t *memoryTx) Delete(_ context.Context, key string) error {
	delete(t.writes, key)
	t.deletes[key] = true
	return nil
}
