package cache

import (
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	value      []byte
	expiration time.Time // zero means no expiry
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// MemoryStorage keeps entries in process memory. Expired entries are dropped
// lazily on access.
type MemoryStorage struct {
	prefix string

	mu     sync.RWMutex
	items  map[string]memoryItem
	closed bool
	now    func() time.Time
}

// NewMemoryStorage creates an empty store; prefix namespaces every key.
func NewMemoryStorage(prefix string) *MemoryStorage {
	return &MemoryStorage{
		prefix: prefix,
		items:  make(map[string]memoryItem),
		now:    time.Now,
	}
}

// Get returns nil without error when key is missing or expired.
func (m *MemoryStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrCacheClosed
	}
	item, ok := m.items[m.prefix+key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if item.expired(m.now()) {
		m.mu.Lock()
		delete(m.items, m.prefix+key)
		m.mu.Unlock()
		return nil, nil
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores val; exp 0 keeps it until deleted.
func (m *MemoryStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	item := memoryItem{value: append([]byte(nil), val...)}
	if exp > 0 {
		item.expiration = m.now().Add(exp)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrCacheClosed
	}
	m.items[m.prefix+key] = item
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, m.prefix+key)
	return nil
}

// Reset removes every key under the prefix.
func (m *MemoryStorage) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, m.prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.items = make(map[string]memoryItem)
	return nil
}
