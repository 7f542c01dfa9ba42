package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache implements Cache with process-local maps. It exists for
// development and tests; all operations are serialized by a single mutex.
type MemoryCache struct {
	mu     sync.Mutex
	values map[string]memoryEntry
	lists  map[string][]string
	closed bool
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		values: make(map[string]memoryEntry),
		lists:  make(map[string][]string),
	}
}

func (m *MemoryCache) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("cache is closed")
	}
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.values[key]
	if !ok || entry.expired(time.Now()) {
		delete(m.values, key)
		return "", nil
	}
	return entry.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: fmt.Sprint(value)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.values[key] = entry
	return nil
}

func (m *MemoryCache) GetDel(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.values[key]
	delete(m.values, key)
	if !ok || entry.expired(time.Now()) {
		return "", nil
	}
	return entry.value, nil
}

func (m *MemoryCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		delete(m.lists, key)
	}
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var count int64
	for _, key := range keys {
		if entry, ok := m.values[key]; ok && !entry.expired(now) {
			count++
			continue
		}
		if list, ok := m.lists[key]; ok && len(list) > 0 {
			count++
		}
	}
	return count, nil
}

func (m *MemoryCache) Incr(ctx context.Context, key string) (int64, error) {
	return m.incrBy(key, 1)
}

func (m *MemoryCache) Decr(ctx context.Context, key string) (int64, error) {
	return m.incrBy(key, -1)
}

func (m *MemoryCache) incrBy(key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.values[key]
	var current int64
	if entry.value != "" && !entry.expired(time.Now()) {
		parsed, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value is not an integer")
		}
		current = parsed
	}
	current += delta
	m.values[key] = memoryEntry{value: strconv.FormatInt(current, 10), expiresAt: entry.expiresAt}
	return current, nil
}

func (m *MemoryCache) LPush(ctx context.Context, key string, values ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	for _, value := range values {
		list = append([]string{fmt.Sprint(value)}, list...)
	}
	m.lists[key] = list
	return nil
}

func (m *MemoryCache) RPop(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	if len(list) == 0 {
		return "", nil
	}
	value := list[len(list)-1]
	m.lists[key] = list[:len(list)-1]
	return value, nil
}

func (m *MemoryCache) LLen(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[key])), nil
}
