// Package cache is the default in-process TTL cache behind domain.Cache.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/observability"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory stores JSON-encoded values with absolute expiry. Expired entries
// are never returned and are evicted on the lookup that finds them.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time // injectable for tests
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(e.data, dst)
}

func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // nothing to keep
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = entry{data: b, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	observability.ObserveCache("memory", "set")
	return nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	observability.ObserveCache("memory", "del")
	return nil
}
