package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryProvider is an in-process Provider with LRU eviction. The TTL given
// at construction applies to every entry; per-call TTLs are ignored.
type MemoryProvider struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, []byte]
}

// NewMemoryProvider creates a MemoryProvider holding at most size entries.
func NewMemoryProvider(size int, ttl time.Duration) *MemoryProvider {
	if size <= 0 {
		size = 128
	}
	return &MemoryProvider{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns a copy of the stored bytes or ErrCacheMiss.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := p.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

// SetNX stores a copy of value unless key is present.
func (p *MemoryProvider) SetNX(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lru.Contains(key) {
		return false, nil
	}
	p.lru.Add(key, append([]byte(nil), value...))
	return true, nil
}

// Del removes key.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.lru.Remove(key)
	return nil
}

// Close drops every entry.
func (p *MemoryProvider) Close() error {
	p.lru.Purge()
	return nil
}
