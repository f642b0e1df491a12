package store

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// MemoryCache 是内存实现的 Cache，用于测试/开发/原型。
// 支持 TTL 和 glob 模式删除，进程重启后数据丢失。
type MemoryCache struct {
	mu    sync.RWMutex
	data  map[string]*entry
	clean *time.Ticker
	done  chan struct{}
}

type entry struct {
	value  []byte
	expire *time.Time
}

func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		data:  make(map[string]*entry),
		clean: time.NewTicker(10 * time.Second),
		done:  make(chan struct{}),
	}
	go mc.cleanup()
	return mc
}

func (m *MemoryCache) Name() string { return "memory" }

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok {
		return nil, core.ErrCacheMiss
	}
	if e.expire != nil && time.Now().After(*e.expire) {
		return nil, core.ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{value: value}
	if len(ttl) > 0 && ttl[0] > 0 {
		expire := time.Now().Add(time.Duration(ttl[0]) * time.Second)
		e.expire = &expire
	}
	m.data[key] = e
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// DeletePattern 按 glob 模式删除（path.Match 语义，如 "rec:user:42:*"）。
func (m *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.data {
		if ok, err := path.Match(pattern, k); err == nil && ok {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *MemoryCache) Close() error {
	m.clean.Stop()
	close(m.done)
	return nil
}

func (m *MemoryCache) cleanup() {
	for {
		select {
		case <-m.done:
			return
		case <-m.clean.C:
			m.mu.Lock()
			now := time.Now()
			for k, e := range m.data {
				if e.expire != nil && now.After(*e.expire) {
					delete(m.data, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

var _ core.Cache = (*MemoryCache)(nil)
