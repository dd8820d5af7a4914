package store

import (
	"context"
	"errors"

	"github.com/coocood/freecache"
)

var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend keeps everything in a fixed size in-process cache. Like
// browser local storage it has a quota: a single value larger than
// sizeMB/1024 is rejected, and the oldest entries get evicted when full.
type MemoryBackend struct {
	cache *freecache.Cache
}

func NewMemoryBackend(sizeMB int) *MemoryBackend {
	megabyte := 1024 * 1024
	return &MemoryBackend{
		cache: freecache.NewCache(sizeMB * megabyte),
	}
}

func (m *MemoryBackend) Read(_ context.Context, key string) (string, bool, error) {
	value, err := m.cache.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

func (m *MemoryBackend) Write(_ context.Context, key, value string) error {
	return m.cache.Set([]byte(key), []byte(value), 0)
}

func (m *MemoryBackend) Clear(context.Context) error {
	m.cache.Clear()
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
