package storage

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// MemoryBackend keeps everything in maps. Nothing survives Close.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryBackend) CreateBucket(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.buckets[name]; !exists {
		m.buckets[name] = make(map[string][]byte)
	}

	return nil
}

func (m *MemoryBackend) bucket(name string) (map[string][]byte, error) {
	bkt, exists := m.buckets[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	return bkt, nil
}

func (m *MemoryBackend) Put(bucket, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bkt, err := m.bucket(bucket)
	if err != nil {
		return err
	}
	bkt[key] = slices.Clone(value)

	return nil
}

func (m *MemoryBackend) Get(bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bkt, err := m.bucket(bucket)
	if err != nil {
		return nil, err
	}

	value, exists := bkt[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrKeyNotFound, bucket, key)
	}

	return slices.Clone(value), nil
}

func (m *MemoryBackend) ForEach(bucket string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bkt, err := m.bucket(bucket)
	if err != nil {
		return err
	}

	for _, key := range slices.Sorted(maps.Keys(bkt)) {
		if err := fn(key, bkt[key]); err != nil {
			return err
		}
	}

	return nil
}

func (m *MemoryBackend) Close() error { return nil }
