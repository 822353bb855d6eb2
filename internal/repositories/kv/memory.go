package kv

import (
	"bytes"
	"context"
	"sync"

	"github.com/dmitrijs2005/coursestore/internal/common"
)

type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = bytes.Clone(value)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, expected, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.swapLocked(Swap{Key: key, Expected: expected, Value: value})
}

func (s *MemoryStore) CompareAndSwapBatch(_ context.Context, swaps []Swap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sw := range swaps {
		if !s.matchesLocked(sw.Key, sw.Expected) {
			return common.ErrVersionConflict
		}
	}
	for _, sw := range swaps {
		s.writeLocked(sw.Key, sw.Value)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = bytes.Clone(v)
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.data)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) swapLocked(sw Swap) error {
	if !s.matchesLocked(sw.Key, sw.Expected) {
		return common.ErrVersionConflict
	}
	s.writeLocked(sw.Key, sw.Value)
	return nil
}

func (s *MemoryStore) matchesLocked(key string, expected []byte) bool {
	cur, ok := s.data[key]
	if expected == nil {
		return !ok
	}
	return ok && bytes.Equal(cur, expected)
}

func (s *MemoryStore) writeLocked(key string, value []byte) {
	if value == nil {
		delete(s.data, key)
		return
	}
	s.data[key] = bytes.Clone(value)
}
