package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

const fileLockRetry = 10 * time.Millisecond

// FileStore keeps every key in one JSON object on disk. The file is re-read
// on each call and replaced with an atomic rename on each write.
//
// Writes hold an advisory lock on <path>.lock from load to rename, so
// several processes (or several FileStores) may share one file.
type FileStore struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	v, ok := data[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	return s.update(ctx, func(data map[string]string) error {
		data[key] = string(value)
		return nil
	})
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(data map[string]string) error {
		delete(data, key)
		return nil
	})
}

func (s *FileStore) CompareAndSwap(ctx context.Context, key string, expected, value []byte) error {
	return s.CompareAndSwapBatch(ctx, []Swap{{Key: key, Expected: expected, Value: value}})
}

func (s *FileStore) CompareAndSwapBatch(ctx context.Context, swaps []Swap) error {
	return s.update(ctx, func(data map[string]string) error {
		for _, sw := range swaps {
			cur, ok := data[sw.Key]
			if sw.Expected == nil {
				if ok {
					return common.ErrVersionConflict
				}
				continue
			}
			if !ok || cur != string(sw.Expected) {
				return common.ErrVersionConflict
			}
		}
		for _, sw := range swaps {
			if sw.Value == nil {
				delete(data, sw.Key)
				continue
			}
			data[sw.Key] = string(sw.Value)
		}
		return nil
	})
}

func (s *FileStore) List(_ context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(data))
	for k, v := range data {
		out[k] = []byte(v)
	}
	return out, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	return s.update(ctx, func(data map[string]string) error {
		clear(data)
		return nil
	})
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file %s: %w", s.path, err)
	}

	data := map[string]string{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode store file %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileStore) update(ctx context.Context, fn func(map[string]string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, fileLockRetry)
	if err != nil {
		return fmt.Errorf("failed to lock store file %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock store file %s", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to write store file %s: %w", s.path, err)
	}
	return nil
}
