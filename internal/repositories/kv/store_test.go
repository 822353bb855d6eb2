package kv

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a constructor per Store implementation that runs
// without external services.
func backends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "store.json"))
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQL(context.Background(), DialectSQLite, ":memory:")
			require.NoError(t, err)
			return s
		},
		"redis": func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			return NewRedisStore(rdb, "test/")
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		v, err := s.Get(ctx, "users")
		require.NoError(t, err)
		assert.Nil(t, v, "absent key yields nil")

		require.NoError(t, s.Set(ctx, "users", []byte(`[]`)))
		require.NoError(t, s.Set(ctx, "users", []byte(`[{"id":"u1"}]`)))

		v, err = s.Get(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"u1"}]`, string(v))

		require.NoError(t, s.Delete(ctx, "users"))
		require.NoError(t, s.Delete(ctx, "users"), "delete of absent key is not an error")

		v, err = s.Get(ctx, "users")
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestStore_CompareAndSwap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		// create only when absent
		require.NoError(t, s.CompareAndSwap(ctx, "cart", nil, []byte(`[1]`)))
		assert.ErrorIs(t, s.CompareAndSwap(ctx, "cart", nil, []byte(`[2]`)), common.ErrVersionConflict)

		// update only from the exact previous bytes
		assert.ErrorIs(t, s.CompareAndSwap(ctx, "cart", []byte(`[9]`), []byte(`[1,2]`)), common.ErrVersionConflict)
		require.NoError(t, s.CompareAndSwap(ctx, "cart", []byte(`[1]`), []byte(`[1,2]`)))

		v, err := s.Get(ctx, "cart")
		require.NoError(t, err)
		assert.Equal(t, `[1,2]`, string(v))

		// conditional delete
		assert.ErrorIs(t, s.CompareAndSwap(ctx, "cart", []byte(`[1]`), nil), common.ErrVersionConflict)
		require.NoError(t, s.CompareAndSwap(ctx, "cart", []byte(`[1,2]`), nil))
		v, err = s.Get(ctx, "cart")
		require.NoError(t, err)
		assert.Nil(t, v)

		// expecting a value on an absent key
		assert.ErrorIs(t, s.CompareAndSwap(ctx, "cart", []byte(`[]`), []byte(`[3]`)), common.ErrVersionConflict)
	})
}

func TestStore_CompareAndSwapBatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.Implements(t, (*Batcher)(nil), s)

		require.NoError(t, s.Set(ctx, "sales", []byte(`[]`)))
		require.NoError(t, s.Set(ctx, "cart", []byte(`[1]`)))

		// second swap conflicts: nothing is written
		err := ApplyBatch(ctx, s, []Swap{
			{Key: "sales", Expected: []byte(`[]`), Value: []byte(`["sale_1"]`)},
			{Key: "cart", Expected: []byte(`[2]`), Value: []byte(`[]`)},
		})
		assert.ErrorIs(t, err, common.ErrVersionConflict)
		v, _ := s.Get(ctx, "sales")
		assert.Equal(t, `[]`, string(v))

		require.NoError(t, ApplyBatch(ctx, s, []Swap{
			{Key: "sales", Expected: []byte(`[]`), Value: []byte(`["sale_1"]`)},
			{Key: "cart", Expected: []byte(`[1]`), Value: nil},
			{Key: "pendingCheckout", Expected: nil, Value: nil},
		}))
		v, _ = s.Get(ctx, "sales")
		assert.Equal(t, `["sale_1"]`, string(v))
		v, _ = s.Get(ctx, "cart")
		assert.Nil(t, v)
	})
}

func TestStore_ListAndClear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		require.NoError(t, s.Set(ctx, "users", []byte(`[]`)))
		require.NoError(t, s.Set(ctx, "currentSession", []byte(`"s1"`)))

		all, err = s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{
			"users":          []byte(`[]`),
			"currentSession": []byte(`"s1"`),
		}, all)

		require.NoError(t, s.Clear(ctx))
		all, err = s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

// Concurrent increments through CompareAndSwap never lose an update.
func TestStore_CompareAndSwap_NoLostUpdates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "counter", []byte{0}))

		const workers, perWorker = 4, 10
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for done := 0; done < perWorker; {
					cur, err := s.Get(ctx, "counter")
					if err != nil {
						t.Error(err)
						return
					}
					err = s.CompareAndSwap(ctx, "counter", cur, []byte{cur[0] + 1})
					if err == nil {
						done++
					} else if !assert.ErrorIs(t, err, common.ErrVersionConflict) {
						return
					}
				}
			}()
		}
		wg.Wait()

		v, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, []byte{workers * perWorker}, v)
	})
}

// Two FileStores over one path stand in for two processes sharing a file.
func TestFileStore_CompareAndSwap_NoLostUpdatesAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	stores := []*FileStore{NewFileStore(path), NewFileStore(path)}
	require.NoError(t, stores[0].Set(ctx, "counter", []byte{0}))

	const perWorker = 20
	var wg sync.WaitGroup
	for _, s := range stores {
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for done := 0; done < perWorker; {
					cur, err := s.Get(ctx, "counter")
					if err != nil {
						t.Error(err)
						return
					}
					err = s.CompareAndSwap(ctx, "counter", cur, []byte{cur[0] + 1})
					if err == nil {
						done++
					} else if !assert.ErrorIs(t, err, common.ErrVersionConflict) {
						return
					}
				}
			}()
		}
	}
	wg.Wait()

	for _, s := range stores {
		v, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, []byte{4 * perWorker}, v)
	}
}

func TestFileStore_LockHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	held := flock.New(path + ".lock")
	require.NoError(t, held.Lock())
	t.Cleanup(func() { _ = held.Unlock() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewFileStore(path).Set(ctx, "k", []byte("v"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
