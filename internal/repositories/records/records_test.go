package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	N     int    `json:"n"`
}

func (i item) RecordID() string { return i.ID }

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 1000)
}

func newCollection(t *testing.T) (*Collection[item], *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	return New[item](store, "items", WithBackOff(fastBackOff)), store
}

func TestCollection_ListEmpty(t *testing.T) {
	c, _ := newCollection(t)

	items, err := c.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCollection_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	c, store := newCollection(t)

	require.NoError(t, c.Insert(ctx, item{ID: "a", Email: "a@x.com"}, nil))
	require.NoError(t, c.Insert(ctx, item{ID: "b", Email: "b@x.com"}, nil))

	raw, err := store.Get(ctx, "items")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","email":"a@x.com","n":0},{"id":"b","email":"b@x.com","n":0}]`, string(raw))

	got, err := c.FindByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", got.Email)

	_, err = c.FindByID(ctx, "zzz")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err = c.Find(ctx, func(i item) bool { return i.Email == "a@x.com" })
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestCollection_InsertRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	c, _ := newCollection(t)
	require.NoError(t, c.Insert(ctx, item{ID: "a", Email: "a@x.com"}, nil))

	err := c.Insert(ctx, item{ID: "a"}, nil)
	assert.ErrorIs(t, err, common.ErrDuplicateKey)

	errTaken := errors.New("taken")
	err = c.Insert(ctx, item{ID: "b", Email: "a@x.com"}, func(existing []item) error {
		for _, e := range existing {
			if e.Email == "a@x.com" {
				return errTaken
			}
		}
		return nil
	})
	assert.ErrorIs(t, err, errTaken)

	items, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCollection_Update(t *testing.T) {
	ctx := context.Background()
	c, _ := newCollection(t)
	require.NoError(t, c.Insert(ctx, item{ID: "a"}, nil))

	got, err := c.Update(ctx, "a", func(i *item) error {
		i.N = 7
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.N)

	stored, err := c.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 7, stored.N)

	_, err = c.Update(ctx, "missing", func(*item) error { return nil })
	assert.ErrorIs(t, err, common.ErrorNotFound)

	boom := errors.New("boom")
	_, err = c.Update(ctx, "a", func(*item) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestCollection_Delete(t *testing.T) {
	ctx := context.Background()
	c, _ := newCollection(t)
	require.NoError(t, c.Insert(ctx, item{ID: "a"}, nil))
	require.NoError(t, c.Insert(ctx, item{ID: "b"}, nil))

	require.NoError(t, c.Delete(ctx, "a"))
	assert.ErrorIs(t, c.Delete(ctx, "a"), common.ErrorNotFound)

	items, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestCollection_DecodeError(t *testing.T) {
	ctx := context.Background()
	c, store := newCollection(t)
	require.NoError(t, store.Set(ctx, "items", []byte(`{not json`)))

	_, err := c.List(ctx)
	assert.ErrorContains(t, err, "failed to decode items")
}

// Concurrent writers through the collection never lose each other's records.
func TestCollection_ConcurrentInsertsAreNotLost(t *testing.T) {
	ctx := context.Background()
	c, _ := newCollection(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Insert(ctx, item{ID: fmt.Sprintf("id-%d", i)}, nil))
		}()
	}
	wg.Wait()

	items, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, writers)
}

// conflictingStore reports a conflict on every conditional write.
type conflictingStore struct {
	*kv.MemoryStore
	attempts int
}

func (s *conflictingStore) CompareAndSwap(context.Context, string, []byte, []byte) error {
	s.attempts++
	return common.ErrVersionConflict
}

func TestCollection_GivesUpAfterConflicts(t *testing.T) {
	store := &conflictingStore{MemoryStore: kv.NewMemoryStore()}
	c := New[item](store, "items", WithBackOff(func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}))

	err := c.Insert(context.Background(), item{ID: "a"}, nil)
	assert.ErrorIs(t, err, common.ErrVersionConflict)
	assert.Equal(t, 4, store.attempts)
}

func TestCollection_PermanentErrorsAreNotRetried(t *testing.T) {
	c, _ := newCollection(t)
	calls := 0
	err := c.Mutate(context.Background(), func(items []item) ([]item, error) {
		calls++
		return nil, common.ErrInvalidInput
	})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, 1, calls)
}

func TestCommit_AppliesAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	a := New[item](store, "a", WithBackOff(fastBackOff))
	b := New[item](store, "b", WithBackOff(fastBackOff))
	require.NoError(t, b.Insert(ctx, item{ID: "x"}, nil))

	err := Commit(ctx, store, []Planner{
		PlanFor(a, func(items []item) ([]item, error) { return append(items, item{ID: "1"}), nil }),
		PlanFor(b, func(items []item) ([]item, error) { return nil, common.ErrorNotFound }),
	}, WithBackOff(fastBackOff))
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := a.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "nothing written when a planner fails")

	require.NoError(t, Commit(ctx, store, []Planner{
		PlanFor(a, func(items []item) ([]item, error) { return append(items, item{ID: "1"}), nil }),
		PlanFor(b, func(items []item) ([]item, error) { return items[:0], nil }),
	}, WithBackOff(fastBackOff)))

	got, _ = a.List(ctx)
	assert.Len(t, got, 1)
	got, _ = b.List(ctx)
	assert.Empty(t, got)
}
