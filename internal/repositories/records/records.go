// Package records implements a generic record collection stored as one JSON
// array under a single key of a kv.Store.
//
// Every operation reads and decodes the whole collection; every write
// re-encodes it and commits with kv.Store.CompareAndSwap against the exact
// bytes that were read. A concurrent writer therefore causes a version
// conflict instead of a lost update, and the write is retried with
// exponential backoff on a fresh read. Mutation callbacks may run more than
// once and must not have side effects outside the slice they are given.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
)

// Record is anything with a stable identifier.
type Record interface {
	RecordID() string
}

type options struct {
	newBackOff func() backoff.BackOff
	log        logging.Logger
}

type Option func(*options)

// WithBackOff overrides the retry policy used on version conflicts.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(o *options) { o.newBackOff = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// DefaultBackOff retries quickly and gives up after a few seconds of
// sustained contention.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

func buildOptions(opts []Option) options {
	o := options{newBackOff: DefaultBackOff, log: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type Collection[T Record] struct {
	store kv.Store
	key   string
	opts  options
}

func New[T Record](store kv.Store, key string, opts ...Option) *Collection[T] {
	return &Collection[T]{store: store, key: key, opts: buildOptions(opts)}
}

// Key returns the storage key holding the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

func (c *Collection[T]) load(ctx context.Context) ([]T, []byte, error) {
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, nil, err
	}

	var items []T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, nil, fmt.Errorf("failed to decode %s: %w", c.key, err)
		}
	}
	return items, raw, nil
}

func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	items, _, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) Find(ctx context.Context, pred func(T) bool) (T, error) {
	var zero T

	items, _, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		if pred(it) {
			return it, nil
		}
	}
	return zero, common.ErrorNotFound
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	return c.Find(ctx, func(it T) bool { return it.RecordID() == id })
}

// Insert appends rec. It fails with common.ErrDuplicateKey when the id is
// taken; check, when non-nil, sees the current records and may veto the
// insert with its own error.
func (c *Collection[T]) Insert(ctx context.Context, rec T, check func(existing []T) error) error {
	return c.Mutate(ctx, func(items []T) ([]T, error) {
		for _, it := range items {
			if it.RecordID() == rec.RecordID() {
				return nil, fmt.Errorf("%s[%s]: %w", c.key, rec.RecordID(), common.ErrDuplicateKey)
			}
		}
		if check != nil {
			if err := check(items); err != nil {
				return nil, err
			}
		}
		return append(items, rec), nil
	})
}

// Update applies fn to the record with the given id and returns the result.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T) error) (T, error) {
	var updated T
	err := c.Mutate(ctx, func(items []T) ([]T, error) {
		for i := range items {
			if items[i].RecordID() != id {
				continue
			}
			if err := fn(&items[i]); err != nil {
				return nil, err
			}
			updated = items[i]
			return items, nil
		}
		return nil, common.ErrorNotFound
	})
	return updated, err
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.Mutate(ctx, func(items []T) ([]T, error) {
		for i := range items {
			if items[i].RecordID() == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, common.ErrorNotFound
	})
}

// Mutate runs a whole-collection read-modify-write. fn receives a freshly
// decoded slice it may modify in place.
func (c *Collection[T]) Mutate(ctx context.Context, fn func([]T) ([]T, error)) error {
	return retry(ctx, c.opts, c.key, func() error {
		sw, err := c.Plan(ctx, fn)
		if err != nil {
			return err
		}
		if sw.Value != nil && bytes.Equal(sw.Value, sw.Expected) {
			return nil
		}
		return c.store.CompareAndSwap(ctx, sw.Key, sw.Expected, sw.Value)
	})
}

// Plan reads the collection, applies fn and returns the conditional write
// that would commit the result, without performing it. Plans from several
// collections can be committed together with Commit.
func (c *Collection[T]) Plan(ctx context.Context, fn func([]T) ([]T, error)) (kv.Swap, error) {
	items, raw, err := c.load(ctx)
	if err != nil {
		return kv.Swap{}, err
	}

	items, err = fn(items)
	if err != nil {
		return kv.Swap{}, err
	}
	if items == nil {
		items = []T{}
	}

	value, err := json.Marshal(items)
	if err != nil {
		return kv.Swap{}, fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	return kv.Swap{Key: c.key, Expected: raw, Value: value}, nil
}

// Planner produces one conditional write against the current state.
type Planner func(ctx context.Context) (kv.Swap, error)

// PlanFor adapts a collection mutation to a Planner.
func PlanFor[T Record](c *Collection[T], fn func([]T) ([]T, error)) Planner {
	return func(ctx context.Context) (kv.Swap, error) {
		return c.Plan(ctx, fn)
	}
}

// Commit evaluates every planner and applies the resulting swaps with
// kv.ApplyBatch, retrying from scratch on version conflicts.
func Commit(ctx context.Context, store kv.Store, planners []Planner, opts ...Option) error {
	o := buildOptions(opts)
	return retry(ctx, o, "batch", func() error {
		swaps := make([]kv.Swap, 0, len(planners))
		for _, p := range planners {
			sw, err := p(ctx)
			if err != nil {
				return err
			}
			swaps = append(swaps, sw)
		}
		return kv.ApplyBatch(ctx, store, swaps)
	})
}

func retry(ctx context.Context, o options, key string, op func() error) error {
	attempt := func() error {
		err := op()
		if err == nil || errors.Is(err, common.ErrVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		o.log.Warn(ctx, "write conflict, retrying", "key", key, "wait", wait)
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(o.newBackOff(), ctx), notify)
	if errors.Is(err, common.ErrVersionConflict) {
		return fmt.Errorf("%s: gave up after repeated conflicts: %w", key, err)
	}
	return err
}
