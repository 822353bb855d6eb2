package kv

import (
	"context"
)

// Store maps string keys to opaque byte values.
//
// Get returns (nil, nil) when the key is absent. Set is a blind upsert.
// CompareAndSwap is the only conditional write: it stores value if and only
// if the current bytes equal expected, where a nil expected means "absent"
// and a nil value means "delete". A mismatch yields common.ErrVersionConflict.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	CompareAndSwap(ctx context.Context, key string, expected, value []byte) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
	Close() error
}

// Swap is one conditional write; see Store.CompareAndSwap.
type Swap struct {
	Key      string
	Expected []byte
	Value    []byte
}

// Batcher is implemented by backends that can apply several swaps as one
// atomic unit. Either every swap succeeds or nothing is written and
// common.ErrVersionConflict is returned.
type Batcher interface {
	CompareAndSwapBatch(ctx context.Context, swaps []Swap) error
}

// ApplyBatch commits swaps atomically when s is a Batcher, and one by one
// otherwise. In the fallback a conflict can leave earlier swaps applied, so
// callers relying on it must make every step idempotent.
func ApplyBatch(ctx context.Context, s Store, swaps []Swap) error {
	if b, ok := s.(Batcher); ok {
		return b.CompareAndSwapBatch(ctx, swaps)
	}
	for _, sw := range swaps {
		if err := s.CompareAndSwap(ctx, sw.Key, sw.Expected, sw.Value); err != nil {
			return err
		}
	}
	return nil
}
