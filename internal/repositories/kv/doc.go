// Package kv is the key-value storage substrate of coursestore.
//
// # Overview
//
// Every piece of durable state (accounts, sessions, the cart, the sales log)
// lives under a single string key as UTF-8 JSON. This package hides where
// those bytes go behind the Store interface.
//
// # Backends
//
//   - MemoryStore: process-local map, for tests and throwaway demos.
//   - FileStore: one JSON document on disk, replaced atomically on every write.
//   - SQLStore: a two-column table in SQLite (modernc.org/sqlite) or
//     PostgreSQL (pgx), created by goose migrations.
//   - RedisStore: keys under a prefix, CAS through WATCH/MULTI.
//   - S3Store: one object per key, CAS through conditional PUT on the ETag.
//
// # Concurrency
//
// Set and Delete are last-write-wins. CompareAndSwap is the primitive the
// record layer uses for optimistic concurrency: the caller passes the exact
// bytes it read, and the write is refused with common.ErrVersionConflict if
// anybody changed the key in between. MemoryStore, FileStore, SQLStore and
// RedisStore also implement Batcher for multi-key atomic commits.
//
// # Typical Usage
//
//	store, err := kv.Open(ctx, cfg, logger)
//	if err != nil { ... }
//	defer store.Close()
//
//	old, _ := store.Get(ctx, "cart")
//	err = store.CompareAndSwap(ctx, "cart", old, updated)
//	if errors.Is(err, common.ErrVersionConflict) {
//	    // re-read and retry
//	}
package kv
