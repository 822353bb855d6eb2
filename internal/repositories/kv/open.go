package kv

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/coursestore/internal/config"
	"github.com/dmitrijs2005/coursestore/internal/filex"
	"github.com/dmitrijs2005/coursestore/internal/logging"
)

// Open builds the Store selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (Store, error) {
	backend := strings.ToLower(cfg.StorageBackend)
	log = log.With("module", "kv", "backend", backend)

	var (
		s   Store
		err error
	)
	switch backend {
	case "memory":
		s = NewMemoryStore()
	case "file":
		if _, err = filex.EnsureParentDir(cfg.StorageDSN); err == nil {
			s = NewFileStore(cfg.StorageDSN)
		}
	case "sqlite", "":
		if _, err = filex.EnsureParentDir(filex.SQLitePath(cfg.StorageDSN)); err == nil {
			s, err = OpenSQL(ctx, DialectSQLite, cfg.StorageDSN)
		}
	case "postgres":
		s, err = OpenSQL(ctx, DialectPostgres, cfg.StorageDSN)
	case "redis":
		s, err = OpenRedis(ctx, cfg.StorageDSN, cfg.KeyPrefix)
	case "s3":
		s, err = OpenS3(ctx, S3Options{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.KeyPrefix,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		log.Error(ctx, "failed to open store", "error", err)
		return nil, err
	}

	log.Info(ctx, "store opened")
	return s, nil
}
