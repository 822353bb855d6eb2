package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/dbx"
	"github.com/dmitrijs2005/coursestore/internal/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type queries struct {
	get           string
	upsert        string
	del           string
	clear         string
	list          string
	insertAbsent  string
	updateIfEqual string
	deleteIfEqual string
}

var dialectQueries = map[Dialect]queries{
	DialectSQLite: {
		get:           `SELECT value FROM kv WHERE key = ?`,
		upsert:        `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		del:           `DELETE FROM kv WHERE key = ?`,
		clear:         `DELETE FROM kv`,
		list:          `SELECT key, value FROM kv`,
		insertAbsent:  `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
		updateIfEqual: `UPDATE kv SET value = ? WHERE key = ? AND value = ?`,
		deleteIfEqual: `DELETE FROM kv WHERE key = ? AND value = ?`,
	},
	DialectPostgres: {
		get:           `SELECT value FROM kv WHERE key = $1`,
		upsert:        `INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = now()`,
		del:           `DELETE FROM kv WHERE key = $1`,
		clear:         `DELETE FROM kv`,
		list:          `SELECT key, value FROM kv`,
		insertAbsent:  `INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		updateIfEqual: `UPDATE kv SET value = $1, updated_at = now() WHERE key = $2 AND value = $3`,
		deleteIfEqual: `DELETE FROM kv WHERE key = $1 AND value = $2`,
	},
}

// SQLStore keeps keys in the kv table of a SQLite or PostgreSQL database.
type SQLStore struct {
	db *sql.DB
	q  queries
}

// NewSQLStore wraps an open database. The kv table must already exist;
// OpenSQL creates it.
func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	q, ok := dialectQueries[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	return &SQLStore{db: db, q: q}, nil
}

var (
	gooseMu        sync.Mutex
	gooseUpContext = goose.UpContext
)

// RunMigrations applies the embedded schema for dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var (
		fsys        fs.FS
		gooseDriver string
	)
	switch dialect {
	case DialectSQLite:
		fsys, gooseDriver = migrations.SQLite, "sqlite3"
	case DialectPostgres:
		fsys, gooseDriver = migrations.Postgres, "postgres"
	default:
		return fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	// goose keeps its base FS and dialect in package globals.
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDriver); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, string(dialect)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// OpenSQL opens the database, applies migrations and returns the store.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	driver := "sqlite"
	if dialect == DialectPostgres {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection keeps ":memory:" databases shared and
		// serializes writers within the process.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	}

	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewSQLStore(db, dialect)
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, s.db, key)
}

func (s *SQLStore) get(ctx context.Context, db dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, s.q.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.q.upsert, key, value); err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q.del, key); err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLStore) CompareAndSwap(ctx context.Context, key string, expected, value []byte) error {
	return s.swap(ctx, s.db, Swap{Key: key, Expected: expected, Value: value})
}

// CompareAndSwapBatch runs every swap inside one transaction.
func (s *SQLStore) CompareAndSwapBatch(ctx context.Context, swaps []Swap) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, sw := range swaps {
			if err := s.swap(ctx, tx, sw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) swap(ctx context.Context, db dbx.DBTX, sw Swap) error {
	var (
		res sql.Result
		err error
	)
	switch {
	case sw.Expected == nil && sw.Value == nil:
		// "absent stays absent"
		cur, err := s.get(ctx, db, sw.Key)
		if err != nil {
			return err
		}
		if cur != nil {
			return common.ErrVersionConflict
		}
		return nil
	case sw.Expected == nil:
		res, err = db.ExecContext(ctx, s.q.insertAbsent, sw.Key, sw.Value)
	case sw.Value == nil:
		res, err = db.ExecContext(ctx, s.q.deleteIfEqual, sw.Key, sw.Expected)
	default:
		res, err = db.ExecContext(ctx, s.q.updateIfEqual, sw.Value, sw.Key, sw.Expected)
	}
	if err != nil {
		return fmt.Errorf("failed to swap kv[%s]: %w", sw.Key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to swap kv[%s]: %w", sw.Key, err)
	}
	if n != 1 {
		return common.ErrVersionConflict
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, s.q.list)
	if err != nil {
		return nil, fmt.Errorf("failed to list kv: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv rows: %w", err)
	}

	return result, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.q.clear); err != nil {
		return fmt.Errorf("failed to clear kv: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
