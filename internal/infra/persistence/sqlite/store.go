// Package sqlite persists graph snapshots to an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"ontosim/internal/infra/persistence/buckets"
	"ontosim/pkg/domain"
)

const defaultPath = "ontosim.db"

// Snapshotter stores each snapshot section as a JSON row of the state table.
type Snapshotter struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open creates the database file and state table when missing.
func Open(ctx context.Context, path string) (*Snapshotter, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Snapshotter{db: db, path: path}, nil
}

// Save replaces every bucket in a single transaction.
func (s *Snapshotter) Save(ctx context.Context, snap domain.Snapshot) (retErr error) {
	payloads, err := buckets.Encode(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets.Names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, payloads[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// Load reads the stored buckets. It reports false for an empty table.
func (s *Snapshotter) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := make(map[string][]byte)
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return domain.Snapshot{}, false, nil
	}
	snap, err := buckets.Decode(payloads)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Close releases the database handle.
func (s *Snapshotter) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Snapshotter) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Snapshotter) Path() string { return s.path }
