// Package postgres persists graph snapshots to a PostgreSQL state table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"ontosim/internal/infra/persistence/buckets"
	"ontosim/pkg/domain"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/ontosim?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Snapshotter stores each snapshot section as a JSONB row of the state table.
type Snapshotter struct {
	db *sql.DB
	mu sync.Mutex
}

// Open connects using dsn (falls back to defaultDSN) and ensures the state
// table exists.
func Open(ctx context.Context, dsn string) (*Snapshotter, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Snapshotter{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Snapshotter) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Snapshotter) Close() error { return s.db.Close() }

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
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
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("scan state: %w", err)
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

// Save upserts every bucket inside one transaction.
func (s *Snapshotter) Save(ctx context.Context, snap domain.Snapshot) error {
	payloads, err := buckets.Encode(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets.Names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, payloads[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
