package core

import (
	"context"
	"fmt"
	"os"
	"sync"

	"ontosim/internal/infra/persistence/postgres"
	"ontosim/internal/infra/persistence/sqlite"
	"ontosim/pkg/domain"
)

// SnapshotDriver identifies a concrete snapshot persistence backend.
type SnapshotDriver string

const (
	SnapshotMemory   SnapshotDriver = "memory"   // process lifetime only
	SnapshotSQLite   SnapshotDriver = "sqlite"   // embedded sqlite file
	SnapshotPostgres SnapshotDriver = "postgres" // PostgreSQL server
)

// Snapshotter persists exported graph snapshots outside the process.
type Snapshotter interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	// Load returns false when nothing has been saved yet.
	Load(ctx context.Context) (domain.Snapshot, bool, error)
	Close() error
}

// MemorySnapshotter retains the last saved snapshot in memory.
type MemorySnapshotter struct {
	mu    sync.Mutex
	snap  domain.Snapshot
	saved bool
}

// NewMemorySnapshotter constructs an empty in-memory snapshotter.
func NewMemorySnapshotter() *MemorySnapshotter {
	return &MemorySnapshotter{}
}

// Save implements Snapshotter.
func (m *MemorySnapshotter) Save(_ context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.saved = true
	return nil
}

// Load implements Snapshotter.
func (m *MemorySnapshotter) Load(context.Context) (domain.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.saved, nil
}

// Close implements Snapshotter.
func (m *MemorySnapshotter) Close() error { return nil }

// OpenSnapshotter selects a backend using environment variables.
// Defaults to memory when unset.
//
//	ONTOSIM_SNAPSHOT_DRIVER: memory|sqlite|postgres (default memory)
//	ONTOSIM_SQLITE_PATH: path to sqlite file (default ./ontosim.db)
//	ONTOSIM_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenSnapshotter(ctx context.Context) (Snapshotter, error) {
	driver := os.Getenv("ONTOSIM_SNAPSHOT_DRIVER")
	if driver == "" {
		driver = string(SnapshotMemory)
	}
	switch SnapshotDriver(driver) {
	case SnapshotMemory:
		return NewMemorySnapshotter(), nil
	case SnapshotSQLite:
		return sqlite.Open(ctx, os.Getenv("ONTOSIM_SQLITE_PATH"))
	case SnapshotPostgres:
		return postgres.Open(ctx, os.Getenv("ONTOSIM_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown snapshot driver %s", driver)
	}
}

// SaveSnapshot exports the store and hands the snapshot to the snapshotter.
func (s *Store) SaveSnapshot(ctx context.Context, snapshotter Snapshotter) error {
	return snapshotter.Save(ctx, s.ExportState())
}

// RestoreSnapshot replaces the store's graph with the snapshotter's last
// saved snapshot. It reports false when there was nothing to restore.
func (s *Store) RestoreSnapshot(ctx context.Context, snapshotter Snapshotter) (bool, error) {
	snap, ok, err := snapshotter.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err := s.ImportState(snap); err != nil {
		return false, err
	}
	return true, nil
}
