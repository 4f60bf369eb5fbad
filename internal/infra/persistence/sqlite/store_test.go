package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"ontosim/pkg/domain"
)

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Objects: []domain.Object{
			{ObjectType: "Employee", PrimaryKey: "e-1", Properties: map[string]any{"name": "Ada"}},
		},
	}
}

func TestSnapshotterPersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	snap, err := Open(ctx, path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, ok, err := snap.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty load, got ok=%v err=%v", ok, err)
	}
	if err := snap.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := snap.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	got, ok, err := reopened.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got.Objects) != 1 || got.Objects[0].PrimaryKey != "e-1" {
		t.Fatalf("unexpected objects: %+v", got.Objects)
	}
	if reopened.Path() != path {
		t.Fatalf("expected path %s, got %s", path, reopened.Path())
	}
}

func TestSnapshotterSaveOverwritesBuckets(t *testing.T) {
	ctx := context.Background()
	snap, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = snap.Close() })
	if err := snap.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := snap.Save(ctx, domain.Snapshot{}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	var rows int
	if err := snap.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 4 {
		t.Fatalf("expected one row per bucket, got %d", rows)
	}
	got, ok, err := snap.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got.Objects) != 0 {
		t.Fatalf("expected overwritten objects bucket, got %+v", got.Objects)
	}
}

func TestSnapshotterLoadRejectsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	snap, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = snap.Close() })
	if _, err := snap.DB().Exec(`INSERT INTO state(bucket,payload) VALUES('objects', ?)`, []byte("{")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := snap.Load(ctx); err == nil {
		t.Fatal("expected decode error")
	}
}
