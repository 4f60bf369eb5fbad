package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"ontosim/internal/infra/persistence/postgres/testutil"
	"ontosim/pkg/domain"
)

func openStub(t *testing.T) (*Snapshotter, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	snap, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return snap, conn
}

func TestOpenEnsuresStateTable(t *testing.T) {
	snap, conn := openStub(t)
	if snap.DB() == nil {
		t.Fatalf("expected db handle")
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.Execs)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	snap, conn := openStub(t)
	if _, ok, err := snap.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty load, got ok=%v err=%v", ok, err)
	}
	want := domain.Snapshot{Objects: []domain.Object{
		{ObjectType: "Employee", PrimaryKey: "e-1", Properties: map[string]any{"name": "Ada"}},
	}}
	if err := snap.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := snap.Save(ctx, want); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if rows := len(conn.Tables["state"]); rows != 4 {
		t.Fatalf("expected upsert to keep one row per bucket, got %d", rows)
	}
	got, ok, err := snap.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got.Objects) != 1 || got.Objects[0].Properties["name"] != "Ada" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestOpenErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return nil, fmt.Errorf("open fail")
	})
	defer restore()
	if _, err := Open(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "open fail") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestOpenPingError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := Open(context.Background(), "ignored"); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestSaveErrorPaths(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		setup func(*testutil.StubConn)
		want  string
	}{
		{name: "begin", setup: func(c *testutil.StubConn) { c.FailBegin = true }, want: "begin tx"},
		{name: "upsert", setup: func(c *testutil.StubConn) { c.FailTables = map[string]bool{"state": true} }, want: "upsert objects"},
		{name: "commit", setup: func(c *testutil.StubConn) { c.FailCommit = true }, want: "commit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, conn := openStub(t)
			tc.setup(conn)
			if err := snap.Save(ctx, domain.Snapshot{}); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %s error, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadErrorPaths(t *testing.T) {
	ctx := context.Background()
	t.Run("query", func(t *testing.T) {
		snap, conn := openStub(t)
		conn.FailTables = map[string]bool{"state": true}
		if _, _, err := snap.Load(ctx); err == nil || !strings.Contains(err.Error(), "select state") {
			t.Fatalf("expected select error, got %v", err)
		}
	})
	t.Run("rows", func(t *testing.T) {
		snap, conn := openStub(t)
		conn.RowsErr = fmt.Errorf("row err")
		if _, _, err := snap.Load(ctx); err == nil || !strings.Contains(err.Error(), "row err") {
			t.Fatalf("expected rows error, got %v", err)
		}
	})
	t.Run("decode", func(t *testing.T) {
		snap, conn := openStub(t)
		conn.Tables["state"] = []map[string]any{{"bucket": "links", "payload": []byte("{")}}
		if _, _, err := snap.Load(ctx); err == nil || !strings.Contains(err.Error(), "decode links") {
			t.Fatalf("expected decode error, got %v", err)
		}
	})
}

func TestOverrideSQLOpenRestores(t *testing.T) {
	called := false
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		called = true
		return nil, fmt.Errorf("stub")
	})
	_, _ = Open(context.Background(), "")
	restore()
	if !called {
		t.Fatalf("expected override to be used")
	}
}
