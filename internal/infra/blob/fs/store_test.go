package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"ontosim/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	key := "media/Asset/thumbnail/item-1"
	info, err := s.Put(ctx, key, bytes.NewReader([]byte("image")), core.PutOptions{
		ContentType: "image/png",
		Metadata:    map[string]string{"path": "thumb.png"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.ETag == "" || info.ContentType != "image/png" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "media", "Asset", "thumbnail", "item-1.meta")); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
	if _, err := s.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "image" || got.Metadata["path"] != "thumb.png" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}
	head, err := s.Head(ctx, key)
	if err != nil || head.ETag != info.ETag {
		t.Fatalf("head mismatch %+v err=%v", head, err)
	}

	if _, err := s.Put(ctx, "attachments/a", bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
		t.Fatalf("put attachment: %v", err)
	}
	media, err := s.List(ctx, "media/")
	if err != nil || len(media) != 1 || media[0].Key != key {
		t.Fatalf("unexpected media listing %v err=%v", media, err)
	}

	if ok, err := s.Delete(ctx, key); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Delete(ctx, key); ok {
		t.Fatalf("expected second delete to report missing")
	}
	if _, err := s.Head(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../evil", "/abs", "x.meta"} {
		if _, err := s.Put(context.Background(), key, bytes.NewReader(nil), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestHeadReportsCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "bad.meta"), []byte("{"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Head(context.Background(), "bad"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := s.List(context.Background(), ""); err == nil {
		t.Fatal("expected list to surface decode error")
	}
}
