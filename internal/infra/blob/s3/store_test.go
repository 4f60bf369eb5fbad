package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"ontosim/internal/blob/core"
)

func TestMockStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 {
		t.Fatalf("expected DriverS3, got %s", store.Driver())
	}
	info, err := store.Put(ctx, "attachments/ri.a", bytes.NewReader([]byte("hello")), core.PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"filename": "notes.txt"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "attachments/ri.a" || info.ContentType != "text/plain" || info.Size != 5 {
		t.Fatalf("unexpected info %#v", info)
	}
	if info.Metadata["filename"] != "notes.txt" {
		t.Fatalf("expected metadata round trip, got %v", info.Metadata)
	}
	if _, err := store.Put(ctx, "attachments/ri.a", bytes.NewReader([]byte("again")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	_, rc, err := store.Get(ctx, "attachments/ri.a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "hello" {
		t.Fatalf("get mismatch: %q", data)
	}

	if _, err := store.Put(ctx, "media/Asset/thumbnail/1", bytes.NewReader([]byte("img")), core.PutOptions{}); err != nil {
		t.Fatalf("put media: %v", err)
	}
	list, err := store.List(ctx, "media/")
	if err != nil || len(list) != 1 || list[0].Size != 3 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if ok, err := store.Delete(ctx, "attachments/ri.a"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "attachments/ri.a"); err != nil || ok {
		t.Fatalf("expected missing delete to report false: %v %v", ok, err)
	}
}

func TestMissingKeysMapToErrNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get ErrNotFound, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	s, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "https://mock.s3.local", PathStyle: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.bucket != "bkt" {
		t.Fatalf("unexpected bucket %s", s.bucket)
	}
}

func TestOpenFromEnv(t *testing.T) {
	t.Setenv("ONTOSIM_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	t.Setenv("ONTOSIM_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("ONTOSIM_BLOB_S3_REGION", "eu-west-1")
	if _, err := OpenFromEnv(context.Background()); err != nil {
		t.Fatalf("OpenFromEnv: %v", err)
	}
}

func TestDecodeChunked(t *testing.T) {
	got, err := decodeChunked([]byte("5;chunk-signature=abc\r\nhello\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("expected hello, got %q err=%v", got, err)
	}
	if _, err := decodeChunked([]byte("zz\r\nhello\r\n")); err == nil {
		t.Fatalf("expected size parse error")
	}
	if _, err := decodeChunked([]byte("9\r\nhello")); err == nil {
		t.Fatalf("expected short body error")
	}
}

func TestMockTransportUnsupportedMethod(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPatch, "https://mock.s3.local/bucket/key", nil)
	resp, _ := newMockTransport().RoundTrip(req)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
}
