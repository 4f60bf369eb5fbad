// Package core defines the blob storage contract shared by the media and
// attachment side stores and the backends under internal/infra/blob.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverMemory keeps blobs in process memory (default).
	DriverMemory Driver = "memory"
	// DriverFilesystem writes blobs under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 talks to an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // user metadata, small flat key-value
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a create-only key/value blob store. Put fails with ErrExists for
// a key already written; Get and Head fail with ErrNotFound for a missing key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = errors.New("blob not found")
	// ErrExists reports a Put to a key that already holds a blob.
	ErrExists = errors.New("blob already exists")
)

// CloneMetadata copies user metadata so callers cannot alias stored maps.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
