package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"ontosim/internal/blob"
	"ontosim/pkg/domain"
)

const attachmentPrefix = "attachments/"

// BlobAttachmentStore keeps attachment bytes in a blob.Store. Its content
// lives outside the media prefix, so Store.Clear leaves it alone.
type BlobAttachmentStore struct {
	blobs blob.Store
}

// Compile-time contract assertion.
var _ domain.AttachmentStore = (*BlobAttachmentStore)(nil)

// NewBlobAttachmentStore wraps a blob store.
func NewBlobAttachmentStore(blobs blob.Store) *BlobAttachmentStore {
	return &BlobAttachmentStore{blobs: blobs}
}

// Upload stores an attachment and returns its metadata.
func (a *BlobAttachmentStore) Upload(ctx context.Context, filename, mediaType string, content []byte) (domain.AttachmentMetadata, error) {
	rid := "ri.attachments.main.attachment." + uuid.NewString()
	info, err := a.blobs.Put(ctx, attachmentPrefix+rid, bytes.NewReader(content), blob.PutOptions{
		ContentType: mediaType,
		Metadata:    map[string]string{"filename": filename},
	})
	if err != nil {
		return domain.AttachmentMetadata{}, fmt.Errorf("upload attachment %s: %w", filename, err)
	}
	return domain.AttachmentMetadata{RID: rid, Filename: filename, SizeBytes: info.Size, MediaType: mediaType}, nil
}

// Metadata implements domain.AttachmentStore.
func (a *BlobAttachmentStore) Metadata(ctx context.Context, rid string) (domain.AttachmentMetadata, error) {
	info, err := a.blobs.Head(ctx, attachmentPrefix+rid)
	if err != nil {
		return domain.AttachmentMetadata{}, a.readError(rid, err)
	}
	return domain.AttachmentMetadata{
		RID:       rid,
		Filename:  info.Metadata["filename"],
		SizeBytes: info.Size,
		MediaType: info.ContentType,
	}, nil
}

// Content implements domain.AttachmentStore.
func (a *BlobAttachmentStore) Content(ctx context.Context, rid string) ([]byte, error) {
	_, rc, err := a.blobs.Get(ctx, attachmentPrefix+rid)
	if err != nil {
		return nil, a.readError(rid, err)
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (a *BlobAttachmentStore) readError(rid string, cause error) error {
	if !errors.Is(cause, blob.ErrNotFound) {
		return fmt.Errorf("read attachment %s: %w", rid, cause)
	}
	return fmt.Errorf("%w: %w", &domain.NotFoundError{Kind: "attachment", Detail: rid}, cause)
}

// GetAttachmentMetadata resolves an object's attachment property through the
// attachment collaborator.
func (s *Store) GetAttachmentMetadata(ctx context.Context, objectType string, primaryKey any, property string) (domain.AttachmentMetadata, error) {
	rid, err := s.attachmentRID(objectType, primaryKey, property)
	if err != nil {
		return domain.AttachmentMetadata{}, err
	}
	return s.opts.attachments.Metadata(ctx, rid)
}

// GetAttachmentContent reads the bytes of an object's attachment property.
func (s *Store) GetAttachmentContent(ctx context.Context, objectType string, primaryKey any, property string) ([]byte, error) {
	rid, err := s.attachmentRID(objectType, primaryKey, property)
	if err != nil {
		return nil, err
	}
	return s.opts.attachments.Content(ctx, rid)
}

var errNoAttachmentStore = errors.New("no attachment store configured")

func (s *Store) attachmentRID(objectType string, primaryKey any, property string) (string, error) {
	if s.opts.attachments == nil {
		return "", errNoAttachmentStore
	}
	if err := s.propertyOfType(objectType, property, domain.PropertyAttachment); err != nil {
		return "", err
	}
	obj, err := s.GetObjectOrThrow(objectType, primaryKey)
	if err != nil {
		return "", err
	}
	switch v := obj.Properties[property].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case domain.AttachmentMetadata:
		if v.RID != "" {
			return v.RID, nil
		}
	case map[string]any:
		if rid, ok := v["rid"].(string); ok && rid != "" {
			return rid, nil
		}
	}
	return "", &domain.PropertyError{ObjectType: objectType, Property: property, Detail: fmt.Sprintf("no attachment set on %v", primaryKey)}
}
