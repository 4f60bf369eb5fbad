package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"ontosim/internal/blob"
	"ontosim/pkg/domain"
)

const mediaPrefix = "media/"

type mediaKey struct {
	objectType string
	property   string
	itemRID    string
}

type mediaEntry struct {
	ref     domain.MediaReference
	meta    domain.MediaMetadata
	blobKey string
}

func mediaSetRID(objectType, property string) string {
	return fmt.Sprintf("ri.mio.main.media-set.%s.%s", objectType, property)
}

// RegisterMedia stores content for a media-reference property and returns
// the reference an object should carry to point at it.
func (s *Store) RegisterMedia(ctx context.Context, objectType, property string, content []byte, mediaType, path string) (domain.MediaReference, error) {
	if err := s.propertyOfType(objectType, property, domain.PropertyMediaReference); err != nil {
		return domain.MediaReference{}, err
	}
	itemRID := "ri.mio.main.media-item." + uuid.NewString()
	key := mediaPrefix + objectType + "/" + property + "/" + itemRID
	info, err := s.opts.blobs.Put(ctx, key, bytes.NewReader(content), blob.PutOptions{
		ContentType: mediaType,
		Metadata: map[string]string{
			"path":        path,
			"uploaded-at": s.opts.clock.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return domain.MediaReference{}, fmt.Errorf("store media %s.%s: %w", objectType, property, err)
	}
	ref := domain.MediaReference{
		MimeType:     mediaType,
		MediaSetRID:  mediaSetRID(objectType, property),
		MediaItemRID: itemRID,
	}
	s.mu.Lock()
	s.media[mediaKey{objectType: objectType, property: property, itemRID: itemRID}] = mediaEntry{
		ref:     ref,
		meta:    domain.MediaMetadata{MediaType: mediaType, SizeBytes: info.Size, Path: path},
		blobKey: key,
	}
	s.mu.Unlock()
	return ref, nil
}

// GetMediaOrThrow reads a media item by its item RID.
func (s *Store) GetMediaOrThrow(ctx context.Context, objectType, property, itemRID string) (domain.MediaItem, error) {
	if err := s.propertyOfType(objectType, property, domain.PropertyMediaReference); err != nil {
		return domain.MediaItem{}, err
	}
	s.mu.RLock()
	entry, ok := s.media[mediaKey{objectType: objectType, property: property, itemRID: itemRID}]
	s.mu.RUnlock()
	if !ok {
		return domain.MediaItem{}, &domain.PropertyError{
			ObjectType: objectType, Property: property,
			Detail: fmt.Sprintf("media reference %s cannot be resolved", itemRID),
		}
	}
	_, rc, err := s.opts.blobs.Get(ctx, entry.blobKey)
	if errors.Is(err, blob.ErrNotFound) {
		return domain.MediaItem{}, fmt.Errorf("%w: %w", &domain.NotFoundError{Kind: "media item", Detail: itemRID}, err)
	}
	if err != nil {
		return domain.MediaItem{}, fmt.Errorf("read media %s: %w", itemRID, err)
	}
	defer func() { _ = rc.Close() }()
	content, err := io.ReadAll(rc)
	if err != nil {
		return domain.MediaItem{}, fmt.Errorf("read media %s: %w", itemRID, err)
	}
	return domain.MediaItem{Reference: entry.ref, Metadata: entry.meta, Content: content}, nil
}

// GetObjectMedia follows an object's media-reference property to its
// content.
func (s *Store) GetObjectMedia(ctx context.Context, objectType string, primaryKey any, property string) (domain.MediaItem, error) {
	itemRID, err := s.objectMediaRID(objectType, primaryKey, property)
	if err != nil {
		return domain.MediaItem{}, err
	}
	return s.GetMediaOrThrow(ctx, objectType, property, itemRID)
}

// GetMediaMetadata returns metadata of the media an object references.
func (s *Store) GetMediaMetadata(objectType string, primaryKey any, property string) (domain.MediaMetadata, error) {
	itemRID, err := s.objectMediaRID(objectType, primaryKey, property)
	if err != nil {
		return domain.MediaMetadata{}, err
	}
	s.mu.RLock()
	entry, ok := s.media[mediaKey{objectType: objectType, property: property, itemRID: itemRID}]
	s.mu.RUnlock()
	if !ok {
		return domain.MediaMetadata{}, &domain.PropertyError{
			ObjectType: objectType, Property: property,
			Detail: fmt.Sprintf("media reference %s cannot be resolved", itemRID),
		}
	}
	return entry.meta, nil
}

func (s *Store) objectMediaRID(objectType string, primaryKey any, property string) (string, error) {
	if err := s.propertyOfType(objectType, property, domain.PropertyMediaReference); err != nil {
		return "", err
	}
	obj, err := s.GetObjectOrThrow(objectType, primaryKey)
	if err != nil {
		return "", err
	}
	rid, ok := mediaItemRID(obj.Properties[property])
	if !ok {
		return "", &domain.PropertyError{ObjectType: objectType, Property: property, Detail: "no media reference set"}
	}
	return rid, nil
}

func mediaItemRID(v any) (string, bool) {
	switch ref := v.(type) {
	case domain.MediaReference:
		return ref.MediaItemRID, ref.MediaItemRID != ""
	case *domain.MediaReference:
		if ref == nil {
			return "", false
		}
		return ref.MediaItemRID, ref.MediaItemRID != ""
	case map[string]any:
		if rid, ok := ref["mediaItemRid"].(string); ok && rid != "" {
			return rid, true
		}
		if inner, ok := ref["reference"].(map[string]any); ok {
			return mediaItemRID(inner)
		}
		return "", false
	case string:
		return ref, ref != ""
	default:
		return "", false
	}
}
