package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"ontosim/internal/blob"
	"ontosim/pkg/domain"
)

func ts(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

func TestTimeSeries(t *testing.T) {
	s := newOfficeStore(t)
	mustRegister(t, s, employee(1, "Grace"), employee(2, "Alan", "performance", "perf-2"))
	points := []domain.TimeSeriesPoint{{Time: ts(3), Value: 3.0}, {Time: ts(1), Value: 1.0}, {Time: ts(2), Value: 2.0}}
	if err := s.RegisterTimeSeriesData("Employee", 1, "performance", "perf-1", points); err != nil {
		t.Fatalf("register series: %v", err)
	}
	obj, _ := s.GetObject("Employee", 1)
	if obj.Properties["performance"] != "perf-1" {
		t.Fatalf("unset series property should be filled, got %v", obj.Properties)
	}

	all, err := s.GetTimeSeriesData("Employee", 1, "performance", domain.PointFilter{})
	if err != nil || len(all) != 3 || !all[0].Time.Equal(ts(1)) || !all[2].Time.Equal(ts(3)) {
		t.Fatalf("expected sorted points, got %+v %v", all, err)
	}
	start, end := ts(2), ts(3)
	window, _ := s.GetTimeSeriesData("Employee", 1, "performance", domain.PointFilter{Start: &start, End: &end})
	if len(window) != 1 || window[0].Value != 2.0 {
		t.Fatalf("expected [2,3) window, got %+v", window)
	}
	limited, _ := s.GetTimeSeriesData("Employee", 1, "performance", domain.PointFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %+v", limited)
	}
	first, err := s.GetFirstPoint("Employee", 1, "performance")
	if err != nil || first.Value != 1.0 {
		t.Fatalf("first point: %+v %v", first, err)
	}
	last, err := s.GetLastPoint("Employee", 1, "performance")
	if err != nil || last.Value != 3.0 {
		t.Fatalf("last point: %+v %v", last, err)
	}

	all[0].Value = "mutated"
	again, _ := s.GetFirstPoint("Employee", 1, "performance")
	if again.Value != 1.0 {
		t.Fatalf("series leaked through returned slice")
	}

	if err := s.RegisterTimeSeriesData("Employee", 2, "performance", "perf-2", nil); err != nil {
		t.Fatalf("register empty series: %v", err)
	}
	if _, err := s.GetLastPoint("Employee", 2, "performance"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("empty series has no last point, got %v", err)
	}

	if err := s.UnregisterObjectOrThrow("Employee", 1); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	for _, rec := range s.ExportState().TimeSeries {
		if rec.SeriesID == "perf-1" {
			t.Fatalf("series should be removed with its object")
		}
	}
}

func TestTimeSeriesErrors(t *testing.T) {
	s := newOfficeStore(t)
	mustRegister(t, s, employee(1, "Grace", "performance", "perf-1"), employee(3, "Barbara"))
	cases := []struct {
		name string
		err  error
		is   error
	}{
		{"mismatched series id", s.RegisterTimeSeriesData("Employee", 1, "performance", "other", nil), domain.ErrInvalidArgument},
		{"empty series id", s.RegisterTimeSeriesData("Employee", 1, "performance", "", nil), domain.ErrInvalidArgument},
		{"wrong property type", s.RegisterTimeSeriesData("Employee", 1, "salary", "x", nil), domain.ErrInvalidArgument},
		{"undeclared property", s.RegisterTimeSeriesData("Employee", 1, "mood", "x", nil), domain.ErrInvalidArgument},
		{"missing object", s.RegisterTimeSeriesData("Employee", 9, "performance", "x", nil), domain.ErrNotFound},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.is) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.is, tc.err)
		}
	}
	if _, err := s.GetTimeSeriesData("Employee", 3, "performance", domain.PointFilter{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unset series should be not found, got %v", err)
	}
	if _, err := s.GetFirstPoint("Employee", 1, "performance"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unregistered series data should be not found, got %v", err)
	}
	var perr *domain.PropertyError
	if err := s.RegisterTimeSeriesData("Employee", 1, "salary", "x", nil); !errors.As(err, &perr) || perr.Actual != domain.PropertyDouble {
		t.Fatalf("expected type mismatch detail, got %v", err)
	}
}

func TestMedia(t *testing.T) {
	blobs := blob.NewMemory()
	uploaded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newOfficeStore(t, WithBlobStore(blobs), WithStoreClock(ClockFunc(func() time.Time { return uploaded })))
	ctx := context.Background()
	asset := mustRegister(t, s, domain.Object{ObjectType: "Asset", PrimaryKey: "a1"})[0]

	ref, err := s.RegisterMedia(ctx, "Asset", "thumbnail", []byte("PNG"), "image/png", "thumbs/a1.png")
	if err != nil {
		t.Fatalf("register media: %v", err)
	}
	other, err := s.RegisterMedia(ctx, "Asset", "thumbnail", []byte("PNG2"), "image/png", "")
	if err != nil {
		t.Fatalf("register second media: %v", err)
	}
	if ref.MediaSetRID != other.MediaSetRID || ref.MediaItemRID == other.MediaItemRID {
		t.Fatalf("expected shared media set and distinct items, got %+v %+v", ref, other)
	}
	if _, err := s.ReplaceObjectOrThrow(asset.With("thumbnail", ref)); err != nil {
		t.Fatalf("attach reference: %v", err)
	}

	item, err := s.GetObjectMedia(ctx, "Asset", "a1", "thumbnail")
	if err != nil {
		t.Fatalf("get media: %v", err)
	}
	if string(item.Content) != "PNG" || item.Metadata.SizeBytes != 3 || item.Metadata.Path != "thumbs/a1.png" || item.Reference != ref {
		t.Fatalf("unexpected media item %+v", item)
	}
	meta, err := s.GetMediaMetadata("Asset", "a1", "thumbnail")
	if err != nil || meta.MediaType != "image/png" {
		t.Fatalf("metadata: %+v %v", meta, err)
	}
	infos, _ := blobs.List(ctx, mediaPrefix)
	if len(infos) != 2 {
		t.Fatalf("expected two media blobs, got %d", len(infos))
	}
	info, err := blobs.Head(ctx, mediaPrefix+"Asset/thumbnail/"+ref.MediaItemRID)
	if err != nil || info.Metadata["uploaded-at"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("expected uploaded-at metadata, got %+v %v", info, err)
	}

	// A reference decoded from JSON arrives as a map.
	if _, err := s.ReplaceObjectOrThrow(asset.With("thumbnail", map[string]any{"mediaItemRid": other.MediaItemRID})); err != nil {
		t.Fatalf("replace with map reference: %v", err)
	}
	if item, err := s.GetObjectMedia(ctx, "Asset", "a1", "thumbnail"); err != nil || string(item.Content) != "PNG2" {
		t.Fatalf("map reference: %+v %v", item, err)
	}
}

func TestMediaErrors(t *testing.T) {
	blobs := blob.NewMemory()
	s := newOfficeStore(t, WithBlobStore(blobs))
	ctx := context.Background()
	mustRegister(t, s, domain.Object{ObjectType: "Asset", PrimaryKey: "bare"})
	ref, err := s.RegisterMedia(ctx, "Asset", "thumbnail", []byte("x"), "image/png", "")
	if err != nil {
		t.Fatalf("register media: %v", err)
	}

	if _, err := s.RegisterMedia(ctx, "Asset", "name", []byte("x"), "image/png", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected wrong property type, got %v", err)
	}
	if _, err := s.GetObjectMedia(ctx, "Asset", "bare", "thumbnail"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected missing reference error, got %v", err)
	}
	if _, err := s.GetMediaOrThrow(ctx, "Asset", "thumbnail", "ri.mio.main.media-item.unknown"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected unresolvable reference, got %v", err)
	}
	if _, err := s.GetObjectMedia(ctx, "Asset", "ghost", "thumbnail"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing object, got %v", err)
	}

	if _, err := blobs.Delete(ctx, mediaPrefix+"Asset/thumbnail/"+ref.MediaItemRID); err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	_, err = s.GetMediaOrThrow(ctx, "Asset", "thumbnail", ref.MediaItemRID)
	if !errors.Is(err, domain.ErrNotFound) || !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected media not found wrapping the blob error, got %v", err)
	}
}

func TestAttachments(t *testing.T) {
	backends := map[string]blob.Store{
		"memory": blob.NewMemory(),
		"s3":     blob.NewMockS3ForTests(),
	}
	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			attachments := NewBlobAttachmentStore(backend)
			s := newOfficeStore(t, WithAttachmentStore(attachments))
			meta, err := attachments.Upload(ctx, "badge.pdf", "application/pdf", []byte("%PDF"))
			if err != nil {
				t.Fatalf("upload: %v", err)
			}
			mustRegister(t, s,
				employee(1, "Grace", "badge", meta.RID),
				employee(2, "Alan", "badge", map[string]any{"rid": meta.RID}),
				employee(3, "Barbara", "badge", meta),
			)
			for _, pk := range []int{1, 2, 3} {
				got, err := s.GetAttachmentMetadata(ctx, "Employee", pk, "badge")
				if err != nil {
					t.Fatalf("metadata for %d: %v", pk, err)
				}
				if got.Filename != "badge.pdf" || got.SizeBytes != 4 || got.MediaType != "application/pdf" {
					t.Fatalf("unexpected metadata %+v", got)
				}
			}
			content, err := s.GetAttachmentContent(ctx, "Employee", 1, "badge")
			if err != nil || string(content) != "%PDF" {
				t.Fatalf("content: %q %v", content, err)
			}
			if _, err := attachments.Content(ctx, "ri.attachments.main.attachment.missing"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected missing attachment, got %v", err)
			}
		})
	}
}

func TestAttachmentErrors(t *testing.T) {
	ctx := context.Background()
	bare := newOfficeStore(t)
	mustRegister(t, bare, employee(1, "Grace", "badge", "rid"))
	if _, err := bare.GetAttachmentContent(ctx, "Employee", 1, "badge"); !errors.Is(err, errNoAttachmentStore) {
		t.Fatalf("expected missing collaborator error, got %v", err)
	}

	s := newOfficeStore(t, WithAttachmentStore(NewBlobAttachmentStore(blob.NewMemory())))
	mustRegister(t, s, employee(1, "Grace"))
	if _, err := s.GetAttachmentMetadata(ctx, "Employee", 1, "badge"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected unset attachment error, got %v", err)
	}
	if _, err := s.GetAttachmentMetadata(ctx, "Employee", 1, "fullName"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected wrong type error, got %v", err)
	}
	if _, err := s.GetAttachmentMetadata(ctx, "Employee", 2, "badge"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing object error, got %v", err)
	}
}
