package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ontosim/internal/blob"
	"ontosim/pkg/domain"
)

type observation struct {
	operation string
	success   bool
}

type recordingMetrics struct {
	mu  sync.Mutex
	obs []observation
}

func (m *recordingMetrics) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, observation{operation: operation, success: success})
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

// steppingClock advances one millisecond per reading.
func steppingClock() Clock {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return ClockFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	})
}

func TestServiceInstrumentsOperations(t *testing.T) {
	logger := &captureLogger{}
	metrics := &recordingMetrics{}
	audit := &recordingAudit{}
	var traceOut bytes.Buffer
	tracer := NewJSONTracer(&traceOut)
	svc := NewService(newActionStore(t),
		WithLogger(logger),
		WithClock(steppingClock()),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithAuditRecorder(audit),
	)
	ctx := context.Background()

	if obj, err := svc.GetObject(ctx, "Employee", 1); err != nil || obj.Title != "Grace" {
		t.Fatalf("get object: %+v %v", obj, err)
	}
	if _, err := svc.GetObject(ctx, "Employee", 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ApplyAction(ctx, hire(5, "Ada"), domain.ApplyActionOptions{}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	resp, err := svc.ApplyAction(ctx, domain.ActionRequest{Action: "hireEmployee", Parameters: map[string]any{"employeeId": 6}}, domain.ApplyActionOptions{})
	if err != nil || resp.Validation.Valid() {
		t.Fatalf("expected invalid validation without error, got %+v %v", resp.Validation, err)
	}
	if _, err := svc.BatchApplyAction(ctx, []domain.ActionRequest{hire(7, "Edsger")}, domain.ApplyActionOptions{}); err != nil {
		t.Fatalf("batch: %v", err)
	}

	want := []observation{
		{"get_object", true},
		{"get_object", false},
		{"apply_action", true},
		{"apply_action", true},
		{"batch_apply_action", true},
	}
	if len(metrics.obs) != len(want) {
		t.Fatalf("expected %d observations, got %+v", len(want), metrics.obs)
	}
	for i, w := range want {
		if metrics.obs[i] != w {
			t.Fatalf("observation %d: expected %+v, got %+v", i, w, metrics.obs[i])
		}
	}

	if len(audit.entries) != 3 {
		t.Fatalf("only action operations are audited, got %+v", audit.entries)
	}
	first := audit.entries[0]
	if first.Operation != "apply_action" || first.Target != "hireEmployee" || first.Status != AuditStatusSuccess || first.Duration != time.Millisecond {
		t.Fatalf("unexpected audit entry %+v", first)
	}
	if audit.entries[2].Target != "1 requests" {
		t.Fatalf("unexpected batch audit target %q", audit.entries[2].Target)
	}

	if n := logger.count("error", "operation failed"); n != 1 {
		t.Fatalf("expected one failure log, got %d", n)
	}
	if n := logger.count("debug", "operation completed"); n != 4 {
		t.Fatalf("expected four completion logs, got %d", n)
	}
	if n := logger.count("info", "action rejected by validation"); n != 1 {
		t.Fatalf("expected one rejection log, got %d", n)
	}

	spans := tracer.Entries()
	if len(spans) != 5 || spans[1].Status != "error" || !strings.Contains(spans[1].Error, "not found") {
		t.Fatalf("unexpected spans %+v", spans)
	}
	if lines := strings.Count(traceOut.String(), "\n"); lines != 5 {
		t.Fatalf("expected five JSON lines, got %d:\n%s", lines, traceOut.String())
	}
}

func TestServiceAuditsFailedActions(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(newActionStore(t), WithAuditRecorder(audit))
	if _, err := svc.ApplyAction(context.Background(), domain.ActionRequest{Action: "fireEveryone"}, domain.ApplyActionOptions{}); err == nil {
		t.Fatalf("expected unknown action error")
	}
	if len(audit.entries) != 1 || audit.entries[0].Status != AuditStatusError || audit.entries[0].Error == "" {
		t.Fatalf("unexpected audit entries %+v", audit.entries)
	}
}

func TestServiceReads(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	attachments := NewBlobAttachmentStore(blobs)
	store := newOfficeStore(t, WithBlobStore(blobs), WithAttachmentStore(attachments))
	svc := NewService(store)

	meta, err := attachments.Upload(ctx, "badge.png", "image/png", []byte("badge"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	mustRegister(t, store,
		employee(1, "Grace", "performance", "perf-1", "badge", meta.RID),
		employee(2, "Alan", "managerId", 1),
		domain.Object{ObjectType: "Asset", PrimaryKey: "a1"},
	)
	if err := store.RegisterTimeSeriesData("Employee", 1, "performance", "perf-1", []domain.TimeSeriesPoint{{Time: ts(1), Value: 1.0}, {Time: ts(2), Value: 2.0}}); err != nil {
		t.Fatalf("series: %v", err)
	}
	ref, err := store.RegisterMedia(ctx, "Asset", "thumbnail", []byte("PNG"), "image/png", "")
	if err != nil {
		t.Fatalf("media: %v", err)
	}
	asset, _ := store.GetObject("Asset", "a1")
	if _, err := store.ReplaceObjectOrThrow(asset.With("thumbnail", ref)); err != nil {
		t.Fatalf("attach media: %v", err)
	}

	page, err := svc.LoadObjectSet(ctx, domain.BaseSet("Employee"), domain.LoadObjectsRequest{PageSize: 1})
	if err != nil || len(page.Data) != 1 || page.TotalCount != 2 || page.NextPageToken == "" {
		t.Fatalf("unexpected page %+v %v", page, err)
	}
	reports, err := svc.GetLinkedObjects(ctx, "Employee", 1, "reports")
	if err != nil || len(reports) != 1 || reports[0].Title != "Alan" {
		t.Fatalf("unexpected reports %+v %v", reports, err)
	}
	manager, err := svc.GetLinkedObject(ctx, "Employee", 2, "manager")
	if err != nil || manager.Title != "Grace" {
		t.Fatalf("unexpected manager %+v %v", manager, err)
	}
	points, err := svc.GetTimeSeries(ctx, "Employee", 1, "performance", domain.PointFilter{})
	if err != nil || len(points) != 2 {
		t.Fatalf("unexpected points %+v %v", points, err)
	}
	item, err := svc.GetMedia(ctx, "Asset", "a1", "thumbnail")
	if err != nil || string(item.Content) != "PNG" {
		t.Fatalf("unexpected media %+v %v", item, err)
	}
	got, content, err := svc.GetAttachment(ctx, "Employee", 1, "badge")
	if err != nil || got.Filename != "badge.png" || string(content) != "badge" {
		t.Fatalf("unexpected attachment %+v %q %v", got, content, err)
	}
	if _, _, err := svc.GetAttachment(ctx, "Employee", 2, "badge"); err == nil {
		t.Fatalf("expected error for employee without badge")
	}
}
