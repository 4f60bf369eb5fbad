package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ontosim/pkg/domain"
)

// Service is the instrumented read and action surface over a Store. Every
// operation is traced, timed, logged and, when it mutates, audited.
type Service struct {
	store   *Store
	plugins map[string]PluginMetadata
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the service clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetricsRecorder sets the recorder observing operation outcomes.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer wrapping each operation.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the recorder receiving audit entries.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store *Store, opts ...ServiceOption) *Service {
	svc := &Service{
		store:   store,
		plugins: make(map[string]PluginMetadata),
		logger:  noopLogger{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// NewInMemoryService creates a store over the ontology and wraps it.
func NewInMemoryService(ontology domain.Ontology, opts ...ServiceOption) *Service {
	return NewService(NewStore(ontology), opts...)
}

// Store returns the underlying store.
func (s *Service) Store() *Store {
	return s.store
}

// auditedOperations are the operations that change state.
var auditedOperations = map[string]struct{}{
	"apply_action":       {},
	"batch_apply_action": {},
}

func (s *Service) run(ctx context.Context, op, objectType, target string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "objectType", objectType, "target", target, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", op, "objectType", objectType, "target", target, "duration", duration)
	}
	s.recordAudit(ctx, op, objectType, target, duration, err)
	return err
}

func (s *Service) recordAudit(ctx context.Context, op, objectType, target string, duration time.Duration, err error) {
	if _, ok := auditedOperations[op]; !ok {
		return
	}
	entry := AuditEntry{
		Operation:  op,
		ObjectType: objectType,
		Target:     target,
		Status:     AuditStatusSuccess,
		Duration:   duration,
		Timestamp:  s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// GetObject returns one object or a not-found error.
func (s *Service) GetObject(ctx context.Context, objectType string, primaryKey any) (domain.Object, error) {
	var obj domain.Object
	err := s.run(ctx, "get_object", objectType, fmt.Sprint(primaryKey), func(context.Context) error {
		var err error
		obj, err = s.store.GetObjectOrThrow(objectType, primaryKey)
		return err
	})
	return obj, err
}

// LoadObjectSet resolves an object set and returns one page of it.
func (s *Service) LoadObjectSet(ctx context.Context, set domain.ObjectSet, req domain.LoadObjectsRequest) (domain.ObjectPage, error) {
	var page domain.ObjectPage
	err := s.run(ctx, "load_object_set", set.ObjectType, string(set.Kind), func(context.Context) error {
		objects, err := s.store.ResolveObjectSet(set)
		if err != nil {
			return err
		}
		page, err = s.store.LoadObjects(objects, req)
		return err
	})
	return page, err
}

// GetLinkedObjects follows a link from one object.
func (s *Service) GetLinkedObjects(ctx context.Context, objectType string, primaryKey any, link string) ([]domain.Object, error) {
	var out []domain.Object
	err := s.run(ctx, "get_linked_objects", objectType, fmt.Sprintf("%v.%s", primaryKey, link), func(context.Context) error {
		var err error
		out, err = s.store.GetLinksOrThrow(objectType, primaryKey, link)
		return err
	})
	return out, err
}

// GetLinkedObject follows a ONE link from one object.
func (s *Service) GetLinkedObject(ctx context.Context, objectType string, primaryKey any, link string) (domain.Object, error) {
	var out domain.Object
	err := s.run(ctx, "get_linked_object", objectType, fmt.Sprintf("%v.%s", primaryKey, link), func(context.Context) error {
		var err error
		out, err = s.store.GetLinkedObject(objectType, primaryKey, link)
		return err
	})
	return out, err
}

// ApplyAction validates and applies one action request.
func (s *Service) ApplyAction(ctx context.Context, req domain.ActionRequest, opts domain.ApplyActionOptions) (domain.ActionResponse, error) {
	var resp domain.ActionResponse
	err := s.run(ctx, "apply_action", "", req.Action, func(ctx context.Context) error {
		var err error
		resp, err = s.store.ApplyAction(ctx, req, opts)
		return err
	})
	if err == nil && !resp.Validation.Valid() {
		s.logger.Info("action rejected by validation", "action", req.Action)
	}
	return resp, err
}

// BatchApplyAction validates and applies a batch of action requests.
func (s *Service) BatchApplyAction(ctx context.Context, reqs []domain.ActionRequest, opts domain.ApplyActionOptions) (domain.BatchActionResponse, error) {
	var resp domain.BatchActionResponse
	target := fmt.Sprintf("%d requests", len(reqs))
	err := s.run(ctx, "batch_apply_action", "", target, func(ctx context.Context) error {
		var err error
		resp, err = s.store.BatchApplyAction(ctx, reqs, opts)
		return err
	})
	return resp, err
}

// GetTimeSeries reads an object's time series.
func (s *Service) GetTimeSeries(ctx context.Context, objectType string, primaryKey any, property string, filter domain.PointFilter) ([]domain.TimeSeriesPoint, error) {
	var points []domain.TimeSeriesPoint
	err := s.run(ctx, "get_time_series", objectType, fmt.Sprintf("%v.%s", primaryKey, property), func(context.Context) error {
		var err error
		points, err = s.store.GetTimeSeriesData(objectType, primaryKey, property, filter)
		return err
	})
	return points, err
}

// GetMedia reads the media an object's property references.
func (s *Service) GetMedia(ctx context.Context, objectType string, primaryKey any, property string) (domain.MediaItem, error) {
	var item domain.MediaItem
	err := s.run(ctx, "get_media", objectType, fmt.Sprintf("%v.%s", primaryKey, property), func(ctx context.Context) error {
		var err error
		item, err = s.store.GetObjectMedia(ctx, objectType, primaryKey, property)
		return err
	})
	return item, err
}

// GetAttachment reads the attachment an object's property references.
func (s *Service) GetAttachment(ctx context.Context, objectType string, primaryKey any, property string) (domain.AttachmentMetadata, []byte, error) {
	var (
		meta    domain.AttachmentMetadata
		content []byte
	)
	err := s.run(ctx, "get_attachment", objectType, fmt.Sprintf("%v.%s", primaryKey, property), func(ctx context.Context) error {
		var err error
		if meta, err = s.store.GetAttachmentMetadata(ctx, objectType, primaryKey, property); err != nil {
			return err
		}
		content, err = s.store.GetAttachmentContent(ctx, objectType, primaryKey, property)
		return err
	})
	return meta, content, err
}

// InstallPlugin registers a plugin, wiring its rules into the store's
// engine and its action implementations into the store.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, err
	}
	for _, action := range registry.Actions() {
		if _, err := s.store.Ontology().ActionType(action); err != nil {
			return PluginMetadata{}, fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
	}

	meta := PluginMetadata{
		Name:    plugin.Name(),
		Version: plugin.Version(),
		Actions: registry.Actions(),
	}
	for _, rule := range registry.Rules() {
		s.store.RulesEngine().Register(rule)
		meta.Rules = append(meta.Rules, rule.Name())
	}
	for _, action := range meta.Actions {
		s.store.SetActionImplementation(action, registry.actions[action])
	}
	s.plugins[plugin.Name()] = meta
	s.logger.Info("plugin installed", "plugin", meta.Name, "version", meta.Version)
	return meta, nil
}

// RegisteredPlugins returns metadata describing installed plugins.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
