package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ontosim/internal/blob"
	"ontosim/pkg/domain"
)

// Store is the in-memory object graph: canonical and redacted objects, the
// link index, time series and media. Construct one per fixture with
// NewStore; there is no package-level instance.
type Store struct {
	mu       sync.RWMutex
	ontology domain.Ontology
	opts     storeOptions
	state    *graphState
	media    map[mediaKey]mediaEntry
	impls    map[string]domain.ActionImplementation
}

// NewStore constructs an empty store over the supplied ontology.
func NewStore(ontology domain.Ontology, opts ...StoreOption) *Store {
	o := defaultStoreOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.blobs == nil {
		o.blobs = blob.NewMemory()
	}
	if o.rules == nil {
		o.rules = NewDefaultRulesEngine()
	}
	if o.config.MissingTarget == "" {
		o.config.MissingTarget = MissingTargetWarn
	}
	return &Store{
		ontology: ontology,
		opts:     o,
		state:    newGraphState(),
		media:    make(map[mediaKey]mediaEntry),
		impls:    make(map[string]domain.ActionImplementation),
	}
}

// Ontology returns the schema the store was built with.
func (s *Store) Ontology() domain.Ontology { return s.ontology }

// Config returns the consistency configuration.
func (s *Store) Config() Config { return s.opts.config }

// RulesEngine returns the engine evaluating action submission criteria.
func (s *Store) RulesEngine() *domain.RulesEngine { return s.opts.rules }

func newObjectRID() string {
	return "ri.ontology.main.object." + uuid.NewString()
}

func (s *Store) ops(state *graphState) graphOps {
	return graphOps{
		ontology: s.ontology,
		cfg:      s.opts.config,
		logger:   s.opts.logger,
		newRID:   newObjectRID,
		state:    state,
	}
}

// RegisterObject adds a new object. It fails with a conflict when the
// locator is already taken.
func (s *Store) RegisterObject(obj domain.Object) (domain.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops(s.state).insert(obj)
}

// RegisterObjectWithSecurity adds an object together with a redacted
// variant and its property security descriptors.
func (s *Store) RegisterObjectWithSecurity(obj, redacted domain.Object, securities []domain.PropertySecurity) (domain.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.ops(s.state)
	created, err := ops.insert(obj)
	if err != nil {
		return domain.Object{}, err
	}
	loc, _ := created.Locator()
	red := redacted.Clone()
	red.ObjectType = created.ObjectType
	red.PrimaryKey = created.PrimaryKey
	if red.RID == "" {
		red.RID = created.RID
	}
	s.state.secured[loc] = securedEntry{
		redacted:   red,
		securities: append([]domain.PropertySecurity(nil), securities...),
	}
	return created, nil
}

// ReplaceObjectOrThrow swaps in a new version of an existing object. In
// strict mode foreign key changes are mirrored into the link index.
func (s *Store) ReplaceObjectOrThrow(obj domain.Object) (domain.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops(s.state).replace(obj)
}

// UnregisterObjectOrThrow removes an object, its redacted variant, every
// edge touching it and its time series.
func (s *Store) UnregisterObjectOrThrow(objectType string, primaryKey any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.ops(s.state).remove(objectType, primaryKey)
	return err
}

// GetObject returns a copy of the object when present.
func (s *Store) GetObject(objectType string, primaryKey any) (domain.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateView{state: s.state}.GetObject(objectType, primaryKey)
}

// GetObjectOrThrow returns the object or a not-found error.
func (s *Store) GetObjectOrThrow(objectType string, primaryKey any) (domain.Object, error) {
	obj, ok := s.GetObject(objectType, primaryKey)
	if !ok {
		return domain.Object{}, domain.ObjectNotFound(objectType, primaryKey)
	}
	return obj, nil
}

// GetObjectByRID scans for the object carrying the resource id.
func (s *Store) GetObjectByRID(rid string) (domain.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obj := range s.state.objects {
		if obj.RID == rid {
			return obj.Clone(), true
		}
	}
	return domain.Object{}, false
}

// GetObjectsOfType lists objects of a type ordered by primary key.
func (s *Store) GetObjectsOfType(objectType string) []domain.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ofType(objectType)
}

// RegisterLink connects two registered objects through the named sides of
// one link type.
func (s *Store) RegisterLink(a domain.Object, aLink string, b domain.Object, bLink string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.ops(s.state).link(a, aLink, b, bLink)
	return err
}

// UnregisterLink removes the connection made by RegisterLink.
func (s *Store) UnregisterLink(a domain.Object, aLink string, b domain.Object, bLink string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.ops(s.state).unlink(a, aLink, b, bLink)
	return err
}

// LinkTargets returns the raw target locators of a link without resolving
// them to objects.
func (s *Store) LinkTargets(objectType string, primaryKey any, link string) ([]domain.Locator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, _, err := s.linkSource(objectType, primaryKey, link)
	if err != nil {
		return nil, err
	}
	return s.state.links.targets(loc, link), nil
}

// GetLinks returns the registered objects reachable over a link. Targets
// that are not registered are skipped.
func (s *Store) GetLinks(objectType string, primaryKey any, link string) ([]domain.Object, error) {
	return s.getLinks(objectType, primaryKey, link, false)
}

// GetLinksOrThrow is GetLinks but fails when any target is not registered.
func (s *Store) GetLinksOrThrow(objectType string, primaryKey any, link string) ([]domain.Object, error) {
	return s.getLinks(objectType, primaryKey, link, true)
}

func (s *Store) getLinks(objectType string, primaryKey any, link string, strict bool) ([]domain.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, _, err := s.linkSource(objectType, primaryKey, link)
	if err != nil {
		return nil, err
	}
	targets := s.state.links.targets(loc, link)
	out := make([]domain.Object, 0, len(targets))
	for _, tgt := range targets {
		obj, ok := s.state.lookup(tgt)
		if !ok {
			if strict {
				return nil, &domain.NotFoundError{Kind: "linked object", ObjectType: tgt.ObjectType, PrimaryKey: tgt.PrimaryKeyValue(), Detail: "via " + link}
			}
			continue
		}
		out = append(out, obj.Clone())
	}
	return out, nil
}

// GetLinkedObject follows a ONE link and returns its target.
func (s *Store) GetLinkedObject(objectType string, primaryKey any, link string) (domain.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, sides, err := s.linkSource(objectType, primaryKey, link)
	if err != nil {
		return domain.Object{}, err
	}
	if sides.Source.Cardinality != domain.CardinalityOne {
		return domain.Object{}, &domain.InvalidArgumentError{Detail: fmt.Sprintf("link %s.%s has cardinality MANY", objectType, link)}
	}
	tgt, ok := s.state.links.oneTarget(loc, link)
	if !ok {
		return domain.Object{}, &domain.NotFoundError{Kind: "linked object", ObjectType: sides.Source.TargetType, Detail: fmt.Sprintf("no %s link from %s", link, loc)}
	}
	obj, ok := s.state.lookup(tgt)
	if !ok {
		return domain.Object{}, &domain.NotFoundError{Kind: "linked object", ObjectType: tgt.ObjectType, PrimaryKey: tgt.PrimaryKeyValue()}
	}
	return obj.Clone(), nil
}

func (s *Store) linkSource(objectType string, primaryKey any, link string) (domain.Locator, domain.LinkSides, error) {
	loc, err := domain.NewLocator(objectType, primaryKey)
	if err != nil {
		return domain.Locator{}, domain.LinkSides{}, &domain.InvalidArgumentError{Detail: err.Error()}
	}
	if _, ok := s.state.lookup(loc); !ok {
		return domain.Locator{}, domain.LinkSides{}, domain.ObjectNotFound(objectType, primaryKey)
	}
	sides, err := s.ontology.LinkSides(objectType, link)
	if err != nil {
		return domain.Locator{}, domain.LinkSides{}, err
	}
	return loc, sides, nil
}

// RunInTransaction runs fn against a cloned graph state and commits by swap
// when fn succeeds. A failing fn leaves the store untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &Transaction{ops: s.ops(s.state.clone())}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.ops.state
	return nil
}

// Clear drops objects, redacted variants, links, time series and media.
// Attachments and the ontology belong to collaborators and are kept.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newGraphState()
	s.media = make(map[mediaKey]mediaEntry)
	infos, err := s.opts.blobs.List(ctx, mediaPrefix)
	if err != nil {
		return fmt.Errorf("list media blobs: %w", err)
	}
	for _, info := range infos {
		if _, err := s.opts.blobs.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("delete media blob %s: %w", info.Key, err)
		}
	}
	return nil
}

// ExportState captures objects, redacted variants, links and time series.
func (s *Store) ExportState() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locs := make([]domain.Locator, 0, len(s.state.objects))
	for loc := range s.state.objects {
		locs = append(locs, loc)
	}
	sortByTypeThenKey(locs)
	snap := domain.Snapshot{
		Objects:    make([]domain.Object, 0, len(locs)),
		Secured:    []domain.SecuredObject{},
		Links:      s.state.links.records(),
		TimeSeries: []domain.SeriesRecord{},
	}
	for _, loc := range locs {
		snap.Objects = append(snap.Objects, s.state.objects[loc].Clone())
		if sec, ok := s.state.secured[loc]; ok {
			snap.Secured = append(snap.Secured, domain.SecuredObject{
				Locator:    loc,
				Redacted:   sec.redacted.Clone(),
				Securities: append([]domain.PropertySecurity(nil), sec.securities...),
			})
		}
	}
	for _, key := range sortedSeriesKeys(s.state.series) {
		snap.TimeSeries = append(snap.TimeSeries, domain.SeriesRecord{
			ObjectType: key.objectType,
			Property:   key.property,
			SeriesID:   key.seriesID,
			Points:     append([]domain.TimeSeriesPoint(nil), s.state.series[key]...),
		})
	}
	if snap.Links == nil {
		snap.Links = []domain.LinkRecord{}
	}
	return snap
}

// ImportState replaces the graph with a snapshot. Edges are restored as
// recorded and must be symmetric. Media is left as is.
func (s *Store) ImportState(snap domain.Snapshot) error {
	state := newGraphState()
	for _, obj := range snap.Objects {
		if _, err := s.ontology.ObjectType(obj.ObjectType); err != nil {
			return fmt.Errorf("import %s: %w", obj.ObjectType, err)
		}
		loc, err := obj.Locator()
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if _, dup := state.objects[loc]; dup {
			return &domain.ConflictError{ObjectType: obj.ObjectType, PrimaryKey: obj.PrimaryKey}
		}
		state.objects[loc] = obj.Clone()
	}
	for _, sec := range snap.Secured {
		if _, ok := state.objects[sec.Locator]; !ok {
			return fmt.Errorf("import: redacted variant for unknown object %s", sec.Locator)
		}
		state.secured[sec.Locator] = securedEntry{
			redacted:   sec.Redacted.Clone(),
			securities: append([]domain.PropertySecurity(nil), sec.Securities...),
		}
	}
	ops := s.ops(state)
	for _, rec := range snap.Links {
		sides, err := s.ontology.LinkSides(rec.Source.ObjectType, rec.Link)
		if err != nil {
			return fmt.Errorf("import link %s: %w", rec.Link, err)
		}
		ops.addEdge(sides.Source, rec.Source, rec.Target)
	}
	for _, rec := range snap.Links {
		sides, _ := s.ontology.LinkSides(rec.Source.ObjectType, rec.Link)
		if !state.links.hasEdge(sides.Target, rec.Target, rec.Source) {
			return fmt.Errorf("import link %s from %s: reciprocal %s edge missing", rec.Link, rec.Source, sides.Target.APIName)
		}
	}
	for _, rec := range snap.TimeSeries {
		points := append([]domain.TimeSeriesPoint(nil), rec.Points...)
		domain.SortPoints(points)
		state.series[seriesKey{objectType: rec.ObjectType, property: rec.Property, seriesID: rec.SeriesID}] = points
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

func sortByTypeThenKey(locs []domain.Locator) {
	byType := make(map[string][]domain.Locator)
	var types []string
	for _, l := range locs {
		if _, ok := byType[l.ObjectType]; !ok {
			types = append(types, l.ObjectType)
		}
		byType[l.ObjectType] = append(byType[l.ObjectType], l)
	}
	sort.Strings(types)
	locs = locs[:0]
	for _, t := range types {
		group := byType[t]
		sortLocators(group)
		locs = append(locs, group...)
	}
}
