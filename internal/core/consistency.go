package core

import (
	"fmt"
	"sort"

	"ontosim/pkg/domain"
)

// graphOps applies object and link mutations to one graph state, keeping
// foreign keys and the link index consistent.
type graphOps struct {
	ontology domain.Ontology
	cfg      Config
	logger   Logger
	newRID   func() string
	state    *graphState
}

type edgeUpdate struct {
	sides  domain.LinkSides
	target domain.Locator
	remove bool
}

// normalize resolves the primary key and fills RID and title defaults.
func (g graphOps) normalize(obj domain.Object) (domain.Object, domain.Locator, domain.ObjectTypeDefinition, error) {
	def, err := g.ontology.ObjectType(obj.ObjectType)
	if err != nil {
		return domain.Object{}, domain.Locator{}, domain.ObjectTypeDefinition{}, err
	}
	out := obj.Clone()
	fromProps, hasProp := out.Properties[def.PrimaryKey]
	switch {
	case out.PrimaryKey == nil && !hasProp:
		return domain.Object{}, domain.Locator{}, def, &domain.PropertyError{
			ObjectType: def.APIName, Property: def.PrimaryKey, Detail: "primary key value missing",
		}
	case out.PrimaryKey == nil:
		out.PrimaryKey = fromProps
	case !hasProp:
		out.Properties[def.PrimaryKey] = out.PrimaryKey
	case !domain.ValuesEqual(out.PrimaryKey, fromProps):
		return domain.Object{}, domain.Locator{}, def, &domain.PropertyError{
			ObjectType: def.APIName, Property: def.PrimaryKey,
			Detail: fmt.Sprintf("primary key %v disagrees with property value %v", out.PrimaryKey, fromProps),
		}
	}
	loc, err := domain.NewLocator(def.APIName, out.PrimaryKey)
	if err != nil {
		return domain.Object{}, domain.Locator{}, def, &domain.PropertyError{ObjectType: def.APIName, Property: def.PrimaryKey, Detail: err.Error()}
	}
	if out.Title == "" && def.TitleProperty != "" {
		if v, ok := out.Properties[def.TitleProperty]; ok && v != nil {
			out.Title = fmt.Sprint(v)
		}
	}
	return out, loc, def, nil
}

func (g graphOps) insert(obj domain.Object) (domain.Object, error) {
	obj, loc, def, err := g.normalize(obj)
	if err != nil {
		return domain.Object{}, err
	}
	if _, exists := g.state.lookup(loc); exists {
		return domain.Object{}, &domain.ConflictError{ObjectType: def.APIName, PrimaryKey: obj.PrimaryKey}
	}
	if obj.RID == "" {
		obj.RID = g.newRID()
	}
	var updates []edgeUpdate
	if g.cfg.Strict {
		if updates, err = g.foreignKeyUpdates(def, loc, nil, obj); err != nil {
			return domain.Object{}, err
		}
	}
	g.state.objects[loc] = obj
	g.apply(loc, updates)
	return obj.Clone(), nil
}

func (g graphOps) replace(obj domain.Object) (domain.Object, error) {
	obj, loc, def, err := g.normalize(obj)
	if err != nil {
		return domain.Object{}, err
	}
	old, ok := g.state.lookup(loc)
	if !ok {
		return domain.Object{}, domain.ObjectNotFound(def.APIName, obj.PrimaryKey)
	}
	if obj.RID == "" {
		obj.RID = old.RID
	}
	if obj.Title == "" {
		obj.Title = old.Title
	}
	var updates []edgeUpdate
	if g.cfg.Strict {
		if updates, err = g.foreignKeyUpdates(def, loc, &old, obj); err != nil {
			return domain.Object{}, err
		}
	}
	g.state.objects[loc] = obj
	g.apply(loc, updates)
	return obj.Clone(), nil
}

// foreignKeyUpdates stages edge changes for every ONE link with a foreign
// key whose value differs from old. Nothing is mutated here so a rejected
// target leaves state untouched.
func (g graphOps) foreignKeyUpdates(def domain.ObjectTypeDefinition, loc domain.Locator, old *domain.Object, obj domain.Object) ([]edgeUpdate, error) {
	names := make([]string, 0, len(def.Links))
	for name, link := range def.Links {
		if link.Cardinality == domain.CardinalityOne && link.ForeignKeyProperty != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var updates []edgeUpdate
	for _, name := range names {
		sides, err := g.ontology.LinkSides(def.APIName, name)
		if err != nil {
			return nil, err
		}
		fk := sides.Source.ForeignKeyProperty
		newFK := obj.Properties[fk]
		var oldFK any
		if old != nil {
			oldFK = old.Properties[fk]
			if domain.ValuesEqual(oldFK, newFK) {
				continue
			}
		}
		current, linked := g.state.links.oneTarget(loc, name)
		// Directly asserted ONE-ONE edges may disagree with the key.
		if oldFK != nil && linked && sides.Target.Cardinality == domain.CardinalityMany {
			expected, err := domain.NewLocator(sides.Source.TargetType, oldFK)
			if err == nil && expected != current {
				domain.Invariantf("%s edge from %s points at %s but foreign key %s was %v", name, loc, current, fk, oldFK)
			}
		}
		if newFK != nil {
			target, err := domain.NewLocator(sides.Source.TargetType, newFK)
			if err != nil {
				return nil, &domain.PropertyError{ObjectType: def.APIName, Property: fk, Detail: err.Error()}
			}
			if linked && current == target {
				continue
			}
			if _, ok := g.state.lookup(target); !ok {
				if g.cfg.MissingTarget == MissingTargetReject {
					return nil, &domain.NotFoundError{
						Kind: "linked object", ObjectType: target.ObjectType, PrimaryKey: newFK,
						Detail: fmt.Sprintf("foreign key %s.%s", def.APIName, fk),
					}
				}
				g.logger.Warn("foreign key target not registered",
					"object", loc.String(), "link", name, "target", target.String())
			}
			updates = append(updates, edgeUpdate{sides: sides, target: target})
			continue
		}
		// Cleared key: the edge may already be gone with its target.
		if oldFK != nil && linked {
			updates = append(updates, edgeUpdate{sides: sides, target: current, remove: true})
		}
	}
	return updates, nil
}

func (g graphOps) apply(loc domain.Locator, updates []edgeUpdate) {
	for _, u := range updates {
		if u.remove {
			g.disconnect(u.sides, loc, u.target)
			continue
		}
		g.connect(u.sides, loc, u.target)
	}
}

func flip(sides domain.LinkSides) domain.LinkSides {
	return domain.LinkSides{Source: sides.Target, Target: sides.Source}
}

// connect asserts the edge a -> b and its reciprocal. A ONE side already
// pointing elsewhere is detached from its previous partner first.
func (g graphOps) connect(sides domain.LinkSides, a, b domain.Locator) {
	g.detachOne(sides, a, b)
	g.detachOne(flip(sides), b, a)
	g.addEdge(sides.Source, a, b)
	g.addEdge(sides.Target, b, a)
}

func (g graphOps) detachOne(sides domain.LinkSides, src, next domain.Locator) {
	if sides.Source.Cardinality != domain.CardinalityOne {
		return
	}
	if current, ok := g.state.links.oneTarget(src, sides.Source.APIName); ok && current != next {
		g.disconnect(sides, src, current)
	}
}

func (g graphOps) addEdge(def domain.LinkDefinition, src, tgt domain.Locator) {
	if def.Cardinality == domain.CardinalityOne {
		g.state.links.setOne(src, def.APIName, tgt)
		return
	}
	g.state.links.addMany(src, def.APIName, tgt)
}

// disconnect removes a -> b and its reciprocal, asserting both exist.
func (g graphOps) disconnect(sides domain.LinkSides, a, b domain.Locator) {
	g.removeEdge(sides.Source, a, b)
	g.removeEdge(sides.Target, b, a)
}

func (g graphOps) removeEdge(def domain.LinkDefinition, src, tgt domain.Locator) {
	if def.Cardinality == domain.CardinalityOne {
		g.state.links.removeOne(src, def.APIName, tgt)
		return
	}
	g.state.links.removeMany(src, def.APIName, tgt)
}

func (g graphOps) remove(objectType string, primaryKey any) (domain.Object, error) {
	loc, err := domain.NewLocator(objectType, primaryKey)
	if err != nil {
		return domain.Object{}, &domain.InvalidArgumentError{Detail: err.Error()}
	}
	obj, ok := g.state.lookup(loc)
	if !ok {
		return domain.Object{}, domain.ObjectNotFound(objectType, primaryKey)
	}
	def, err := g.ontology.ObjectType(objectType)
	if err != nil {
		return domain.Object{}, err
	}
	for _, edge := range g.state.links.outgoing(loc) {
		sides, err := g.ontology.LinkSides(objectType, edge.Link)
		if err != nil {
			domain.Invariantf("edge %s from %s has no link definition: %v", edge.Link, loc, err)
		}
		// A self-referencing pair is gone once its first side is processed.
		if !g.state.links.hasEdge(sides.Source, loc, edge.Target) {
			continue
		}
		g.disconnect(sides, loc, edge.Target)
	}
	for name, prop := range def.Properties {
		if prop.Type != domain.PropertyTimeSeries {
			continue
		}
		if id, ok := obj.Properties[name].(string); ok {
			delete(g.state.series, seriesKey{objectType: objectType, property: name, seriesID: id})
		}
	}
	delete(g.state.objects, loc)
	delete(g.state.secured, loc)
	return obj, nil
}

// resolvePair looks up both endpoints and checks that the link names are
// two sides of the same link type.
func (g graphOps) resolvePair(a domain.Object, aLink string, b domain.Object, bLink string) (domain.LinkSides, domain.Object, domain.Object, error) {
	aLoc, err := a.Locator()
	if err != nil {
		return domain.LinkSides{}, domain.Object{}, domain.Object{}, &domain.InvalidArgumentError{Detail: err.Error()}
	}
	bLoc, err := b.Locator()
	if err != nil {
		return domain.LinkSides{}, domain.Object{}, domain.Object{}, &domain.InvalidArgumentError{Detail: err.Error()}
	}
	aObj, ok := g.state.lookup(aLoc)
	if !ok {
		return domain.LinkSides{}, domain.Object{}, domain.Object{}, domain.ObjectNotFound(a.ObjectType, a.PrimaryKey)
	}
	bObj, ok := g.state.lookup(bLoc)
	if !ok {
		return domain.LinkSides{}, domain.Object{}, domain.Object{}, domain.ObjectNotFound(b.ObjectType, b.PrimaryKey)
	}
	sides, err := g.ontology.LinkSides(a.ObjectType, aLink)
	if err != nil {
		return domain.LinkSides{}, domain.Object{}, domain.Object{}, err
	}
	reverse, err := g.ontology.LinkSides(b.ObjectType, bLink)
	if err != nil {
		return domain.LinkSides{}, domain.Object{}, domain.Object{}, err
	}
	if sides.Source.LinkTypeRID != reverse.Source.LinkTypeRID {
		domain.Invariantf("%s.%s and %s.%s belong to different link types (%s, %s)",
			a.ObjectType, aLink, b.ObjectType, bLink, sides.Source.LinkTypeRID, reverse.Source.LinkTypeRID)
	}
	if sides.Target.APIName != bLink || sides.Target.ObjectType != b.ObjectType {
		domain.Invariantf("%s.%s reverses to %s.%s, not %s.%s",
			a.ObjectType, aLink, sides.Target.ObjectType, sides.Target.APIName, b.ObjectType, bLink)
	}
	return sides, aObj, bObj, nil
}

// foreignKeySide reports which side owns the foreign key when exactly one
// side is ONE. The returned flag is false when edges must be asserted
// directly.
func (g graphOps) foreignKeySide(sides domain.LinkSides) (onSource bool, ok bool) {
	if !g.cfg.Strict {
		return false, false
	}
	srcOne := sides.Source.Cardinality == domain.CardinalityOne
	tgtOne := sides.Target.Cardinality == domain.CardinalityOne
	if srcOne == tgtOne {
		return false, false
	}
	owner := sides.Source
	if tgtOne {
		owner = sides.Target
	}
	if owner.ForeignKeyProperty == "" {
		domain.Invariantf("strict mode requires a foreign key on %s.%s", owner.ObjectType, owner.APIName)
	}
	return srcOne, true
}

// link connects a and b. In strict mode a ONE-MANY link is made by writing
// the foreign key, and the rewritten owner is returned.
func (g graphOps) link(a domain.Object, aLink string, b domain.Object, bLink string) (*domain.Object, error) {
	sides, aObj, bObj, err := g.resolvePair(a, aLink, b, bLink)
	if err != nil {
		return nil, err
	}
	onSource, derived := g.foreignKeySide(sides)
	if !derived {
		aLoc, _ := aObj.Locator()
		bLoc, _ := bObj.Locator()
		g.connect(sides, aLoc, bLoc)
		return nil, nil
	}
	owner, other, fk := aObj, bObj, sides.Source.ForeignKeyProperty
	if !onSource {
		owner, other, fk = bObj, aObj, sides.Target.ForeignKeyProperty
	}
	return g.rewriteForeignKey(owner.With(fk, other.PrimaryKey))
}

func (g graphOps) unlink(a domain.Object, aLink string, b domain.Object, bLink string) (*domain.Object, error) {
	sides, aObj, bObj, err := g.resolvePair(a, aLink, b, bLink)
	if err != nil {
		return nil, err
	}
	onSource, derived := g.foreignKeySide(sides)
	if !derived {
		aLoc, _ := aObj.Locator()
		bLoc, _ := bObj.Locator()
		g.disconnect(sides, aLoc, bLoc)
		return nil, nil
	}
	owner, other, fk := aObj, bObj, sides.Source.ForeignKeyProperty
	if !onSource {
		owner, other, fk = bObj, aObj, sides.Target.ForeignKeyProperty
	}
	if current := owner.Properties[fk]; !domain.ValuesEqual(current, other.PrimaryKey) {
		domain.Invariantf("cannot unlink %s.%s: foreign key %s is %v, expected %v",
			owner.ObjectType, fk, fk, current, other.PrimaryKey)
	}
	return g.rewriteForeignKey(owner.With(fk, nil))
}

// rewriteForeignKey replaces the owning side of a derived link and returns
// the object as stored.
func (g graphOps) rewriteForeignKey(owner domain.Object) (*domain.Object, error) {
	updated, err := g.replace(owner)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
