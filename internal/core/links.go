package core

import (
	"sort"

	"ontosim/pkg/domain"
)

// locatorSet is an insertion-ordered set of locators.
type locatorSet struct {
	order []domain.Locator
	index map[domain.Locator]int
}

func newLocatorSet() *locatorSet {
	return &locatorSet{index: make(map[domain.Locator]int)}
}

func (s *locatorSet) add(l domain.Locator) bool {
	if _, ok := s.index[l]; ok {
		return false
	}
	s.index[l] = len(s.order)
	s.order = append(s.order, l)
	return true
}

func (s *locatorSet) remove(l domain.Locator) bool {
	pos, ok := s.index[l]
	if !ok {
		return false
	}
	s.order = append(s.order[:pos:pos], s.order[pos+1:]...)
	delete(s.index, l)
	for i := pos; i < len(s.order); i++ {
		s.index[s.order[i]] = i
	}
	return true
}

func (s *locatorSet) has(l domain.Locator) bool {
	_, ok := s.index[l]
	return ok
}

func (s *locatorSet) list() []domain.Locator {
	return append([]domain.Locator(nil), s.order...)
}

func (s *locatorSet) clone() *locatorSet {
	cp := &locatorSet{order: append([]domain.Locator(nil), s.order...), index: make(map[domain.Locator]int, len(s.index))}
	for k, v := range s.index {
		cp.index[k] = v
	}
	return cp
}

// linkIndex holds directed edges. ONE sides map to a single target, MANY
// sides to an ordered set. Reciprocal maintenance is the caller's job.
type linkIndex struct {
	one  map[domain.Locator]map[string]domain.Locator
	many map[domain.Locator]map[string]*locatorSet
}

func newLinkIndex() *linkIndex {
	return &linkIndex{
		one:  make(map[domain.Locator]map[string]domain.Locator),
		many: make(map[domain.Locator]map[string]*locatorSet),
	}
}

func (x *linkIndex) clone() *linkIndex {
	cp := newLinkIndex()
	for src, links := range x.one {
		inner := make(map[string]domain.Locator, len(links))
		for name, tgt := range links {
			inner[name] = tgt
		}
		cp.one[src] = inner
	}
	for src, links := range x.many {
		inner := make(map[string]*locatorSet, len(links))
		for name, set := range links {
			inner[name] = set.clone()
		}
		cp.many[src] = inner
	}
	return cp
}

func (x *linkIndex) oneTarget(src domain.Locator, link string) (domain.Locator, bool) {
	tgt, ok := x.one[src][link]
	return tgt, ok
}

func (x *linkIndex) setOne(src domain.Locator, link string, tgt domain.Locator) {
	links, ok := x.one[src]
	if !ok {
		links = make(map[string]domain.Locator)
		x.one[src] = links
	}
	links[link] = tgt
}

// removeOne deletes a ONE edge after asserting it points at expected.
func (x *linkIndex) removeOne(src domain.Locator, link string, expected domain.Locator) {
	current, ok := x.one[src][link]
	if !ok {
		domain.Invariantf("no %s edge from %s, expected one to %s", link, src, expected)
	}
	if current != expected {
		domain.Invariantf("%s edge from %s points at %s, expected %s", link, src, current, expected)
	}
	delete(x.one[src], link)
	if len(x.one[src]) == 0 {
		delete(x.one, src)
	}
}

func (x *linkIndex) addMany(src domain.Locator, link string, tgt domain.Locator) {
	links, ok := x.many[src]
	if !ok {
		links = make(map[string]*locatorSet)
		x.many[src] = links
	}
	set, ok := links[link]
	if !ok {
		set = newLocatorSet()
		links[link] = set
	}
	set.add(tgt)
}

// removeMany deletes a MANY edge after asserting it exists.
func (x *linkIndex) removeMany(src domain.Locator, link string, tgt domain.Locator) {
	set, ok := x.many[src][link]
	if !ok || !set.remove(tgt) {
		domain.Invariantf("no %s edge from %s to %s", link, src, tgt)
	}
	if len(set.order) == 0 {
		delete(x.many[src], link)
	}
	if len(x.many[src]) == 0 {
		delete(x.many, src)
	}
}

func (x *linkIndex) hasEdge(def domain.LinkDefinition, src, tgt domain.Locator) bool {
	if def.Cardinality == domain.CardinalityOne {
		current, ok := x.oneTarget(src, def.APIName)
		return ok && current == tgt
	}
	set, ok := x.many[src][def.APIName]
	return ok && set.has(tgt)
}

func (x *linkIndex) targets(src domain.Locator, link string) []domain.Locator {
	if tgt, ok := x.one[src][link]; ok {
		return []domain.Locator{tgt}
	}
	if set, ok := x.many[src][link]; ok {
		return set.list()
	}
	return nil
}

// outgoing lists every edge leaving src, ordered by link name.
func (x *linkIndex) outgoing(src domain.Locator) []domain.LinkRecord {
	var out []domain.LinkRecord
	for name, tgt := range x.one[src] {
		out = append(out, domain.LinkRecord{Source: src, Link: name, Target: tgt})
	}
	for name, set := range x.many[src] {
		for _, tgt := range set.order {
			out = append(out, domain.LinkRecord{Source: src, Link: name, Target: tgt})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Link < out[j].Link })
	return out
}

// records lists every directed edge in deterministic order.
func (x *linkIndex) records() []domain.LinkRecord {
	seen := make(map[domain.Locator]struct{}, len(x.one)+len(x.many))
	var sources []domain.Locator
	for src := range x.one {
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	for src := range x.many {
		if _, ok := seen[src]; !ok {
			sources = append(sources, src)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].String() < sources[j].String() })
	var out []domain.LinkRecord
	for _, src := range sources {
		out = append(out, x.outgoing(src)...)
	}
	return out
}
