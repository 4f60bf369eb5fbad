package core

import (
	"fmt"

	"ontosim/pkg/domain"
)

// ResolveObjectSet flattens an object-set expression into a de-duplicated
// list. Base sets come out in primary key order; other variants keep the
// order of their inputs.
func (s *Store) ResolveObjectSet(set domain.ObjectSet) ([]domain.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locs, err := s.resolve(set)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Object, 0, len(locs))
	for _, loc := range locs {
		if obj, ok := s.state.lookup(loc); ok {
			out = append(out, obj.Clone())
		}
	}
	return out, nil
}

func (s *Store) resolve(set domain.ObjectSet) ([]domain.Locator, error) {
	switch set.Kind {
	case domain.ObjectSetBase:
		if _, err := s.ontology.ObjectType(set.ObjectType); err != nil {
			return nil, err
		}
		var locs []domain.Locator
		for loc := range s.state.objects {
			if loc.ObjectType == set.ObjectType {
				locs = append(locs, loc)
			}
		}
		sortLocators(locs)
		return locs, nil
	case domain.ObjectSetStatic:
		var out []domain.Locator
		seen := make(map[domain.Locator]struct{}, len(set.Locators))
		for _, loc := range set.Locators {
			if _, ok := s.state.lookup(loc); !ok {
				continue
			}
			if _, dup := seen[loc]; dup {
				continue
			}
			seen[loc] = struct{}{}
			out = append(out, loc)
		}
		return out, nil
	case domain.ObjectSetFilter:
		if set.Predicate == nil {
			return nil, &domain.InvalidArgumentError{Detail: "filter set without predicate"}
		}
		inner, err := s.resolveOne(set)
		if err != nil {
			return nil, err
		}
		var out []domain.Locator
		for _, loc := range inner {
			obj, ok := s.state.lookup(loc)
			if ok && set.Predicate(obj.Clone()) {
				out = append(out, loc)
			}
		}
		return out, nil
	case domain.ObjectSetSearchAround:
		inner, err := s.resolveOne(set)
		if err != nil {
			return nil, err
		}
		var out []domain.Locator
		seen := make(map[domain.Locator]struct{})
		for _, src := range inner {
			if _, err := s.ontology.LinkSides(src.ObjectType, set.Link); err != nil {
				return nil, err
			}
			for _, tgt := range s.state.links.targets(src, set.Link) {
				if _, ok := s.state.lookup(tgt); !ok {
					continue
				}
				if _, dup := seen[tgt]; dup {
					continue
				}
				seen[tgt] = struct{}{}
				out = append(out, tgt)
			}
		}
		return out, nil
	case domain.ObjectSetUnion:
		var out []domain.Locator
		seen := make(map[domain.Locator]struct{})
		for _, child := range set.Sets {
			locs, err := s.resolve(child)
			if err != nil {
				return nil, err
			}
			for _, loc := range locs {
				if _, dup := seen[loc]; dup {
					continue
				}
				seen[loc] = struct{}{}
				out = append(out, loc)
			}
		}
		return out, nil
	case domain.ObjectSetIntersect, domain.ObjectSetSubtract:
		if len(set.Sets) == 0 {
			return nil, nil
		}
		first, err := s.resolve(set.Sets[0])
		if err != nil {
			return nil, err
		}
		others := make([]map[domain.Locator]struct{}, 0, len(set.Sets)-1)
		for _, child := range set.Sets[1:] {
			locs, err := s.resolve(child)
			if err != nil {
				return nil, err
			}
			m := make(map[domain.Locator]struct{}, len(locs))
			for _, l := range locs {
				m[l] = struct{}{}
			}
			others = append(others, m)
		}
		var out []domain.Locator
		for _, loc := range first {
			if keep(loc, others, set.Kind == domain.ObjectSetIntersect) {
				out = append(out, loc)
			}
		}
		return out, nil
	default:
		return nil, &domain.InvalidArgumentError{Detail: fmt.Sprintf("unknown object set kind %q", set.Kind)}
	}
}

func (s *Store) resolveOne(set domain.ObjectSet) ([]domain.Locator, error) {
	if len(set.Sets) != 1 {
		return nil, &domain.InvalidArgumentError{Detail: fmt.Sprintf("%s set needs exactly one input", set.Kind)}
	}
	return s.resolve(set.Sets[0])
}

// keep reports whether loc survives intersection (in every other set) or
// subtraction (in none of them).
func keep(loc domain.Locator, others []map[domain.Locator]struct{}, intersect bool) bool {
	for _, m := range others {
		_, in := m[loc]
		if intersect && !in {
			return false
		}
		if !intersect && in {
			return false
		}
	}
	return true
}
