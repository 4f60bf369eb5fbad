package core

import (
	"sort"

	"ontosim/pkg/domain"
)

type securedEntry struct {
	redacted   domain.Object
	securities []domain.PropertySecurity
}

// seriesKey addresses one stored time series.
type seriesKey struct {
	objectType string
	property   string
	seriesID   string
}

// graphState is everything an edit batch may touch. Object values are
// treated as immutable, so clone copies maps and shares values.
type graphState struct {
	objects map[domain.Locator]domain.Object
	secured map[domain.Locator]securedEntry
	links   *linkIndex
	series  map[seriesKey][]domain.TimeSeriesPoint
}

func newGraphState() *graphState {
	return &graphState{
		objects: make(map[domain.Locator]domain.Object),
		secured: make(map[domain.Locator]securedEntry),
		links:   newLinkIndex(),
		series:  make(map[seriesKey][]domain.TimeSeriesPoint),
	}
}

func (g *graphState) clone() *graphState {
	cp := &graphState{
		objects: make(map[domain.Locator]domain.Object, len(g.objects)),
		secured: make(map[domain.Locator]securedEntry, len(g.secured)),
		links:   g.links.clone(),
		series:  make(map[seriesKey][]domain.TimeSeriesPoint, len(g.series)),
	}
	for k, v := range g.objects {
		cp.objects[k] = v
	}
	for k, v := range g.secured {
		cp.secured[k] = v
	}
	for k, v := range g.series {
		cp.series[k] = v
	}
	return cp
}

func (g *graphState) lookup(loc domain.Locator) (domain.Object, bool) {
	obj, ok := g.objects[loc]
	return obj, ok
}

// ofType returns objects of a type ordered by encoded primary key.
func (g *graphState) ofType(objectType string) []domain.Object {
	var keys []domain.Locator
	for loc := range g.objects {
		if loc.ObjectType == objectType {
			keys = append(keys, loc)
		}
	}
	sortLocators(keys)
	out := make([]domain.Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.objects[k].Clone())
	}
	return out
}

// sortLocators orders locators by primary key value, then encoded key.
func sortLocators(keys []domain.Locator) {
	sort.Slice(keys, func(i, j int) bool {
		if c := domain.CompareValues(keys[i].PrimaryKeyValue(), keys[j].PrimaryKeyValue()); c != 0 {
			return c < 0
		}
		return keys[i].Key < keys[j].Key
	})
}

// stateView adapts a graph state to domain.RuleView.
type stateView struct {
	state *graphState
}

func (v stateView) GetObject(objectType string, primaryKey any) (domain.Object, bool) {
	loc, err := domain.NewLocator(objectType, primaryKey)
	if err != nil {
		return domain.Object{}, false
	}
	obj, ok := v.state.lookup(loc)
	if !ok {
		return domain.Object{}, false
	}
	return obj.Clone(), true
}

func (v stateView) ObjectsOfType(objectType string) []domain.Object {
	return v.state.ofType(objectType)
}
