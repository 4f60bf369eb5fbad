package core

import (
	"fmt"
	"sort"

	"ontosim/pkg/domain"
)

// propertyOfType resolves a declared property and checks its type.
func (s *Store) propertyOfType(objectType, property string, want domain.PropertyType) error {
	def, err := s.ontology.ObjectType(objectType)
	if err != nil {
		return err
	}
	prop, ok := def.Property(property)
	if !ok {
		return &domain.PropertyError{ObjectType: objectType, Property: property, Expected: want}
	}
	if prop.Type != want {
		return &domain.PropertyError{ObjectType: objectType, Property: property, Expected: want, Actual: prop.Type}
	}
	return nil
}

// RegisterTimeSeriesData stores points for an object's time-series
// property. The object's property value must name seriesID; when the
// property is unset it is set to seriesID.
func (s *Store) RegisterTimeSeriesData(objectType string, primaryKey any, property, seriesID string, points []domain.TimeSeriesPoint) error {
	if err := s.propertyOfType(objectType, property, domain.PropertyTimeSeries); err != nil {
		return err
	}
	if seriesID == "" {
		return &domain.InvalidArgumentError{Detail: "series id required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, err := domain.NewLocator(objectType, primaryKey)
	if err != nil {
		return &domain.InvalidArgumentError{Detail: err.Error()}
	}
	obj, ok := s.state.lookup(loc)
	if !ok {
		return domain.ObjectNotFound(objectType, primaryKey)
	}
	switch current := obj.Properties[property].(type) {
	case nil:
		s.state.objects[loc] = obj.With(property, seriesID)
	case string:
		if current != seriesID {
			return &domain.PropertyError{ObjectType: objectType, Property: property,
				Detail: fmt.Sprintf("object references series %s, not %s", current, seriesID)}
		}
	default:
		return &domain.PropertyError{ObjectType: objectType, Property: property,
			Detail: fmt.Sprintf("series reference has type %T", current)}
	}
	sorted := append([]domain.TimeSeriesPoint(nil), points...)
	domain.SortPoints(sorted)
	s.state.series[seriesKey{objectType: objectType, property: property, seriesID: seriesID}] = sorted
	return nil
}

// GetTimeSeriesData returns the object's series narrowed by filter.
func (s *Store) GetTimeSeriesData(objectType string, primaryKey any, property string, filter domain.PointFilter) ([]domain.TimeSeriesPoint, error) {
	points, err := s.series(objectType, primaryKey, property)
	if err != nil {
		return nil, err
	}
	return domain.FilterPoints(points, filter), nil
}

// GetFirstPoint returns the earliest point of the series.
func (s *Store) GetFirstPoint(objectType string, primaryKey any, property string) (domain.TimeSeriesPoint, error) {
	points, err := s.series(objectType, primaryKey, property)
	if err != nil {
		return domain.TimeSeriesPoint{}, err
	}
	if len(points) == 0 {
		return domain.TimeSeriesPoint{}, &domain.NotFoundError{Kind: "time series point", ObjectType: objectType, PrimaryKey: primaryKey, Detail: property}
	}
	return points[0], nil
}

// GetLastPoint returns the latest point of the series.
func (s *Store) GetLastPoint(objectType string, primaryKey any, property string) (domain.TimeSeriesPoint, error) {
	points, err := s.series(objectType, primaryKey, property)
	if err != nil {
		return domain.TimeSeriesPoint{}, err
	}
	if len(points) == 0 {
		return domain.TimeSeriesPoint{}, &domain.NotFoundError{Kind: "time series point", ObjectType: objectType, PrimaryKey: primaryKey, Detail: property}
	}
	return points[len(points)-1], nil
}

func (s *Store) series(objectType string, primaryKey any, property string) ([]domain.TimeSeriesPoint, error) {
	if err := s.propertyOfType(objectType, property, domain.PropertyTimeSeries); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, err := domain.NewLocator(objectType, primaryKey)
	if err != nil {
		return nil, &domain.InvalidArgumentError{Detail: err.Error()}
	}
	obj, ok := s.state.lookup(loc)
	if !ok {
		return nil, domain.ObjectNotFound(objectType, primaryKey)
	}
	id, ok := obj.Properties[property].(string)
	if !ok || id == "" {
		return nil, &domain.NotFoundError{Kind: "time series", ObjectType: objectType, PrimaryKey: primaryKey, Detail: property}
	}
	points, ok := s.state.series[seriesKey{objectType: objectType, property: property, seriesID: id}]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "time series", ObjectType: objectType, PrimaryKey: primaryKey, Detail: id}
	}
	return append([]domain.TimeSeriesPoint(nil), points...), nil
}

func sortedSeriesKeys(m map[seriesKey][]domain.TimeSeriesPoint) []seriesKey {
	keys := make([]seriesKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].objectType != keys[j].objectType {
			return keys[i].objectType < keys[j].objectType
		}
		if keys[i].property != keys[j].property {
			return keys[i].property < keys[j].property
		}
		return keys[i].seriesID < keys[j].seriesID
	})
	return keys
}
