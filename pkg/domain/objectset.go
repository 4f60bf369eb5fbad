package domain

// ObjectSetKind tags the variant of an object-set expression.
type ObjectSetKind string

// Object-set variants.
const (
	ObjectSetBase         ObjectSetKind = "base"
	ObjectSetStatic       ObjectSetKind = "static"
	ObjectSetFilter       ObjectSetKind = "filter"
	ObjectSetUnion        ObjectSetKind = "union"
	ObjectSetIntersect    ObjectSetKind = "intersect"
	ObjectSetSubtract     ObjectSetKind = "subtract"
	ObjectSetSearchAround ObjectSetKind = "searchAround"
)

// ObjectSet is a composable description of a subset of objects. Only the
// fields relevant to Kind are set; construct values with the helpers below.
type ObjectSet struct {
	Kind       ObjectSetKind
	ObjectType string
	Locators   []Locator
	Link       string
	Predicate  func(Object) bool
	Sets       []ObjectSet
}

// BaseSet selects every object of a type.
func BaseSet(objectType string) ObjectSet {
	return ObjectSet{Kind: ObjectSetBase, ObjectType: objectType}
}

// StaticSet selects the listed objects in order.
func StaticSet(locators ...Locator) ObjectSet {
	return ObjectSet{Kind: ObjectSetStatic, Locators: append([]Locator(nil), locators...)}
}

// Where narrows the set with a predicate.
func (s ObjectSet) Where(pred func(Object) bool) ObjectSet {
	return ObjectSet{Kind: ObjectSetFilter, Predicate: pred, Sets: []ObjectSet{s}}
}

// SearchAround follows a link from every object in the set.
func (s ObjectSet) SearchAround(link string) ObjectSet {
	return ObjectSet{Kind: ObjectSetSearchAround, Link: link, Sets: []ObjectSet{s}}
}

// Union combines sets keeping first-seen order.
func (s ObjectSet) Union(others ...ObjectSet) ObjectSet {
	return ObjectSet{Kind: ObjectSetUnion, Sets: append([]ObjectSet{s}, others...)}
}

// Intersect keeps objects present in every set.
func (s ObjectSet) Intersect(others ...ObjectSet) ObjectSet {
	return ObjectSet{Kind: ObjectSetIntersect, Sets: append([]ObjectSet{s}, others...)}
}

// Subtract removes objects present in any of the other sets.
func (s ObjectSet) Subtract(others ...ObjectSet) ObjectSet {
	return ObjectSet{Kind: ObjectSetSubtract, Sets: append([]ObjectSet{s}, others...)}
}

// SortDirection orders an order clause.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// OrderClause orders objects by a property.
type OrderClause struct {
	Field     string
	Direction SortDirection
}

// DefaultPageSize is used when a request does not set a page size.
const DefaultPageSize = 1000

// LoadObjectsRequest controls ordering, paging and projection of an object
// set page.
type LoadObjectsRequest struct {
	OrderBy                []OrderClause
	PageSize               int
	PageToken              string
	Select                 []string
	ExcludeRID             bool
	LoadPropertySecurities bool
}

// ObjectPage is one page of a resolved object set.
type ObjectPage struct {
	Data               []Object             `json:"data"`
	NextPageToken      string               `json:"nextPageToken,omitempty"`
	TotalCount         int                  `json:"totalCount"`
	PropertySecurities [][]PropertySecurity `json:"propertySecurities,omitempty"`
}

// PropertySecurityKind classifies a property security descriptor.
type PropertySecurityKind string

// Property security descriptor kinds.
const (
	SecurityPropertySecurity  PropertySecurityKind = "propertySecurity"
	SecurityUnsupportedPolicy PropertySecurityKind = "unsupportedPolicy"
	SecurityErrorComputing    PropertySecurityKind = "errorComputingSecurity"
)

// PropertySecurity describes the security applied to one property of a
// redacted object.
type PropertySecurity struct {
	Property string               `json:"property" yaml:"property"`
	Kind     PropertySecurityKind `json:"type" yaml:"type"`
	Markings []string             `json:"markings,omitempty" yaml:"markings,omitempty"`
}
