package domain

// SecuredObject is the redacted variant of an object registered through the
// security-aware path.
type SecuredObject struct {
	Locator    Locator            `json:"locator"`
	Redacted   Object             `json:"redacted"`
	Securities []PropertySecurity `json:"securities"`
}

// LinkRecord is one directed edge of the link index. Reciprocal edges are
// recorded separately.
type LinkRecord struct {
	Source Locator `json:"source"`
	Link   string  `json:"link"`
	Target Locator `json:"target"`
}

// SeriesRecord is one stored time series.
type SeriesRecord struct {
	ObjectType string            `json:"objectType"`
	Property   string            `json:"property"`
	SeriesID   string            `json:"seriesId"`
	Points     []TimeSeriesPoint `json:"points"`
}

// Snapshot captures a point-in-time copy of store state for fixture export.
// Media bytes stay in the blob store and are not part of the snapshot.
type Snapshot struct {
	Objects    []Object        `json:"objects"`
	Secured    []SecuredObject `json:"secured"`
	Links      []LinkRecord    `json:"links"`
	TimeSeries []SeriesRecord  `json:"timeSeries"`
}
