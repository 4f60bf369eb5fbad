package domain

import (
	"sort"
	"time"
)

// TimeSeriesPoint is one timestamped value of a series.
type TimeSeriesPoint struct {
	Time  time.Time `json:"time" yaml:"time"`
	Value any       `json:"value" yaml:"value"`
}

// PointFilter narrows a series read. Start is inclusive, End exclusive. A
// positive Limit keeps the first Limit points after range filtering.
type PointFilter struct {
	Start *time.Time
	End   *time.Time
	Limit int
}

// SortPoints orders points by time, keeping insertion order for ties.
func SortPoints(points []TimeSeriesPoint) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
}

// FilterPoints applies a filter to an ordered series and returns a new slice.
func FilterPoints(points []TimeSeriesPoint, f PointFilter) []TimeSeriesPoint {
	out := make([]TimeSeriesPoint, 0, len(points))
	for _, p := range points {
		if f.Start != nil && p.Time.Before(*f.Start) {
			continue
		}
		if f.End != nil && !p.Time.Before(*f.End) {
			continue
		}
		out = append(out, p)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// MediaMetadata describes stored media content.
type MediaMetadata struct {
	MediaType string `json:"mediaType"`
	SizeBytes int64  `json:"sizeBytes"`
	Path      string `json:"path,omitempty"`
}

// MediaReference is the value a mediaReference property holds.
type MediaReference struct {
	MimeType     string `json:"mimeType"`
	MediaSetRID  string `json:"mediaSetRid"`
	MediaItemRID string `json:"mediaItemRid"`
}

// MediaItem pairs media content with its metadata.
type MediaItem struct {
	Reference MediaReference
	Metadata  MediaMetadata
	Content   []byte
}
