package domain

import (
	"testing"
	"time"
)

func TestSortAndFilterPoints(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC) }
	points := []TimeSeriesPoint{
		{Time: at(3), Value: "c"},
		{Time: at(1), Value: "a1"},
		{Time: at(2), Value: "b"},
		{Time: at(1), Value: "a2"},
	}
	SortPoints(points)
	want := []any{"a1", "a2", "b", "c"}
	for i, p := range points {
		if p.Value != want[i] {
			t.Fatalf("point %d: expected %v, got %v", i, want[i], p.Value)
		}
	}

	start, end := at(1), at(3)
	cases := []struct {
		name   string
		filter PointFilter
		want   int
	}{
		{"all", PointFilter{}, 4},
		{"start inclusive", PointFilter{Start: &end}, 1},
		{"end exclusive", PointFilter{End: &end}, 3},
		{"window", PointFilter{Start: &start, End: &end}, 3},
		{"limit", PointFilter{Limit: 2}, 2},
		{"empty window", PointFilter{Start: &end, End: &start}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterPoints(points, tc.filter)
			if len(got) != tc.want {
				t.Fatalf("expected %d points, got %d", tc.want, len(got))
			}
			if got == nil {
				t.Fatalf("filtered series must not be nil")
			}
		})
	}

	filtered := FilterPoints(points, PointFilter{})
	filtered[0].Value = "mutated"
	if points[0].Value != "a1" {
		t.Fatalf("filter must return a new slice")
	}
}
