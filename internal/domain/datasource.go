package domain

import (
	"sort"
	"time"
)

// DataSource is a catalog inventory entry: a dataset name together with its
// currently-used segments.
type DataSource struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
	Segments   []Segment         `json:"segments"`
}

// GroupSegments folds segments into inventory entries, preserving the
// first-seen order of dataset names and the input order of segments within
// each dataset.
func GroupSegments(segments []Segment, created map[string]time.Time) []DataSource {
	index := make(map[string]int)
	out := make([]DataSource, 0)
	for _, seg := range segments {
		i, ok := index[seg.DataSource]
		if !ok {
			props := map[string]string{}
			if ts, ok := created[seg.DataSource]; ok && !ts.IsZero() {
				props["created"] = ts.UTC().Format(IntervalTimeFormat)
			}
			out = append(out, DataSource{Name: seg.DataSource, Properties: props, Segments: []Segment{}})
			i = len(out) - 1
			index[seg.DataSource] = i
		}
		out[i].Segments = append(out[i].Segments, seg)
	}
	return out
}

// SortSegments orders segments by interval start, then identifier.
func SortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		a, b := segments[i], segments[j]
		if !a.Interval.Start.Equal(b.Interval.Start) {
			return a.Interval.Start.Before(b.Interval.Start)
		}
		return a.Identifier() < b.Identifier()
	})
}
