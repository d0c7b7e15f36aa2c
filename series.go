package vo2trend

import (
	"sort"
	"time"
)

// SeriesPoint is one charted VO2 Max observation.
type SeriesPoint struct {
	Time     time.Time `json:"time"`
	Value    float64   `json:"vo2_max"`
	Category Category  `json:"category"`
}

// Series is the time-ordered VO2 Max series.
type Series struct {
	Points []SeriesPoint
	// NoMetric counts activities dropped because their metric was not positive.
	NoMetric int
	// MissingTime counts activities with a metric but no start time.
	MissingTime int
}

// Empty reports the "nothing to display" condition. It is not an error.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// Group is the subset of a series sharing one category.
type Group struct {
	Category Category
	Color    Color
	Points   []SeriesPoint
}

// Groups splits the series by category in first-seen order; each group
// keeps the series ordering.
func (s Series) Groups() []Group {
	index := make(map[Category]int)
	groups := make([]Group, 0, 4)
	for _, pt := range s.Points {
		i, ok := index[pt.Category]
		if !ok {
			i = len(groups)
			index[pt.Category] = i
			groups = append(groups, Group{Category: pt.Category, Color: pt.Category.Color()})
		}
		groups[i].Points = append(groups[i].Points, pt)
	}
	return groups
}

// BuildSeries keeps the activities with a positive metric and a start time
// and orders them by start time. Ties keep input order.
func BuildSeries(activities []Activity) Series {
	var s Series
	kept := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if !a.HasMetric() {
			s.NoMetric++
			continue
		}
		if a.StartTime.IsZero() {
			s.MissingTime++
			continue
		}
		kept = append(kept, a)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].StartTime.Before(kept[j].StartTime)
	})

	s.Points = make([]SeriesPoint, 0, len(kept))
	for _, a := range kept {
		s.Points = append(s.Points, SeriesPoint{
			Time:     a.StartTime,
			Value:    a.Metric,
			Category: a.Category,
		})
	}
	return s
}
