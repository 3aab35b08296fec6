package model

import (
	"sort"
	"strconv"
	"strings"
)

// SortedByPeriod returns a copy of s ordered by numeric period. Periods that
// do not parse as integers sort before all numeric ones, and ties keep their
// fetch order.
func (s Series) SortedByPeriod(descending bool) Series {
	sorted := make(Series, len(s))
	copy(sorted, s)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, okA := PeriodKey(sorted[i].Period)
		b, okB := PeriodKey(sorted[j].Period)
		if okA != okB {
			return !okA
		}
		if descending {
			return a > b
		}
		return a < b
	})
	return sorted
}

// Latest expects s sorted descending by period and returns the first
// observation carrying a value.
func (s Series) Latest() (Observation, bool) {
	for _, observation := range s {
		if observation.HasValue() {
			return observation, true
		}
	}
	return Observation{}, false
}

func (s Series) NonNull() Series {
	filtered := make(Series, 0, len(s))
	for _, observation := range s {
		if observation.HasValue() {
			filtered = append(filtered, observation)
		}
	}
	return filtered
}

func PeriodKey(period string) (int, bool) {
	trimmed := strings.TrimSpace(period)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}
	return value, true
}
