package search

import (
	"strings"

	"iptv-catalog/work/catalog"
	"iptv-catalog/work/series"
)

// MinTermLength is the shortest search term that actually filters. Anything
// shorter behaves as "no filter" so one or two keystrokes don't blank the
// view.
const MinTermLength = 3

// Normalize trims and lowercases a raw search input.
func Normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Filter returns the channels whose name contains the term,
// case-insensitively. Terms below MinTermLength return the full set. The
// input slice is never mutated; the result is a fresh view over it.
func Filter(items []catalog.ChannelRecord, term string) []catalog.ChannelRecord {
	term = Normalize(term)
	if len(term) < MinTermLength {
		return items
	}
	filtered := make([]catalog.ChannelRecord, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), term) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// FilterSeries applies the same rule at the series-group level: groups whose
// derived series name contains the term survive. Counts reported to the user
// are matching series out of total series, not episodes.
func FilterSeries(groups []*series.Group, term string) []*series.Group {
	term = Normalize(term)
	if len(term) < MinTermLength {
		return groups
	}
	filtered := make([]*series.Group, 0, len(groups))
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.Name), term) {
			filtered = append(filtered, g)
		}
	}
	return filtered
}
