package series

import (
	"sort"
	"strconv"

	"github.com/grafana/regexp"

	"iptv-catalog/work/catalog"
)

// Episode names follow "Title - SxxEyy[ - Episode title]". Channels that do
// not match the pattern are not episodes and stay out of series grouping.
var (
	seriesNameRe = regexp.MustCompile(`^(.+?)\s*-\s*S\d+E\d+`)
	episodeNumRe = regexp.MustCompile(`S(\d+)E(\d+)`)
)

// Group aggregates the episodes of one series inside the current category
// view. Groups are derived client-side on every (re)load and never persisted.
type Group struct {
	Name          string
	Episodes      []catalog.ChannelRecord
	Logo          string
	TotalEpisodes int
}

// ParseName extracts the series title from a channel name. ok is false when
// the name does not carry a season/episode marker.
func ParseName(name string) (title string, ok bool) {
	m := seriesNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// EpisodeNumber extracts the season and episode numbers from a channel name.
func EpisodeNumber(name string) (season, episode int, ok bool) {
	m := episodeNumRe.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	season, _ = strconv.Atoi(m[1])
	episode, _ = strconv.Atoi(m[2])
	return season, episode, true
}

// GroupChannels buckets episode channels by series title. The returned map is
// keyed by series name for cache lookups; the slice carries the same groups
// sorted by name with the catalog collator. Non-matching channels are
// silently excluded. The logo comes from the first episode seen.
func GroupChannels(channels []catalog.ChannelRecord) (map[string]*Group, []*Group) {
	byName := map[string]*Group{}
	var order []*Group

	for _, ch := range channels {
		title, ok := ParseName(ch.Name)
		if !ok {
			continue
		}
		g, exists := byName[title]
		if !exists {
			g = &Group{Name: title, Logo: ch.Logo}
			byName[title] = g
			order = append(order, g)
		}
		g.Episodes = append(g.Episodes, ch)
		g.TotalEpisodes++
	}

	coll := catalog.NewCollator()
	sort.SliceStable(order, func(i, j int) bool {
		return coll.Less(order[i].Name, order[j].Name)
	})
	return byName, order
}

// SortEpisodes orders episodes by season then episode number, numerically, so
// E2 comes before E10. Names without a marker fall back to collator order at
// the end of the comparison chain.
func SortEpisodes(episodes []catalog.ChannelRecord) []catalog.ChannelRecord {
	sorted := append([]catalog.ChannelRecord(nil), episodes...)
	coll := catalog.NewCollator()
	sort.SliceStable(sorted, func(i, j int) bool {
		si, ei, iok := EpisodeNumber(sorted[i].Name)
		sj, ej, jok := EpisodeNumber(sorted[j].Name)
		if iok && jok {
			if si != sj {
				return si < sj
			}
			if ei != ej {
				return ei < ej
			}
			return false
		}
		return coll.Less(sorted[i].Name, sorted[j].Name)
	})
	return sorted
}
