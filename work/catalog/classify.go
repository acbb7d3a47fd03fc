package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/grafana/regexp"
)

// Version tag stamped into every generated summary document.
const Version = "2.0"

// Category name prefixes decide which type a category belongs to. Matching is
// case-insensitive and tolerant of spacing around the pipe ("FILMES |" and
// "FILMES|" both match). First match wins; anything unmatched lands in the
// channels group, same as the playlists this server was built for.
var typeRules = []struct {
	key string
	re  *regexp.Regexp
}{
	{TypeChannels, regexp.MustCompile(`(?i)^CANAIS\s*\|`)},
	{TypeMovies, regexp.MustCompile(`(?i)^FILMES\s*\|`)},
	{TypeSeries, regexp.MustCompile(`(?i)^S[ÉE]RIES\s*\|`)},
}

// slugRe rewrites every byte outside [a-z0-9] to an underscore. Distinct
// category names can collide on the same slug; the last writer wins.
var slugRe = regexp.MustCompile(`[^a-z0-9]`)

// Slugify derives the filesystem-safe key used for shard file names and
// channel IDs.
func Slugify(name string) string {
	return slugRe.ReplaceAllString(strings.ToLower(name), "_")
}

// Classify returns the type key for a category name.
func Classify(name string) string {
	for _, rule := range typeRules {
		if rule.re.MatchString(name) {
			return rule.key
		}
	}
	return TypeChannels
}

// Build turns the parser's raw groups into a fully sorted, classified catalog:
// empty categories are dropped, channels and categories are ordered with the
// locale collator, each category is assigned to exactly one type group and the
// aggregate counts are computed. The result is what the store persists.
func Build(groups []RawGroup, now time.Time) *Catalog {
	coll := NewCollator()

	kept := make([]Category, 0, len(groups))
	total := 0
	for _, g := range groups {
		if len(g.Channels) == 0 {
			continue
		}
		channels := append([]ChannelRecord(nil), g.Channels...)
		sort.SliceStable(channels, func(i, j int) bool {
			return coll.Less(channels[i].Name, channels[j].Name)
		})
		kept = append(kept, Category{
			Name:         g.Name,
			Channels:     channels,
			ChannelCount: len(channels),
		})
		total += len(channels)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return coll.Less(kept[i].Name, kept[j].Name)
	})

	refs := make([]CategoryRef, len(kept))
	for i, c := range kept {
		refs[i] = CategoryRef{
			Name:         c.Name,
			FileName:     Slugify(c.Name) + ".json",
			ChannelCount: c.ChannelCount,
		}
	}

	byType := map[string][]CategoryRef{}
	for _, ref := range refs {
		key := Classify(ref.Name)
		byType[key] = append(byType[key], ref)
	}
	for _, key := range Types {
		list := byType[key]
		sort.SliceStable(list, func(i, j int) bool {
			return coll.Less(list[i].Name, list[j].Name)
		})
		byType[key] = list
	}

	summary := Summary{
		LastUpdated:     now,
		TotalChannels:   total,
		TotalCategories: len(kept),
		Version:         Version,
		LazyLoading:     true,
		Sorting: SortingInfo{
			Enabled:     true,
			Description: "Ordenação alfabética ativa para categorias e canais",
			Locale:      "pt-BR",
		},
	}

	return &Catalog{
		Summary: summary,
		Grouped: Grouped{
			Channels:    makeTypeGroup("Canais", "Canais de TV, rádio e transmissões ao vivo", byType[TypeChannels]),
			Movies:      makeTypeGroup("Filmes", "Filmes, documentários e produções cinematográficas", byType[TypeMovies]),
			Series:      makeTypeGroup("Séries", "Séries, novelas e programas de TV", byType[TypeSeries]),
			LastUpdated: now,
		},
		List: CategoryList{
			Categories:      refs,
			TotalCategories: len(refs),
			LastUpdated:     now,
			Sorted:          true,
		},
		Categories: kept,
	}
}

func makeTypeGroup(label, description string, refs []CategoryRef) TypeGroup {
	channels := 0
	for _, ref := range refs {
		channels += ref.ChannelCount
	}
	if refs == nil {
		refs = []CategoryRef{}
	}
	return TypeGroup{
		Label:           label,
		Description:     description,
		Categories:      refs,
		TotalCategories: len(refs),
		TotalChannels:   channels,
	}
}
