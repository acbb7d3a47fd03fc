package catalog

import "time"

// Type keys for the three top-level content kinds. These double as API path
// segments and as JSON field names in the grouped document.
const (
	TypeChannels = "channels"
	TypeMovies   = "movies"
	TypeSeries   = "series"
)

// Types lists the recognised type keys in display order.
var Types = []string{TypeChannels, TypeMovies, TypeSeries}

// ChannelRecord is a single playable entry extracted from the playlist.
// Records are created by the parser and immutable afterwards; the ID is
// deterministic from the category slug plus the file-wide ordinal.
type ChannelRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	URL    string `json:"url"`
	Active bool   `json:"isActive"`
}

// RawGroup is the parser's transient grouping of records under the raw
// group-title label, in first-seen order. The classifier turns these into
// Categories.
type RawGroup struct {
	Name     string
	Channels []ChannelRecord
}

// Category is a named, non-empty bucket of channels sharing a group label.
// Channels are sorted by name with the locale collator.
type Category struct {
	Name         string          `json:"name"`
	Channels     []ChannelRecord `json:"channels"`
	ChannelCount int             `json:"channelCount"`
}

// CategoryRef points at a persisted category shard without carrying its
// channel payload.
type CategoryRef struct {
	Name         string `json:"name"`
	FileName     string `json:"fileName"`
	ChannelCount int    `json:"channelCount"`
}

// TypeGroup aggregates the categories classified under one content type.
type TypeGroup struct {
	Label           string        `json:"name"`
	Description     string        `json:"description"`
	Categories      []CategoryRef `json:"categories"`
	TotalCategories int           `json:"totalCategories"`
	TotalChannels   int           `json:"totalChannels"`
}

// Grouped is the per-type aggregate document served by /api/grouped-categories.
type Grouped struct {
	Channels    TypeGroup `json:"channels"`
	Movies      TypeGroup `json:"movies"`
	Series      TypeGroup `json:"series"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ByType returns the group for a recognised type key.
func (g *Grouped) ByType(t string) (TypeGroup, bool) {
	switch t {
	case TypeChannels:
		return g.Channels, true
	case TypeMovies:
		return g.Movies, true
	case TypeSeries:
		return g.Series, true
	}
	return TypeGroup{}, false
}

// SortingInfo documents the sort order applied to the catalog.
type SortingInfo struct {
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	Locale      string `json:"locale"`
}

// Summary is the top-level manifest. It is regenerated wholesale on every
// upload; there is no incremental merge.
type Summary struct {
	LastUpdated     time.Time   `json:"lastUpdated"`
	TotalChannels   int         `json:"totalChannels"`
	TotalCategories int         `json:"totalCategories"`
	Version         string      `json:"version"`
	LazyLoading     bool        `json:"lazyLoading"`
	Sorting         SortingInfo `json:"sorting"`
}

// CategoryList is the flat category index served by /api/categories.
type CategoryList struct {
	Categories      []CategoryRef `json:"categories"`
	TotalCategories int           `json:"totalCategories"`
	LastUpdated     time.Time     `json:"lastUpdated"`
	Sorted          bool          `json:"sorted"`
}

// Catalog is the complete classification result for one upload: the summary,
// the per-type aggregate, the flat index and every category payload, sorted
// and ready to persist.
type Catalog struct {
	Summary    Summary
	Grouped    Grouped
	List       CategoryList
	Categories []Category
}
