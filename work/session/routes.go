package session

import (
	"net/url"
	"strings"

	"iptv-catalog/work/catalog"
)

// RouteKind enumerates the navigation states a session can be in. The player
// overlay is orthogonal and not part of the route.
type RouteKind int

const (
	RouteHome RouteKind = iota
	RouteTypeList
	RouteCategory
	RouteSeriesEpisodes
)

// Route is the navigable position: what the address bar mirrors and what a
// replayed history entry reconstructs the session from.
type Route struct {
	Kind     RouteKind
	Type     string // catalog type key, set for every non-home kind
	Category string // set for category and series-episode views
	Series   string // set for series-episode views only
}

// Path encodes the route for the address bar. Category and series names are
// URL-escaped since playlists put anything in them.
func (r Route) Path() string {
	switch r.Kind {
	case RouteTypeList:
		return "/" + r.Type
	case RouteCategory:
		return "/" + r.Type + "/" + url.PathEscape(r.Category)
	case RouteSeriesEpisodes:
		return "/" + r.Type + "/" + url.PathEscape(r.Category) + "/" + url.PathEscape(r.Series)
	default:
		return "/"
	}
}

// ParsePath derives a route from an address-bar path. Anything that does not
// map onto a reconstructable state — unknown type keys, a series segment
// outside the series type, too many segments — falls back to home.
func ParsePath(path string) Route {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return Route{Kind: RouteHome}
	}

	segs := strings.Split(trimmed, "/")
	if !validType(segs[0]) {
		return Route{Kind: RouteHome}
	}

	switch len(segs) {
	case 1:
		return Route{Kind: RouteTypeList, Type: segs[0]}
	case 2:
		category, err := url.PathUnescape(segs[1])
		if err != nil {
			return Route{Kind: RouteHome}
		}
		return Route{Kind: RouteCategory, Type: segs[0], Category: category}
	case 3:
		if segs[0] != catalog.TypeSeries {
			return Route{Kind: RouteHome}
		}
		category, cerr := url.PathUnescape(segs[1])
		name, serr := url.PathUnescape(segs[2])
		if cerr != nil || serr != nil {
			return Route{Kind: RouteHome}
		}
		return Route{Kind: RouteSeriesEpisodes, Type: segs[0], Category: category, Series: name}
	default:
		return Route{Kind: RouteHome}
	}
}

func validType(t string) bool {
	for _, known := range catalog.Types {
		if t == known {
			return true
		}
	}
	return false
}
