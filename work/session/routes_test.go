package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"iptv-catalog/work/catalog"
)

func TestRoutePath(t *testing.T) {
	cases := []struct {
		route Route
		path  string
	}{
		{Route{Kind: RouteHome}, "/"},
		{Route{Kind: RouteTypeList, Type: catalog.TypeMovies}, "/movies"},
		{Route{Kind: RouteCategory, Type: catalog.TypeChannels, Category: "CANAIS | Esportes"}, "/channels/CANAIS%20%7C%20Esportes"},
		{Route{Kind: RouteSeriesEpisodes, Type: catalog.TypeSeries, Category: "SÉRIES | Drama", Series: "Dark"}, "/series/S%C3%89RIES%20%7C%20Drama/Dark"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.path, tc.route.Path())
	}
}

func TestParsePathRoundTrip(t *testing.T) {
	routes := []Route{
		{Kind: RouteHome},
		{Kind: RouteTypeList, Type: catalog.TypeSeries},
		{Kind: RouteCategory, Type: catalog.TypeMovies, Category: "FILMES | Ação"},
		{Kind: RouteSeriesEpisodes, Type: catalog.TypeSeries, Category: "SÉRIES | Drama", Series: "Breaking Bad"},
	}
	for _, r := range routes {
		assert.Equal(t, r, ParsePath(r.Path()), "path %s", r.Path())
	}
}

func TestParsePathFallsBackToHome(t *testing.T) {
	paths := []string{
		"/radio",                  // unknown type
		"/movies/Drama/Extra",     // series segment outside the series type
		"/series/a/b/c",           // too many segments
		"/channels/bad%zzescape",  // broken escape
		"/SERIES/SÉRIES | Drama",  // type keys are lowercase
	}
	for _, p := range paths {
		assert.Equal(t, Route{Kind: RouteHome}, ParsePath(p), "path %s", p)
	}
}

func TestParsePathEmptyAndSlash(t *testing.T) {
	assert.Equal(t, Route{Kind: RouteHome}, ParsePath(""))
	assert.Equal(t, Route{Kind: RouteHome}, ParsePath("/"))
	assert.Equal(t, Route{Kind: RouteHome}, ParsePath("///"))
}
