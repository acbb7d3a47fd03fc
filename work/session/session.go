package session

import (
	"fmt"

	"github.com/rs/zerolog"

	"iptv-catalog/work/catalog"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/render"
	"iptv-catalog/work/search"
	"iptv-catalog/work/series"
)

// CatalogAPI is what the session fetches catalog data through. The HTTP
// client in work/client satisfies it; tests use a fake.
type CatalogAPI interface {
	Grouped() (*catalog.Grouped, error)
	TypeCategories(t string) (*catalog.TypeGroup, error)
	CategoryChannels(name string) (*catalog.Category, error)
}

// Player is the external playback engine: an opaque consumer of stream URLs.
// Stop must release the previous stream deterministically; the session always
// stops before loading a new source.
type Player interface {
	Play(url string) error
	Stop()
}

// View is the rendering surface the session drives. It embeds render.Sink so
// the incremental renderer can append channel batches to the same surface.
type View interface {
	render.Sink
	ShowHome(g *catalog.Grouped)
	ShowTypeList(g *catalog.TypeGroup)
	ShowSeriesGroups(groups []*series.Group)
	ShowEpisodes(name string, episodes []catalog.ChannelRecord)
	SetResultCount(matching, total int)
}

// History mirrors the current route into the address bar.
type History interface {
	Push(path string)
}

// Overlay is the blocking loading indicator: shown before every fetch and
// hidden when it settles, on success and failure alike.
type Overlay interface {
	Show(message string)
	Hide()
}

// Notifier surfaces transient, non-blocking messages (toasts).
type Notifier interface {
	Toast(kind, message string)
}

// Session is the client-side catalog browsing state machine. It owns all
// mutable navigation state — current route, loaded and filtered item sets,
// search term, series cache — and every mutation goes through its transition
// methods. One instance per browser session; single-goroutine by contract.
type Session struct {
	api      CatalogAPI
	player   Player
	view     View
	history  History
	overlay  Overlay
	notify   Notifier
	renderer *render.Renderer
	log      zerolog.Logger

	route        Route
	allItems     []catalog.ChannelRecord
	filtered     []catalog.ChannelRecord
	searchTerm   string
	seriesByName map[string]*series.Group
	seriesList   []*series.Group
	playerActive bool
}

// New wires a session to its collaborators. The trigger is the viewport
// sentinel driving lazy pagination; it calls back into the renderer.
func New(api CatalogAPI, player Player, view View, trigger render.Trigger, history History, overlay Overlay, notify Notifier) *Session {
	return &Session{
		api:      api,
		player:   player,
		view:     view,
		history:  history,
		overlay:  overlay,
		notify:   notify,
		renderer: render.New(view, trigger),
		log:      logger.WithComponent("session"),
		route:    Route{Kind: RouteHome},
	}
}

// Route returns the current navigation position.
func (s *Session) Route() Route { return s.route }

// PlayerActive reports whether the playback overlay currently holds a stream.
func (s *Session) PlayerActive() bool { return s.playerActive }

// SearchTerm returns the raw active search input.
func (s *Session) SearchTerm() string { return s.searchTerm }

// Filtered exposes the active filtered item view (channels and movies only).
func (s *Session) Filtered() []catalog.ChannelRecord { return s.filtered }

// Home tears the session down to the landing view: playback stopped, item
// sets and search cleared, stale pagination trigger disconnected, then the
// type cards are reloaded.
func (s *Session) Home() error {
	return s.home(true)
}

func (s *Session) home(push bool) error {
	s.stopPlayback()
	s.allItems = nil
	s.filtered = nil
	s.searchTerm = ""
	s.clearSeriesCache()
	s.renderer.Reset(nil)
	s.route = Route{Kind: RouteHome}
	if push {
		s.history.Push(s.route.Path())
	}

	var grouped *catalog.Grouped
	err := s.withOverlay("Loading categories...", func() error {
		g, err := s.api.Grouped()
		if err != nil {
			return err
		}
		grouped = g
		return nil
	})
	if err != nil {
		// stay on home with empty cards; the user may simply not have
		// uploaded a playlist yet
		s.view.ShowHome(&catalog.Grouped{})
		s.notify.Toast("error", "Failed to load catalog data. Upload an M3U file first.")
		return err
	}
	s.view.ShowHome(grouped)
	return nil
}

// OpenType moves home -> type-list, fetching the type's category list.
func (s *Session) OpenType(t string) error {
	return s.openType(t, true)
}

func (s *Session) openType(t string, push bool) error {
	if !validType(t) {
		return fmt.Errorf("unknown category type %q", t)
	}
	var group *catalog.TypeGroup
	err := s.withOverlay("Loading categories...", func() error {
		g, err := s.api.TypeCategories(t)
		if err != nil {
			return err
		}
		group = g
		return nil
	})
	if err != nil {
		s.notify.Toast("error", "Failed to load categories")
		return err
	}

	s.stopPlayback()
	s.allItems = nil
	s.filtered = nil
	s.searchTerm = ""
	s.clearSeriesCache()
	s.renderer.Reset(nil)
	s.route = Route{Kind: RouteTypeList, Type: t}
	if push {
		s.history.Push(s.route.Path())
	}
	s.view.ShowTypeList(group)
	return nil
}

// OpenCategory moves type-list -> category-channels, fetching the category's
// shard. The transition resets the page cursor, the search term and the
// pagination trigger before the first page renders. Series categories are
// regrouped into series cards instead of paging raw episodes.
func (s *Session) OpenCategory(name string) error {
	return s.openCategory(name, true)
}

func (s *Session) openCategory(name string, push bool) error {
	if s.route.Type == "" {
		return fmt.Errorf("no category type selected")
	}
	t := s.route.Type

	var cat *catalog.Category
	err := s.withOverlay("Loading channels...", func() error {
		c, err := s.api.CategoryChannels(name)
		if err != nil {
			return err
		}
		cat = c
		return nil
	})
	if err != nil {
		// previous view stays intact
		s.notify.Toast("error", "Failed to load channels for this category")
		return err
	}

	s.stopPlayback()
	s.allItems = cat.Channels
	s.filtered = cat.Channels
	s.searchTerm = ""
	s.route = Route{Kind: RouteCategory, Type: t, Category: name}
	if push {
		s.history.Push(s.route.Path())
	}

	if t == catalog.TypeSeries {
		s.seriesByName, s.seriesList = series.GroupChannels(cat.Channels)
		s.renderer.Reset(nil) // series cards are not paged; disarm the trigger
		s.view.ShowSeriesGroups(s.seriesList)
		s.view.SetResultCount(len(s.seriesList), len(s.seriesList))
		return nil
	}

	s.clearSeriesCache()
	s.renderer.Reset(s.filtered)
	s.renderer.LoadNextPage()
	s.view.SetResultCount(len(s.filtered), len(s.allItems))
	return nil
}

// OpenSeries moves category-channels -> series-episode-list using the groups
// derived when the category loaded; no additional fetch happens. A cache miss
// (stale history entry, direct link into an unloaded session) falls back to
// the series type list.
func (s *Session) OpenSeries(name string) error {
	return s.openSeries(name, true)
}

func (s *Session) openSeries(name string, push bool) error {
	if s.route.Type != catalog.TypeSeries || s.route.Category == "" {
		return fmt.Errorf("no series category active")
	}
	group, ok := s.seriesByName[name]
	if !ok {
		s.notify.Toast("error", "Series not found")
		return s.openType(catalog.TypeSeries, push)
	}

	s.stopPlayback()
	s.route = Route{Kind: RouteSeriesEpisodes, Type: s.route.Type, Category: s.route.Category, Series: name}
	if push {
		s.history.Push(s.route.Path())
	}
	s.view.ShowEpisodes(group.Name, series.SortEpisodes(group.Episodes))
	return nil
}

// Play loads an item into the external player. The previous stream is always
// released first so playback sessions cannot leak. A player error surfaces as
// a toast and leaves navigation state untouched.
func (s *Session) Play(record catalog.ChannelRecord) {
	s.player.Stop()
	s.playerActive = false
	if err := s.player.Play(record.URL); err != nil {
		s.log.Debug().Err(err).Str("channel", record.Name).Msg("playback failed")
		s.notify.Toast("error", "Failed to play this channel. Try another one.")
		return
	}
	s.playerActive = true
}

// ClosePlayer tears down the playback overlay without navigating.
func (s *Session) ClosePlayer() {
	s.stopPlayback()
}

// Back pops to the previous logical state: episode list back to its category,
// category back to the type list, type list back to home.
func (s *Session) Back() error {
	switch s.route.Kind {
	case RouteSeriesEpisodes:
		// the category's items are still in memory; re-render without a fetch
		s.stopPlayback()
		s.searchTerm = ""
		s.route = Route{Kind: RouteCategory, Type: s.route.Type, Category: s.route.Category}
		s.history.Push(s.route.Path())
		s.view.ShowSeriesGroups(s.seriesList)
		s.view.SetResultCount(len(s.seriesList), len(s.seriesList))
		return nil
	case RouteCategory:
		return s.openType(s.route.Type, true)
	case RouteTypeList:
		return s.home(true)
	default:
		return nil
	}
}

// SetSearch applies a new search term to the active item set. The pagination
// trigger is disconnected before the filtered set is swapped, so a stale
// sentinel can never page into the discarded list. Series categories filter
// at the series-group level and report matching/total series.
func (s *Session) SetSearch(term string) {
	s.searchTerm = term

	if s.route.Type == catalog.TypeSeries && s.seriesList != nil {
		matching := search.FilterSeries(s.seriesList, term)
		s.view.ShowSeriesGroups(matching)
		s.view.SetResultCount(len(matching), len(s.seriesList))
		return
	}

	s.filtered = search.Filter(s.allItems, term)
	s.renderer.Reset(s.filtered)
	s.renderer.LoadNextPage()
	s.view.SetResultCount(len(s.filtered), len(s.allItems))
}

// HandleLocation reconstructs session state from an address-bar path:
// direct URL entry and browser back/forward both land here. State is
// re-derived and re-fetched from the route alone; entries that cannot be
// reconstructed fall back to home. Nothing is pushed onto the history, since
// the location is already there.
func (s *Session) HandleLocation(path string) {
	route := ParsePath(path)
	switch route.Kind {
	case RouteTypeList:
		if s.openType(route.Type, false) != nil {
			s.fallbackHome()
		}
	case RouteCategory:
		if s.openType(route.Type, false) != nil || s.openCategory(route.Category, false) != nil {
			s.fallbackHome()
		}
	case RouteSeriesEpisodes:
		if s.openType(route.Type, false) != nil ||
			s.openCategory(route.Category, false) != nil ||
			s.openSeries(route.Series, false) != nil {
			s.fallbackHome()
		}
	default:
		s.fallbackHome()
	}
}

func (s *Session) fallbackHome() {
	_ = s.home(false)
}

// withOverlay pairs every fetch with the blocking overlay: shown before the
// call, hidden when it settles, regardless of outcome.
func (s *Session) withOverlay(message string, fn func() error) error {
	s.overlay.Show(message)
	defer s.overlay.Hide()
	return fn()
}

func (s *Session) stopPlayback() {
	if s.playerActive {
		s.player.Stop()
		s.playerActive = false
	}
}

func (s *Session) clearSeriesCache() {
	s.seriesByName = nil
	s.seriesList = nil
}
