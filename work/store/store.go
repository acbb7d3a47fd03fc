package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/renameio/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"iptv-catalog/work/catalog"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/metrics"
)

// Catalog document file names under the data directory. Category shards live
// in categoriesDir keyed by their slug; per-upload backups in backupDir.
const (
	summaryFile   = "metadata.json"
	groupedFile   = "grouped_categories.json"
	listFile      = "categories_list.json"
	categoriesDir = "categories"
	backupDir     = "backup"
)

var (
	// ErrNoCatalog means no playlist has been uploaded yet.
	ErrNoCatalog = errors.New("no catalog loaded")
	// ErrUnknownType means the requested type is not channels, movies or series.
	ErrUnknownType = errors.New("unknown category type")
	// ErrNotFound means the requested category shard does not exist.
	ErrNotFound = errors.New("category not found")
)

// Store persists one catalog as independently fetchable JSON documents and
// serves them back on demand. A new upload replaces the previous catalog
// wholesale: shards are fully written before the summary, so a reader never
// sees a summary referencing a shard that is not on disk yet.
type Store struct {
	dataDir  string
	pool     *ants.Pool
	cache    *ristretto.Cache[string, *catalog.Category]
	cacheTTL time.Duration
	index    *xsync.MapOf[string, catalog.CategoryRef] // slug -> shard ref
	log      zerolog.Logger

	mu sync.Mutex // serialises ReplaceCatalog against itself
}

// New opens a store rooted at dataDir, creating the directory layout if
// needed and seeding the slug index from a catalog left by a previous run.
// cacheTTL bounds how long a shard stays in the read cache. The ants pool is
// shared with the caller and not released by the store.
func New(dataDir string, cacheTTL time.Duration, pool *ants.Pool) (*Store, error) {
	for _, dir := range []string{dataDir, filepath.Join(dataDir, categoriesDir), filepath.Join(dataDir, backupDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *catalog.Category]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create shard cache: %w", err)
	}

	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	s := &Store{
		dataDir:  dataDir,
		pool:     pool,
		cache:    cache,
		cacheTTL: cacheTTL,
		index:    xsync.NewMapOf[string, catalog.CategoryRef](),
		log:      logger.WithComponent("store"),
	}
	s.seedIndex()
	return s, nil
}

// seedIndex rebuilds the slug index from the flat list document, if one
// survived a restart. Missing or unreadable documents just leave the index
// empty, which reads report as ErrNoCatalog/ErrNotFound.
func (s *Store) seedIndex() {
	var list catalog.CategoryList
	if err := s.readJSON(s.path(listFile), &list); err != nil {
		return
	}
	for _, ref := range list.Categories {
		s.index.Store(strings.TrimSuffix(ref.FileName, ".json"), ref)
	}
	s.log.Info().Int("categories", len(list.Categories)).Msg("restored catalog index from disk")
}

// ReplaceCatalog atomically swaps the persisted catalog for cat. Shards are
// written first through the worker pool, stale shards from the previous
// catalog are removed, the aggregate and list documents follow and the
// summary goes last. The in-memory index and shard cache are refreshed before
// the method returns.
func (s *Store) ReplaceCatalog(cat *catalog.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]bool, len(cat.Categories))

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error
	for i := range cat.Categories {
		c := cat.Categories[i]
		slug := catalog.Slugify(c.Name)
		keep[slug] = true
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := s.writeJSON(s.shardPath(slug), &c); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("write shard %s: %w", slug, err)
				}
				errMu.Unlock()
			}
		}
		if err := s.pool.Submit(task); err != nil {
			// pool rejected the task (released or overloaded); run inline
			task()
		}
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	if err := s.removeStaleShards(keep); err != nil {
		return err
	}

	if err := s.writeJSON(s.path(listFile), &cat.List); err != nil {
		return fmt.Errorf("write category list: %w", err)
	}
	if err := s.writeJSON(s.path(groupedFile), &cat.Grouped); err != nil {
		return fmt.Errorf("write grouped categories: %w", err)
	}
	// summary last: its presence is what tells readers a catalog exists
	if err := s.writeJSON(s.path(summaryFile), &cat.Summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if err := s.writeBackup(cat); err != nil {
		s.log.Warn().Err(err).Msg("backup write failed")
	}

	s.index.Clear()
	for _, ref := range cat.List.Categories {
		s.index.Store(strings.TrimSuffix(ref.FileName, ".json"), ref)
	}
	s.cache.Clear()

	s.log.Info().
		Int("channels", cat.Summary.TotalChannels).
		Int("categories", cat.Summary.TotalCategories).
		Msg("catalog replaced")
	return nil
}

// removeStaleShards deletes shard files left over from the previous catalog.
func (s *Store) removeStaleShards(keep map[string]bool) error {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, categoriesDir))
	if err != nil {
		return fmt.Errorf("list shard directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slug := strings.TrimSuffix(name, ".json")
		if keep[slug] {
			continue
		}
		if err := os.Remove(filepath.Join(s.dataDir, categoriesDir, name)); err != nil {
			s.log.Warn().Err(err).Str("shard", slug).Msg("failed to remove stale shard")
		}
	}
	return nil
}

// writeBackup keeps a timestamped copy of the summary and category index per
// upload, matching the layout older exports used.
func (s *Store) writeBackup(cat *catalog.Catalog) error {
	name := "playlist_" + strconv.FormatInt(cat.Summary.LastUpdated.UnixMilli(), 10) + ".json"
	doc := struct {
		Metadata   catalog.Summary       `json:"metadata"`
		Categories []catalog.CategoryRef `json:"categories"`
	}{cat.Summary, cat.List.Categories}
	return s.writeJSON(filepath.Join(s.dataDir, backupDir, name), &doc)
}

// Summary returns the active catalog's manifest, or ErrNoCatalog.
func (s *Store) Summary() (*catalog.Summary, error) {
	var sum catalog.Summary
	if err := s.readJSON(s.path(summaryFile), &sum); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCatalog
		}
		return nil, err
	}
	return &sum, nil
}

// Grouped returns the per-type aggregate document, or ErrNoCatalog.
func (s *Store) Grouped() (*catalog.Grouped, error) {
	var g catalog.Grouped
	if err := s.readJSON(s.path(groupedFile), &g); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCatalog
		}
		return nil, err
	}
	return &g, nil
}

// List returns the flat category index, or ErrNoCatalog.
func (s *Store) List() (*catalog.CategoryList, error) {
	var list catalog.CategoryList
	if err := s.readJSON(s.path(listFile), &list); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCatalog
		}
		return nil, err
	}
	return &list, nil
}

// TypeGroup returns the aggregate for one recognised type key.
// ErrUnknownType for anything else, ErrNoCatalog when nothing was uploaded.
func (s *Store) TypeGroup(t string) (*catalog.TypeGroup, error) {
	g, err := s.Grouped()
	if err != nil {
		return nil, err
	}
	group, ok := g.ByType(t)
	if !ok {
		return nil, ErrUnknownType
	}
	return &group, nil
}

// Category resolves a category by raw name or slug (both go through the slug
// transform) and returns its full shard. ErrNotFound when absent.
func (s *Store) Category(nameOrSlug string) (*catalog.Category, error) {
	slug := catalog.Slugify(nameOrSlug)
	if _, ok := s.index.Load(slug); !ok {
		return nil, ErrNotFound
	}
	if c, ok := s.cache.Get(slug); ok {
		metrics.ShardReads.WithLabelValues("hit").Inc()
		return c, nil
	}
	metrics.ShardReads.WithLabelValues("miss").Inc()

	var c catalog.Category
	if err := s.readJSON(s.shardPath(slug), &c); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.cache.SetWithTTL(slug, &c, 1, s.cacheTTL)
	return &c, nil
}

// AllChannels concatenates every category's channels under one type, in
// category order. Serves the synthetic "ALL" pseudo-category.
func (s *Store) AllChannels(t string) ([]catalog.ChannelRecord, error) {
	group, err := s.TypeGroup(t)
	if err != nil {
		return nil, err
	}
	all := make([]catalog.ChannelRecord, 0, group.TotalChannels)
	for _, ref := range group.Categories {
		c, err := s.Category(ref.Name)
		if err != nil {
			return nil, fmt.Errorf("read category %q: %w", ref.Name, err)
		}
		all = append(all, c.Channels...)
	}
	return all, nil
}

// HasCatalog reports whether a summary document exists.
func (s *Store) HasCatalog() bool {
	_, err := os.Stat(s.path(summaryFile))
	return err == nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dataDir, name)
}

func (s *Store) shardPath(slug string) string {
	return filepath.Join(s.dataDir, categoriesDir, slug+".json")
}

func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes a document atomically: temp file, fsync, rename. A crash
// mid-upload leaves either the old document or the new one, never a torn file.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pending.Cleanup(); cerr != nil {
			s.log.Debug().Err(cerr).Str("path", path).Msg("cleanup pending file")
		}
	}()
	if _, err := pending.Write(data); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}
