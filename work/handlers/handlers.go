package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"

	"iptv-catalog/work/catalog"
	"iptv-catalog/work/config"
	"iptv-catalog/work/database"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/store"
)

// Handler bundles the dependencies every API endpoint needs. One instance
// serves all requests.
type Handler struct {
	cfg     *config.Config
	store   *store.Store
	db      *database.DB
	log     zerolog.Logger
	version string

	uploadBusy    atomic.Bool       // rejects a second upload while one is in flight
	uploadLimiter ratelimit.Limiter // paces successive catalog rebuilds
}

// New creates the API handler set.
func New(cfg *config.Config, st *store.Store, db *database.DB, version string) *Handler {
	return &Handler{
		cfg:           cfg,
		store:         st,
		db:            db,
		log:           logger.WithComponent("api"),
		version:       version,
		uploadLimiter: ratelimit.New(1), // at most one catalog rebuild per second
	}
}

// Register wires every API route onto the router.
func (h *Handler) Register(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload-playlist", h.UploadPlaylist).Methods(http.MethodPost)
	api.HandleFunc("/playlist", h.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.GetCategories).Methods(http.MethodGet)
	api.HandleFunc("/grouped-categories", h.GetGroupedCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/{type}", h.GetCategoriesByType).Methods(http.MethodGet)
	api.HandleFunc("/channels/{category}", h.GetCategoryChannels).Methods(http.MethodGet)
	api.HandleFunc("/all-channels/{type}", h.GetAllChannels).Methods(http.MethodGet)
	api.HandleFunc("/upload-history", h.GetUploadHistory).Methods(http.MethodGet)
	api.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
}

// respondJSON writes v with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes the structured failure envelope every recoverable
// condition uses instead of leaking past the request boundary.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

// storeError maps store sentinels onto the API's 4xx responses; anything else
// is a 500.
func (h *Handler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNoCatalog):
		respondError(w, http.StatusNotFound, "No playlist found. Upload an M3U file first.")
	case errors.Is(err, store.ErrUnknownType):
		respondError(w, http.StatusBadRequest, "Invalid type. Use: channels, movies or series")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Category not found")
	default:
		h.log.Error().Err(err).Msg("store read failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GetSummary serves the catalog manifest.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.Summary()
	if err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

// GetCategories serves the flat category index.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List()
	if err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"categories":      list.Categories,
		"totalCategories": list.TotalCategories,
		"lastUpdated":     list.LastUpdated,
	})
}

// GetGroupedCategories serves the three type-group summaries, stats and
// category refs only; channel payloads stay in their shards.
func (h *Handler) GetGroupedCategories(w http.ResponseWriter, r *http.Request) {
	g, err := h.store.Grouped()
	if err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"channels":    g.Channels,
		"movies":      g.Movies,
		"series":      g.Series,
		"lastUpdated": g.LastUpdated,
	})
}

// GetCategoriesByType serves the category list of one type group.
func (h *Handler) GetCategoriesByType(w http.ResponseWriter, r *http.Request) {
	t := mux.Vars(r)["type"]
	group, err := h.store.TypeGroup(t)
	if err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"type":            t,
		"name":            group.Label,
		"description":     group.Description,
		"categories":      group.Categories,
		"totalCategories": group.TotalCategories,
		"totalChannels":   group.TotalChannels,
	})
}

// GetCategoryChannels serves one category shard, resolved via the slug
// transform so both raw names and slugs work.
func (h *Handler) GetCategoryChannels(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["category"]
	c, err := h.store.Category(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"category":     c.Name,
		"channels":     c.Channels,
		"channelCount": c.ChannelCount,
	})
}

// GetAllChannels concatenates every category's channels under one type for
// the synthetic "ALL" pseudo-category.
func (h *Handler) GetAllChannels(w http.ResponseWriter, r *http.Request) {
	t := mux.Vars(r)["type"]
	channels, err := h.store.AllChannels(t)
	if err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"type":         t,
		"channels":     channels,
		"channelCount": len(channels),
	})
}

// GetUploadHistory serves the most recent upload events.
func (h *Handler) GetUploadHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.db.RecentUploads(20)
	if err != nil {
		h.log.Error().Err(err).Msg("upload history query failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if records == nil {
		records = []database.UploadRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"uploads": records,
	})
}

// GetStatus reports liveness plus whether a catalog exists and its stats.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var info *catalog.Summary
	if sum, err := h.store.Summary(); err == nil {
		info = sum
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"server":      "IPTV Catalog Server",
		"version":     h.version,
		"hasPlaylist": info != nil,
		"playlist":    info,
	})
}
