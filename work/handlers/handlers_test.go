package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv-catalog/work/config"
	"iptv-catalog/work/database"
	"iptv-catalog/work/store"
)

const testPlaylist = `#EXTM3U
#EXTINF:-1 tvg-logo="http://logo/espn.png" group-title="CANAIS | Esportes",ESPN Brasil
http://stream.example.com/espn
#EXTINF:-1 group-title="CANAIS | Esportes",SporTV
http://stream.example.com/sportv
#EXTINF:-1 group-title="FILMES | Ação",Duro de Matar
http://stream.example.com/diehard
#EXTINF:-1 group-title="SÉRIES | Drama",Dark - S01E01
http://stream.example.com/dark1
#EXTINF:-1 group-title="SÉRIES | Drama",Dark - S01E02
http://stream.example.com/dark2
`

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	dataDir := t.TempDir()
	st, err := store.New(dataDir, time.Minute, pool)
	require.NoError(t, err)

	db, err := database.Open(filepath.Join(dataDir, "uploads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		DataDir:     dataDir,
		UploadsDir:  t.TempDir(),
		MaxUploadMB: 100,
	}

	router := mux.NewRouter()
	New(cfg, st, db, "test").Register(router)
	return router
}

func uploadRequest(t *testing.T, filename, body string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("playlist", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-playlist", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doJSON(t *testing.T, router *mux.Router, req *http.Request) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func uploadTestPlaylist(t *testing.T, router *mux.Router) {
	t.Helper()
	code, body := doJSON(t, router, uploadRequest(t, "canais.m3u", testPlaylist))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["success"])
}

func TestUploadPlaylist(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, uploadRequest(t, "canais.m3u", testPlaylist))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 5, stats["totalChannels"])
	assert.EqualValues(t, 3, stats["totalCategories"])
	// three shards plus summary, list and grouped documents
	assert.EqualValues(t, 6, stats["filesCreated"])
	assert.Equal(t, true, stats["lazyLoading"])
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, uploadRequest(t, "playlist.txt", testPlaylist))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Only .m3u and .m3u8 files are allowed", body["error"])
}

func TestUploadRejectsMissingFile(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-playlist", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	code, body := doJSON(t, router, req)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No playlist file was uploaded", body["error"])
}

func TestEndpointsBeforeFirstUpload(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/api/playlist", "/api/categories", "/api/grouped-categories", "/api/categories/movies"} {
		code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, code, "path %s", path)
		assert.Equal(t, "No playlist found. Upload an M3U file first.", body["error"], "path %s", path)
	}

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["hasPlaylist"])
}

func TestGetCategoriesAfterUpload(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["totalCategories"])
}

func TestGetGroupedCategories(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/grouped-categories", nil))
	require.Equal(t, http.StatusOK, code)

	movies, ok := body["movies"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Filmes", movies["name"])
	assert.EqualValues(t, 1, movies["totalCategories"])
	assert.EqualValues(t, 1, movies["totalChannels"])

	series, ok := body["series"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, series["totalChannels"])
}

func TestGetCategoriesByType(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/categories/movies", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "movies", body["type"])

	cats, ok := body["categories"].([]any)
	require.True(t, ok)
	require.Len(t, cats, 1)
	first := cats[0].(map[string]any)
	assert.Equal(t, "FILMES | Ação", first["name"])
	assert.EqualValues(t, 1, first["channelCount"])
}

func TestGetCategoriesByTypeInvalid(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/categories/radio", nil))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid type. Use: channels, movies or series", body["error"])
}

func TestGetCategoryChannels(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/channels/CANAIS%20%7C%20Esportes", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CANAIS | Esportes", body["category"])
	assert.EqualValues(t, 2, body["channelCount"])

	channels, ok := body["channels"].([]any)
	require.True(t, ok)
	require.Len(t, channels, 2)
	first := channels[0].(map[string]any)
	assert.Equal(t, "ESPN Brasil", first["name"])
	assert.Equal(t, "http://logo/espn.png", first["logo"])
	assert.Equal(t, true, first["isActive"])
}

func TestGetCategoryChannelsNotFound(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/channels/nope", nil))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Category not found", body["error"])
}

func TestGetAllChannels(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/all-channels/series", nil))
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["channelCount"])
}

func TestUploadHistoryRecorded(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/upload-history", nil))
	require.Equal(t, http.StatusOK, code)

	uploads, ok := body["uploads"].([]any)
	require.True(t, ok)
	require.Len(t, uploads, 1)
	first := uploads[0].(map[string]any)
	assert.Equal(t, "canais.m3u", first["filename"])
	assert.EqualValues(t, 5, first["totalChannels"])
}

func TestUploadConflictWhileBusy(t *testing.T) {
	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	dataDir := t.TempDir()
	st, err := store.New(dataDir, time.Minute, pool)
	require.NoError(t, err)
	db, err := database.Open(filepath.Join(dataDir, "uploads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := New(&config.Config{DataDir: dataDir, UploadsDir: t.TempDir(), MaxUploadMB: 100}, st, db, "test")
	h.uploadBusy.Store(true)

	rec := httptest.NewRecorder()
	h.UploadPlaylist(rec, uploadRequest(t, "canais.m3u", testPlaylist))

	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Another upload is already being processed", body["error"])
}

func TestUploadRemovesTemporaryFile(t *testing.T) {
	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	dataDir := t.TempDir()
	uploadsDir := t.TempDir()
	st, err := store.New(dataDir, time.Minute, pool)
	require.NoError(t, err)
	db, err := database.Open(filepath.Join(dataDir, "uploads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := New(&config.Config{DataDir: dataDir, UploadsDir: uploadsDir, MaxUploadMB: 100}, st, db, "test")

	rec := httptest.NewRecorder()
	h.UploadPlaylist(rec, uploadRequest(t, "canais.m3u", testPlaylist))
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := os.ReadDir(uploadsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSecondUploadReplacesCatalog(t *testing.T) {
	router := newTestRouter(t)
	uploadTestPlaylist(t, router)

	replacement := `#EXTM3U
#EXTINF:-1 group-title="FILMES | Terror",It
http://stream.example.com/it
`
	code, _ := doJSON(t, router, uploadRequest(t, "novo.m3u8", replacement))
	require.Equal(t, http.StatusOK, code)

	code, body := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/channels/CANAIS%20%7C%20Esportes", nil))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])

	code, body = doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/playlist", nil))
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["totalChannels"])
}
