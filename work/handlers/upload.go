package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"iptv-catalog/work/catalog"
	"iptv-catalog/work/metrics"
	"iptv-catalog/work/parser"
	"iptv-catalog/work/utils"
)

// multipart form memory threshold; larger bodies spill to temp files.
const uploadMemoryLimit = 32 << 20

// UploadPlaylist accepts one .m3u/.m3u8 multipart file, runs the full
// ingestion pipeline (parse, classify, replace catalog) and answers with the
// resulting stats. Uploads are serialised: a second request while one is in
// flight gets a 409 instead of racing the catalog replacement. The temporary
// upload file is removed on every path.
func (h *Handler) UploadPlaylist(w http.ResponseWriter, r *http.Request) {
	if !h.uploadBusy.CompareAndSwap(false, true) {
		respondError(w, http.StatusConflict, "Another upload is already being processed")
		return
	}
	defer h.uploadBusy.Store(false)
	h.uploadLimiter.Take()

	start := time.Now()
	maxBytes := h.cfg.MaxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Upload rejected: file exceeds the %s limit or the form is malformed", utils.FormatBytes(maxBytes)))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("playlist")
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		respondError(w, http.StatusBadRequest, "No playlist file was uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".m3u" && ext != ".m3u8" {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		respondError(w, http.StatusBadRequest, "Only .m3u and .m3u8 files are allowed")
		return
	}

	tmpPath := filepath.Join(h.cfg.UploadsDir, fmt.Sprintf("playlist_%d.m3u", time.Now().UnixMilli()))
	if err := h.saveUpload(file, tmpPath); err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		h.log.Error().Err(err).Msg("failed to save uploaded playlist")
		respondError(w, http.StatusInternalServerError, "Failed to store the uploaded file")
		return
	}
	// remove the temp artifact regardless of outcome
	defer os.Remove(tmpPath)

	h.log.Info().
		Str("file", header.Filename).
		Str("size", utils.FormatBytes(header.Size)).
		Msg("processing playlist upload")

	cat, err := h.processPlaylist(tmpPath)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		h.log.Error().Err(err).Msg("playlist processing failed")
		respondError(w, http.StatusInternalServerError, "Failed to process the playlist")
		return
	}

	if err := h.db.RecordUpload(header.Filename, cat.Summary.TotalChannels, cat.Summary.TotalCategories); err != nil {
		// history is best-effort; the catalog itself is already live
		h.log.Warn().Err(err).Msg("failed to record upload history")
	}

	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	metrics.ChannelsParsed.Set(float64(cat.Summary.TotalChannels))
	metrics.CategoriesParsed.Set(float64(cat.Summary.TotalCategories))

	h.log.Info().
		Int("channels", cat.Summary.TotalChannels).
		Int("categories", cat.Summary.TotalCategories).
		Dur("duration", time.Since(start)).
		Msg("playlist processed")

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Playlist processed successfully",
		"stats": map[string]any{
			"totalChannels":   cat.Summary.TotalChannels,
			"totalCategories": cat.Summary.TotalCategories,
			"lastUpdated":     cat.Summary.LastUpdated,
			"lazyLoading":     true,
			"filesCreated":    len(cat.Categories) + 3, // shards + summary + list + grouped
		},
	})
}

// saveUpload spools the multipart part to the uploads directory.
func (h *Handler) saveUpload(src io.Reader, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}

// processPlaylist runs parse -> classify -> replace on the stored upload.
func (h *Handler) processPlaylist(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	parsed, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse playlist: %w", err)
	}

	cat := catalog.Build(parsed.Groups, time.Now().UTC())
	if err := h.store.ReplaceCatalog(cat); err != nil {
		return nil, fmt.Errorf("replace catalog: %w", err)
	}
	return cat, nil
}
