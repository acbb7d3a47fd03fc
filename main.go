package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iptv-catalog/work/config"
	"iptv-catalog/work/database"
	"iptv-catalog/work/handlers"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/middleware"
	"iptv-catalog/work/store"
	"iptv-catalog/work/utils"
)

var (
	Version = "v2.0.0" // default version
)

// our main app worker
func main() {

	// load our config
	cfg := config.LoadConfig()

	// set up logging
	logger.Configure(logger.Config{Level: cfg.LogLevel})
	log := logger.WithComponent("main")

	// worker pool shared by the catalog store for shard writes
	workerPool, err := ants.NewPool(cfg.WorkerThreads, ants.WithPreAlloc(true))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create worker pool")
	}
	defer workerPool.Release()

	// catalog store over the data directory
	catalogStore, err := store.New(cfg.DataDir, cfg.CacheDuration, workerPool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalog store")
	}

	// upload history database
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open upload history database")
	}
	defer db.Close()

	// API handlers
	api := handlers.New(cfg, catalogStore, db, Version)

	// setup HTTP routes
	router := mux.NewRouter()
	router.Use(middleware.RequestLog, middleware.CORS, middleware.Gzip)
	api.Register(router)

	// metrics handler
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%d", cfg.Port)

	// show info
	log.Info().Str("version", Version).Msg("starting IPTV catalog server")
	log.Info().
		Str("addr", addr).
		Str("data_dir", cfg.DataDir).
		Str("uploads_dir", cfg.UploadsDir).
		Str("max_upload", utils.FormatBytes(cfg.MaxUploadMB*1024*1024)).
		Int("worker_threads", cfg.WorkerThreads).
		Dur("cache_duration", cfg.CacheDuration).
		Bool("has_playlist", catalogStore.HasCatalog()).
		Msg("server configuration")

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// shut down cleanly on SIGINT/SIGTERM
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	// fire us up
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
