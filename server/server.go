package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Melodia/cache"
	"Melodia/config"
	"Melodia/db"
	"Melodia/logger"
	"Melodia/metrics"
	"Melodia/repository"
	"Melodia/storage"

	"github.com/gorilla/mux"
)

// NewRouter mounts every route on a gorilla/mux router. CORS wraps the whole
// router so preflight requests are answered even for unmatched methods.
func NewRouter(h *APIHandler) http.Handler {
	router := mux.NewRouter()
	router.Use(metricsMiddleware)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// songs
	api.HandleFunc("/songs", h.ListSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id}", h.GetSongHandler).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id}/play", h.PlaySongHandler).Methods(http.MethodPost)

	// admin
	api.HandleFunc("/admin/login", h.LoginHandler).Methods(http.MethodPost)
	api.HandleFunc("/admin/upload", h.IPAllowlist(h.AdminAuth(h.UploadSongHandler))).Methods(http.MethodPost)
	api.HandleFunc("/admin/songs", h.AdminAuth(h.ListAllSongsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/admin/songs/{id}", h.IPAllowlist(h.AdminAuth(h.UpdateSongHandler))).Methods(http.MethodPut)
	api.HandleFunc("/admin/songs/{id}", h.IPAllowlist(h.AdminAuth(h.DeleteSongHandler))).Methods(http.MethodDelete)
	api.HandleFunc("/admin/songs/{id}/play", h.LegacyPlayHandler).Methods(http.MethodPost)
	api.HandleFunc("/admin/toggle-publish", h.AdminAuth(h.TogglePublishHandler)).Methods(http.MethodPut)
	api.HandleFunc("/admin/analytics", h.AdminAuth(h.AnalyticsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/admin/reviews", h.AdminAuth(h.ListAllReviewsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/admin/reviews/{id}/approve", h.AdminAuth(h.ApproveReviewHandler)).Methods(http.MethodPut)
	api.HandleFunc("/admin/reviews/{id}/reject", h.AdminAuth(h.RejectReviewHandler)).Methods(http.MethodPut)
	api.HandleFunc("/admin/reviews/{id}", h.AdminAuth(h.DeleteReviewHandler)).Methods(http.MethodDelete)

	// hero banner
	api.HandleFunc("/hero", h.GetHeroHandler).Methods(http.MethodGet)
	api.HandleFunc("/hero", h.IPAllowlist(h.AdminAuth(h.CreateHeroHandler))).Methods(http.MethodPost)
	api.HandleFunc("/hero/{id}", h.IPAllowlist(h.AdminAuth(h.UpdateHeroHandler))).Methods(http.MethodPut)
	api.HandleFunc("/hero/{id}", h.IPAllowlist(h.AdminAuth(h.DeleteHeroHandler))).Methods(http.MethodDelete)

	// reviews
	api.HandleFunc("/reviews", h.CreateReviewHandler).Methods(http.MethodPost)
	api.HandleFunc("/reviews/approved", h.ListApprovedReviewsHandler).Methods(http.MethodGet)

	// spotify now playing
	api.HandleFunc("/spotify/login", h.SpotifyLoginHandler).Methods(http.MethodGet)
	api.HandleFunc("/spotify/callback", h.SpotifyCallbackHandler).Methods(http.MethodGet)
	api.HandleFunc("/spotify/now-playing", h.NowPlayingHandler).Methods(http.MethodGet)
	api.HandleFunc("/spotify/refresh", h.SpotifyRefreshHandler).Methods(http.MethodGet)
	api.HandleFunc("/spotify/status", h.SpotifyStatusHandler).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	return corsMiddleware(h.cfg.FrontendURL)(router)
}

// newRegistry picks the play-session registry backend.
func newRegistry(cfg *config.Config) (cache.PlayRegistry, func(), error) {
	switch cfg.PlayRegistry {
	case "redis":
		if err := db.ConnectRedis(cfg); err != nil {
			return nil, nil, err
		}
		return cache.NewRedisRegistry(db.RedisClient, cfg.PlaySessionTTL), func() { _ = db.CloseRedis() }, nil
	case "memory", "":
		reg := cache.NewMemoryRegistry(cfg.PlaySessionTTL, time.Hour)
		return reg, func() { _ = reg.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown play registry %q", cfg.PlayRegistry)
	}
}

// Start initializes and starts the HTTP server, then blocks until SIGINT/SIGTERM.
func Start() {
	cfg := config.Load()
	logger.Init(logger.Options{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
		Console:    !cfg.IsProduction(),
	})
	defer logger.Sync()

	metrics.RegisterMetrics()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("[Server] failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.Migrate(db.GormDB); err != nil {
		logger.Fatal("[Server] failed to migrate database", logger.ErrorField(err))
	}

	registry, closeRegistry, err := newRegistry(cfg)
	if err != nil {
		logger.Fatal("[Server] failed to set up play registry", logger.ErrorField(err))
	}
	defer closeRegistry()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	blobs, err := storage.NewMinioStore(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("[Server] failed to initialize MinIO", logger.ErrorField(err))
	}

	handler := NewAPIHandler(Deps{
		Config:   cfg,
		Songs:    repository.NewGormSongRepository(db.GormDB),
		Admins:   repository.NewGormAdminRepository(db.GormDB),
		Reviews:  repository.NewGormReviewRepository(db.GormDB),
		Heroes:   repository.NewGormHeroRepository(db.GormDB),
		Blobs:    blobs,
		Registry: registry,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(handler),
		ReadTimeout:  5 * time.Minute, // large uploads
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("[Server] listening",
			logger.String("addr", server.Addr),
			logger.String("env", cfg.Env),
			logger.String("registry", cfg.PlayRegistry))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("[Server] failed to start", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("[Server] shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("[Server] forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("[Server] stopped")
}
