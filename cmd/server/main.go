package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/posfleet/station-gateway/internal/cache"
	"github.com/posfleet/station-gateway/internal/config"
	"github.com/posfleet/station-gateway/internal/database"
	"github.com/posfleet/station-gateway/internal/handler"
	"github.com/posfleet/station-gateway/internal/jobs"
	"github.com/posfleet/station-gateway/internal/middleware"
	"github.com/posfleet/station-gateway/internal/redis"
	"github.com/posfleet/station-gateway/internal/repository"
	"github.com/posfleet/station-gateway/internal/service"
	"github.com/posfleet/station-gateway/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	stationRepo := repository.NewStationRepository(db.DB)
	deviceRepo := repository.NewTrustedDeviceRepository(db.DB)
	adminSessionRepo := repository.NewAdminSessionRepository(db.DB)

	trustCache := cache.NewTrustCache(redisClient.Client, config.TrustCacheTTL)
	issuer := token.NewIssuer(cfg.StationTokenSecret, "station-gateway", cfg.StationTokenTTL())

	stationService := service.NewStationService(db, stationRepo, deviceRepo, trustCache, issuer)
	adminService := service.NewAdminService(adminSessionRepo, cfg.AdminPasswordHash, cfg.AdminSessionSecret)

	stationAuthMiddleware := middleware.NewStationAuthMiddleware(issuer, stationRepo, trustCache)
	rateLimitMiddleware := middleware.NewStationRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)
	adminSessionMiddleware := middleware.NewAdminSessionMiddleware(
		adminSessionRepo, cfg.AdminPasswordHash, cfg.AdminSessionSecret,
	)

	csrfMiddleware := middleware.NewCSRFMiddleware(isProduction)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	pairingHandler := handler.NewPairingHandler(stationService)
	stationHandler := handler.NewStationHandler(stationService)
	adminHandler := handler.NewAdminHandler(
		adminService, stationService, adminSessionMiddleware.Handler, isProduction,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Mount("/pair", pairingHandler.Routes())

	r.Route("/station", func(r chi.Router) {
		r.Use(stationAuthMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", stationHandler.Routes())
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.Use(csrfMiddleware.Handler)
		r.Mount("/", adminHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(adminSessionRepo, stationRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
