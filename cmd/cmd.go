package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skillswap-gateway/internal/config"
	"skillswap-gateway/internal/handlers"
	"skillswap-gateway/internal/repository"
	"skillswap-gateway/internal/services"
	"skillswap-gateway/internal/upstream"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	path := os.Getenv("SKILLSWAP_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	if err := repository.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to create schema")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	client := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	wsHub := services.NewWSHub()

	var notifier services.BadgeNotifier
	if cfg.APNs.KeyFile != "" {
		pushService, err := services.NewPushService(services.APNsConfig{
			KeyFile:    cfg.APNs.KeyFile,
			KeyID:      cfg.APNs.KeyID,
			TeamID:     cfg.APNs.TeamID,
			Topic:      cfg.APNs.Topic,
			Production: cfg.APNs.Production,
		}, sessionRepo)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push service")
		}
		notifier = pushService
	} else {
		log.Warn().Msg("APNs key not configured, push notifications disabled")
	}

	// Initialize services
	feedService := services.NewFeedService(client, badgeRepo, wsHub, notifier, services.FeedConfig{
		NotifyInterval:        cfg.Polling.NotifyInterval,
		ConversationsInterval: cfg.Polling.ConversationsInterval,
		MessagesInterval:      cfg.Polling.MessagesInterval,
	})
	sessionService := services.NewSessionService(client, sessionRepo, feedService, wsHub, cfg.JWT.Secret, cfg.JWT.TTL)
	conversationService := services.NewConversationService(client, sessionRepo, feedService)
	discoverService := services.NewDiscoverService(client, feedService, cfg.Discover.MaxDistanceKm)
	profileService := services.NewProfileService(client)

	var store services.ObjectStore
	if cfg.AWS.S3Bucket != "" {
		s3Store, err := services.NewS3Store(context.Background(), services.S3Config{
			Region:    cfg.AWS.Region,
			Bucket:    cfg.AWS.S3Bucket,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
			Endpoint:  cfg.AWS.Endpoint,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create photo staging store")
		}
		store = s3Store
	} else {
		log.Warn().Msg("S3 bucket not configured, direct photo uploads disabled")
	}
	photoService := services.NewPhotoService(store, uploadRepo, profileService)

	// Initialize handlers
	api := handlers.API{
		Auth:          handlers.NewAuthHandler(sessionService, discoverService),
		Notifications: handlers.NewNotificationHandler(feedService),
		Discover:      handlers.NewDiscoverHandler(discoverService),
		Conversations: handlers.NewConversationHandler(conversationService),
		Profile:       handlers.NewProfileHandler(profileService, discoverService),
		Photos:        handlers.NewPhotoHandler(photoService),
		WebSocket:     handlers.NewWebSocketHandler(wsHub, sessionService, feedService, conversationService),
	}

	// Sessions that were signed in before a restart keep their badges
	if err := feedService.ResumeSessions(context.Background(), sessionRepo); err != nil {
		log.Error().Err(err).Msg("Failed to resume user feeds")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.NewRouter(api, sessionService, cfg.CORS.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("upstream", client.BaseURL()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not closed by srv.Shutdown
	wsHub.CloseAll()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	feedService.Shutdown()

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

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
