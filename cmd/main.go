// Command api wires together and runs the recording/session control plane:
// connects to Postgres, runs migrations, builds every internal/* service,
// starts the reconcile cron job, and serves the thin health/readiness HTTP
// surface. The GraphQL/gRPC transports themselves are wired by a separate
// gateway process.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scuffle-video/api/internal/auth"
	"github.com/scuffle-video/api/internal/cache"
	"github.com/scuffle-video/api/internal/captcha"
	"github.com/scuffle-video/api/internal/db"
	"github.com/scuffle-video/api/internal/dispatcher"
	"github.com/scuffle-video/api/internal/events"
	"github.com/scuffle-video/api/internal/loader"
	"github.com/scuffle-video/api/internal/logger"
	"github.com/scuffle-video/api/internal/middleware"
	"github.com/scuffle-video/api/internal/ratelimit"
	"github.com/scuffle-video/api/internal/reconcile"
	"github.com/scuffle-video/api/internal/recordings"
	"github.com/scuffle-video/api/internal/token"
)

// app bundles the wired services the health/readiness handlers and
// shutdown sequence need to reach. The GraphQL/gRPC resource surfaces
// themselves are out of scope, so app exists only to give the pieces that
// are in scope a shared home.
type app struct {
	database   *db.Database
	cache      *cache.Cache
	publisher  *events.Publisher
	resolver   *auth.Resolver
	authSvc    *auth.Service
	dispatcher *dispatcher.Service
	recordings *recordings.Service
}

func main() {
	logger.Initialize(getEnv("LOG_LEVEL", "info"), getEnv("LOG_PRETTY", "false") == "true")
	log := logger.GetLogger()

	port := getEnv("API_PORT", "8000")

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "scuffle")
	dbPassword := getEnv("DB_PASSWORD", "scuffle")
	dbName := getEnv("DB_NAME", "scuffle")
	dbSSLMode := getEnv("DB_SSL_MODE", "disable") // SECURITY: should be "require" in production

	cacheEnabled := getEnv("CACHE_ENABLED", "false") == "true"
	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort := getEnv("REDIS_PORT", "6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")

	natsURL := getEnv("NATS_URL", "")
	natsUser := getEnv("NATS_USER", "")
	natsPassword := getEnv("NATS_PASSWORD", "")

	jwtSigningSecret := getEnv("JWT_SIGNING_SECRET", "")
	if jwtSigningSecret == "" {
		log.Fatal().Msg("JWT_SIGNING_SECRET must be set")
	}
	passwordHashCost := getEnvInt("PASSWORD_HASH_COST", 12)
	sessionValidity := time.Duration(getEnvInt("DEFAULT_SESSION_VALIDITY_SECONDS", 604800)) * time.Second

	captchaProviderURL := getEnv("CAPTCHA_PROVIDER_URL", "")
	captchaSecret := getEnv("CAPTCHA_SECRET", "")

	recordingDeleteBatchSize := getEnvInt("RECORDING_DELETE_BATCH_SIZE", 100)
	recordingDeleteStream := getEnv("RECORDING_DELETE_STREAM", "")

	tagLimits := dispatcher.TagLimits{
		MaxTagsPerRow: getEnvInt("MAX_TAGS_PER_ROW", 50),
		MaxKeyLen:     getEnvInt("MAX_TAG_KEY_LEN", 128),
		MaxValueLen:   getEnvInt("MAX_TAG_VALUE_LEN", 256),
	}

	log.Info().Msg("starting control plane API server")

	log.Info().Msg("connecting to database")
	database, err := db.NewDatabase(db.Config{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
		SSLMode:  dbSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	log.Info().Msg("running database migrations")
	if err := database.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	sqlDB := database.DB()

	log.Info().Msg("initializing redis cache")
	redisCache, err := cache.NewCache(cache.Config{
		Host:     redisHost,
		Port:     redisPort,
		Password: redisPassword,
		DB:       0,
		Enabled:  cacheEnabled,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize redis cache, continuing without caching")
		redisCache, _ = cache.NewCache(cache.Config{Enabled: false})
	}
	defer redisCache.Close()

	log.Info().Msg("connecting event publisher")
	eventPublisher, err := events.NewPublisher(events.Config{URL: natsURL, User: natsUser, Password: natsPassword, Subject: recordingDeleteStream})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize event publisher")
	}
	defer eventPublisher.Close()

	// Stores
	usersDB := db.NewUserDB(sqlDB)
	sessionsDB := db.NewSessionDB(sqlDB)
	accessTokensDB := db.NewAccessTokenDB(sqlDB)
	globalStateDB := db.NewGlobalStateDB(sqlDB)
	bucketsDB := db.NewS3BucketDB(sqlDB)
	configsDB := db.NewRecordingConfigDB(sqlDB)
	keypairsDB := db.NewPlaybackKeyPairDB(sqlDB)
	recordingsDB := db.NewRecordingDB(sqlDB)

	// Loaders coalesce concurrent lookups of the same username or the
	// GlobalState singleton (see internal/loader).
	userLoader := loader.NewUserByUsernameLoader(usersDB)
	globalLoader := loader.NewGlobalStateLoader(globalStateDB).WithCache(redisCache)

	// Session tokens and access-token bearer resolution.
	tokenCodec := token.NewCodec(jwtSigningSecret)
	tokenHasher := auth.NewTokenHasher()
	authResolver := auth.NewResolver(accessTokensDB, tokenHasher)

	var captchaVerifier captcha.Verifier = captcha.NoopVerifier{}
	if captchaProviderURL != "" {
		captchaVerifier = captcha.NewHTTPVerifier(captchaProviderURL, captchaSecret)
	}

	authService := auth.NewService(sqlDB, sessionsDB, usersDB, userLoader, globalLoader, tokenCodec, passwordHashCost, sessionValidity, captchaVerifier)

	// Every (resource, permission) request draws from the same process-local
	// token-bucket limiter; a resource with no explicit Config falls back to
	// ratelimit's conservative default (see internal/ratelimit.getLimiter).
	limiter := ratelimit.New(nil)
	defer limiter.Close()

	dispatcherService := dispatcher.NewService(bucketsDB, configsDB, keypairsDB, recordingsDB, limiter, tagLimits)
	recordingsService := recordings.NewService(sqlDB, eventPublisher, limiter, recordingDeleteBatchSize)

	reconcileJob := reconcile.NewJob(sqlDB, recordingsService, getEnv("RECONCILE_SCHEDULE", reconcile.DefaultSchedule))
	if err := reconcileJob.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start reconcile job")
	}
	defer reconcileJob.Stop()

	application := &app{
		database:   database,
		cache:      redisCache,
		publisher:  eventPublisher,
		resolver:   authResolver,
		authSvc:    authService,
		dispatcher: dispatcherService,
		recordings: recordingsService,
	}

	router := newRouter(application)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	log.Info().Str("port", port).Msg("listening")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}

func newRouter(a *app) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		if err := a.database.DB().PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "ready",
			"events_enabled": a.publisher.IsEnabled(),
		})
	})

	return router
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
