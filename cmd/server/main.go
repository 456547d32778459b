package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/tag-catalog/internal/config"
	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/feed"
	"github.com/benvon/tag-catalog/internal/handlers"
	"github.com/benvon/tag-catalog/internal/logger"
	"github.com/benvon/tag-catalog/internal/middleware"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/permission"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/services/oidc"
	"github.com/benvon/tag-catalog/internal/telemetry"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "tag-catalog"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_disabled", cfg.AuthDisabled),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
				ServiceName:    serviceName,
				ServiceVersion: handlers.Version,
				Endpoint:       cfg.OTELEndpoint,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracingEnabled = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	migrateCancel()
	zapLogger.Info("connected_to_database")

	// Redis backs both the rate limiter and the permission cache
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	pingCancel()
	zapLogger.Info("connected_to_redis")

	// Retry with exponential backoff to ride out RabbitMQ startup delays
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var jobQueue *queue.RabbitMQQueue
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err = queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
		if err == nil {
			break
		}
		delay := min(initialDelay*time.Duration(1<<uint(attempt)), 30*time.Second)
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	classificationRepo := database.NewClassificationRepository(db)
	tagRepo := database.NewTagRepository(db)
	versionRepo := database.NewVersionRepository(db)
	threadRepo := database.NewThreadRepository(db)
	settingsRepo := database.NewSettingsRepository(db)
	userRepo := database.NewUserRepository(db)

	deps := handlers.Deps{
		Oracle: permission.NewCachedOracle(permission.RoleOracle{}, redisClient, cfg.PermissionTTL, zapLogger),
		Jobs:   jobQueue,
		Logger: zapLogger,
	}

	classificationHandler := handlers.NewClassificationHandler(classificationRepo, versionRepo, deps)
	tagHandler := handlers.NewTagHandler(tagRepo, classificationRepo, versionRepo, cfg.PageSize, deps)
	permissionHandler := handlers.NewPermissionHandler(deps)
	feedHandler := handlers.NewFeedHandler(feed.NewService(threadRepo, zapLogger), deps)
	authHandler := handlers.NewAuthHandler(oidc.NewLoginConfig(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCAuthURL, cfg.OIDCTokenURL))
	healthChecker := handlers.NewHealthChecker(map[string]handlers.CheckFunc{
		"database": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"queue":    jobQueue.HealthCheck,
	})

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order, outermost first
	if tracingEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	corsReloader := middleware.NewCORSReloader(settingsRepo, cfg.BaseURL, zapLogger, time.Minute)
	r.Use(corsReloader.Middleware())
	limiterStore, err := redisstore.NewStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, settingsRepo, middleware.DefaultRatelimitRate, zapLogger, time.Minute)
	rateLimitMW := rateLimitReloader.Middleware()
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize, zapLogger))
	r.Use(middleware.ContentType(zapLogger))
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", handlers.VersionInfo).Methods("GET")
	handlers.NewOpenAPIHandler(nil).RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	publicAuthRouter := authRouter.PathPrefix("").Subrouter()
	publicAuthRouter.Use(rateLimitMW)
	authHandler.RegisterPublicRoutes(publicAuthRouter)

	var authMW func(http.Handler) http.Handler
	if cfg.AuthDisabled {
		zapLogger.Warn("authentication_disabled")
		name := "local admin"
		authMW = middleware.StaticUser(&models.User{
			ID:    uuid.Nil,
			Email: "admin@localhost",
			Name:  &name,
			Roles: []string{models.RoleAdmin},
		})
	} else {
		verifier := oidc.NewVerifier(oidc.NewJWKSManager(cfg.OIDCJWKSURL), cfg.OIDCIssuer, cfg.OIDCAudience, cfg.OIDCRolesClaim)
		authMW = middleware.Auth(userRepo, verifier, zapLogger)
	}

	protected := apiRouter.PathPrefix("").Subrouter()
	protected.Use(authMW)
	protected.Use(rateLimitMW)
	protected.Use(middleware.AuditMutations(zapLogger))
	authHandler.RegisterRoutes(protected.PathPrefix("/auth").Subrouter())
	classificationHandler.RegisterRoutes(protected.PathPrefix("/classifications").Subrouter())
	tagHandler.RegisterRoutes(protected.PathPrefix("/tags").Subrouter())
	permissionHandler.RegisterRoutes(protected.PathPrefix("/permissions").Subrouter())
	feedHandler.RegisterRoutes(protected.PathPrefix("/feed").Subrouter())

	// Preflight requests are answered by the CORS middleware before this runs
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   35 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go corsReloader.Start(bgCtx)
	go rateLimitReloader.Start(bgCtx)

	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
		return
	}
	zapLogger.Info("server_exited")
}
