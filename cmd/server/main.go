package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gmux "github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/carelane/authcore/application/port/outbound"
	"github.com/carelane/authcore/application/usecase"
	"github.com/carelane/authcore/domain/role"
	"github.com/carelane/authcore/infrastructure/adapter/postgres"
	"github.com/carelane/authcore/infrastructure/adapter/redisstore"
	"github.com/carelane/authcore/infrastructure/config"
	"github.com/carelane/authcore/infrastructure/http/handler"
	"github.com/carelane/authcore/infrastructure/http/middleware"
	"github.com/carelane/authcore/infrastructure/service/logger"
	"github.com/carelane/authcore/infrastructure/service/password"
	"github.com/carelane/authcore/infrastructure/service/ratelimit"
	"github.com/carelane/authcore/infrastructure/service/token"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "authcore",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Environment,
	})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", nil)

	// Redis backs both the token blacklist and the rate limit counters. A
	// failed connection is fatal only under fail-secure; otherwise the
	// service degrades to in-memory throttling and an unenforced blacklist.
	store, err := redisstore.New(cfg.RedisURL)
	if err != nil {
		if cfg.FailSecure {
			structuredLogger.Error(ctx, "Failed to connect to Redis", err, map[string]interface{}{
				"redis_url": cfg.RedisURL,
			})
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		structuredLogger.Warn(ctx, "Redis unavailable, continuing degraded", map[string]interface{}{
			"redis_url": cfg.RedisURL,
		})
		store = nil
	} else {
		defer store.Close()
	}

	userRepo := postgres.NewUserRepositoryAdapter(db)

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.TokenIssuer, cfg.TokenAudience, cfg.Leeway)
	if err != nil {
		log.Fatalf("Failed to initialize token codec: %v", err)
	}

	// Assign through the interface only when the store exists so that a nil
	// *redisstore.Store never masquerades as a usable backend.
	var kvStore outbound.KeyValueStore
	if store != nil {
		kvStore = store
	}

	tokenManager := token.NewManager(codec, kvStore, structuredLogger, token.ManagerConfig{
		AccessTokenTTL:   cfg.AccessTokenTTL,
		RefreshTokenTTL:  cfg.RefreshTokenTTL,
		BlacklistEnabled: cfg.BlacklistEnabled,
		FailSecure:       cfg.FailSecure,
	})

	rateLimitService := ratelimit.NewService(kvStore, structuredLogger)

	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)

	authUseCase := usecase.NewAuthUseCase(
		userRepo,
		tokenManager,
		passwordService,
		rateLimitService,
		structuredLogger,
		usecase.AuthConfig{
			AccessTokenTTL:  cfg.AccessTokenTTL,
			AuthMaxAttempts: cfg.AuthMaxAttempts,
			AuthLockout:     cfg.AuthLockout,
		},
	)

	authGateway := middleware.NewAuthGateway(tokenManager, rateLimitService, userRepo, structuredLogger,
		middleware.AuthGatewayConfig{
			AuthMaxAttempts: cfg.AuthMaxAttempts,
			AuthLockout:     cfg.AuthLockout,
		})
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimitService, structuredLogger,
		middleware.RateLimitConfig{
			RequestLimitMax:    cfg.RequestLimitMax,
			RequestLimitWindow: cfg.RequestLimitWindow,
			LoginLimitMax:      cfg.LoginLimitMax,
			LoginLimitWindow:   cfg.LoginLimitWindow,
		})

	authHandler := handler.NewAuthHandler(authUseCase)

	router := gmux.NewRouter()
	router.Use(middleware.CorrelationID)
	router.Use(rateLimitMiddleware.RateLimit)

	v1 := router.PathPrefix("/v1/auth").Subrouter()
	v1.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	v1.HandleFunc("/refresh", authHandler.Refresh).Methods(http.MethodPost)

	protected := router.PathPrefix("/v1/auth").Subrouter()
	protected.Use(authGateway.RequireAuth)
	protected.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/change-password", authHandler.ChangePassword).Methods(http.MethodPost)

	admin := router.PathPrefix("/v1/admin").Subrouter()
	admin.Use(authGateway.RequireAuth)
	admin.Use(authGateway.RequireRole(role.Admin))
	admin.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	}).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "Server failed to start", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
