// Package main is the entry point for the Mercatus API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mercatus/internal/domain/auth"
	"mercatus/internal/domain/purchasesale"
	"mercatus/internal/infrastructure/cache"
	v1 "mercatus/internal/infrastructure/http/v1"
	"mercatus/internal/infrastructure/storage/postgres"
	"mercatus/internal/infrastructure/storage/postgres/auth_repo"
	"mercatus/internal/infrastructure/storage/postgres/erp_repo"
	"mercatus/pkg/logger"
)

var version = "dev"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting mercatus server")

	// --- Database connection ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// --- Schema mapping cache ---
	mappingCache := cache.NewMappingCache(pool.Pool)
	if err := mappingCache.Start(ctx); err != nil {
		log.Fatalw("failed to start mapping cache", "error", err)
	}
	defer mappingCache.Stop()

	// --- Result cache ---
	resultTTL := getEnvDuration("RESULT_CACHE_TTL", 2*time.Minute)
	resultCache, err := cache.NewResultCache(resultTTL)
	if err != nil {
		log.Fatalw("failed to create result cache", "error", err)
	}

	// --- JWT and auth services ---
	jwtSecret := mustEnv("JWT_SECRET")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	userRepo := auth_repo.NewUserRepo(pool.Pool)
	authService := auth.NewService(userRepo, jwtService)

	// --- Reporting services ---
	erpRepo := erp_repo.NewRepo(pool.Pool, mappingCache)
	reportService := purchasesale.NewService(erpRepo, resultCache)
	lookupService := purchasesale.NewLookups(erpRepo)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:          pool.Pool,
		Logger:        log,
		Version:       version,
		JWTValidator:  jwtService,
		AuthService:   authService,
		ReportService: reportService,
		LookupService: lookupService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
