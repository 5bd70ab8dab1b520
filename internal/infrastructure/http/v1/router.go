// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercatus/internal/domain/auth"
	"mercatus/internal/domain/purchasesale"
	"mercatus/internal/infrastructure/http/v1/handlers"
	"mercatus/internal/infrastructure/http/v1/middleware"
	"mercatus/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool    *pgxpool.Pool
	Logger  *logger.Logger
	Version string

	JWTValidator middleware.JWTValidator
	AuthService  *auth.Service

	ReportService *purchasesale.Service
	LookupService *purchasesale.Lookups
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	base := handlers.NewBaseHandler()

	// Health endpoints, no auth required.
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", authHandler.Login)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		protected.GET("/auth/me", authHandler.Me)

		psHandler := handlers.NewPurchaseSaleHandler(base, cfg.ReportService)
		ps := protected.Group("/purchase-sale")
		{
			ps.GET("/sections", psHandler.Sections)
			ps.GET("/groups", psHandler.Groups)
			ps.GET("/subgroups", psHandler.SubGroups)
			ps.GET("/items", psHandler.Items)
			ps.GET("/totals", psHandler.Totals)
			ps.GET("/loan-detail", psHandler.LoanDetail)
		}

		lookupHandler := handlers.NewLookupHandler(base, cfg.LookupService)
		lookups := protected.Group("/lookups")
		{
			lookups.GET("/sections", lookupHandler.Sections)
			lookups.GET("/groups", lookupHandler.Groups)
			lookups.GET("/subgroups", lookupHandler.SubGroups)
			lookups.GET("/stores", lookupHandler.Stores)
			lookups.GET("/buyers", lookupHandler.Buyers)
		}

		adminHandler := handlers.NewAdminHandler(cfg.Pool)
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/db-stats", adminHandler.DBStats)
		}
	}

	return router
}
