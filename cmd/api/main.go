package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/gradworks/pgdms-api/api/swagger"
	"github.com/gradworks/pgdms-api/internal/handler"
	"github.com/gradworks/pgdms-api/internal/middleware"
	"github.com/gradworks/pgdms-api/internal/repository"
	"github.com/gradworks/pgdms-api/internal/service"
	"github.com/gradworks/pgdms-api/pkg/cache"
	"github.com/gradworks/pgdms-api/pkg/config"
	"github.com/gradworks/pgdms-api/pkg/database"
	"github.com/gradworks/pgdms-api/pkg/logger"
	corsmiddleware "github.com/gradworks/pgdms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gradworks/pgdms-api/pkg/middleware/requestid"
)

// @title PGDMS API
// @version 1.0.0
// @description Authentication, session and registration-approval API for the postgraduate dissertation management system
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db, cfg.Audit.MaxEntries)
	registrationRepo := repository.NewRegistrationRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)

	if cfg.Seed.DemoAccounts {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := repository.SeedDemoAccounts(ctx, userRepo, logr); err != nil {
			cancel()
			logr.Sugar().Fatalw("failed to seed demo accounts", "error", err)
		}
		cancel()
	}

	issuer := service.NewTokenIssuer(cfg.Session.TTL)
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, auditRepo, issuer, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		LockoutThreshold:  cfg.Auth.LockoutThreshold,
		LockoutDuration:   cfg.Auth.LockoutDuration,
	})
	sessionSvc := service.NewSessionService(sessionRepo, issuer, cfg.Session.RefreshWindow, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, userRepo, auditRepo, nil, logr)
	userSvc := service.NewUserService(userRepo, auditRepo, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc, sessionSvc, metricsSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, metricsSvc)
	auditHandler := handler.NewAuditHandler(auditRepo)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/session", authHandler.Session)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	registrations := api.Group("/registrations")
	{
		registrations.POST("", registrationHandler.Submit)

		review := registrations.Group("", middleware.JWT(authSvc), middleware.RequirePermission(service.PermRegistrationsReview))
		review.GET("", registrationHandler.List)
		review.GET("/stats", registrationHandler.Stats)
		review.POST("/:id/approve", registrationHandler.Approve)
		review.POST("/:id/reject", registrationHandler.Reject)
		review.POST("/:id/request-info", registrationHandler.RequestInfo)
	}

	users := api.Group("/users", middleware.JWT(authSvc), middleware.RequirePermission(service.PermUsersManage))
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PATCH("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Deactivate)
	}

	api.GET("/audit-logs", middleware.JWT(authSvc), middleware.RequirePermission(service.PermAuditView), auditHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
