package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rmaulana/school-notify-api/api/swagger"
	"github.com/rmaulana/school-notify-api/internal/handler"
	"github.com/rmaulana/school-notify-api/internal/middleware"
	"github.com/rmaulana/school-notify-api/internal/policy"
	"github.com/rmaulana/school-notify-api/internal/repository"
	"github.com/rmaulana/school-notify-api/internal/seed"
	"github.com/rmaulana/school-notify-api/internal/service"
	"github.com/rmaulana/school-notify-api/pkg/cache"
	"github.com/rmaulana/school-notify-api/pkg/config"
	"github.com/rmaulana/school-notify-api/pkg/database"
	"github.com/rmaulana/school-notify-api/pkg/logger"
	corsmiddleware "github.com/rmaulana/school-notify-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rmaulana/school-notify-api/pkg/middleware/requestid"
)

// @title School Notify API
// @version 1.0.0
// @description Role-scoped school-to-parent notification portal
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

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
		}
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-notify-api",
	})
	directorySvc := service.NewDirectoryService(userRepo, studentRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, studentRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(notificationRepo, studentRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	if cfg.Seed.Enabled {
		seeder := seed.New(userRepo, studentRepo, notificationRepo, logr)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := seeder.Run(ctx); err != nil {
			logr.Sugar().Fatalw("failed to load seed fixtures", "error", err)
		}
		cancel()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(directorySvc, dashboardSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, dashboardSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	students := protected.Group("/students")
	students.POST("/register", middleware.Authorize(policy.ActionRegisterParentStudent), studentHandler.Register)
	students.POST("", middleware.Authorize(policy.ActionAddChild), studentHandler.AddChild)
	students.GET("", middleware.Authorize(policy.ActionManageStudents), studentHandler.List)
	students.GET("/search", middleware.Authorize(policy.ActionManageStudents), studentHandler.Search)
	students.GET("/export", middleware.Authorize(policy.ActionManageStudents), studentHandler.Export)
	students.GET("/:id", middleware.Authorize(policy.ActionManageStudents), studentHandler.Get)
	students.PUT("/:id", middleware.Authorize(policy.ActionManageStudents), studentHandler.Update)
	students.DELETE("/:id", middleware.Authorize(policy.ActionManageStudents), studentHandler.Delete)

	notifications := protected.Group("/notifications")
	notifications.POST("", middleware.Authorize(policy.ActionCreateNotification), notificationHandler.Create)
	notifications.GET("", middleware.Authorize(policy.ActionViewAllNotifications), notificationHandler.ListAll)
	notifications.GET("/mine", middleware.Authorize(policy.ActionViewOwnCreated), notificationHandler.ListMine)
	notifications.GET("/parent", middleware.Authorize(policy.ActionViewChildNotifications), notificationHandler.ListForParent)
	notifications.PATCH("/:id/read", middleware.Authorize(policy.ActionMarkRead), notificationHandler.MarkRead)
	notifications.POST("/read-all", middleware.Authorize(policy.ActionMarkRead), notificationHandler.MarkAllRead)

	dashboard := protected.Group("/dashboard")
	dashboard.GET("/teacher", dashboardHandler.Teacher)
	dashboard.GET("/office", dashboardHandler.Office)
	dashboard.GET("/parent", dashboardHandler.Parent)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
