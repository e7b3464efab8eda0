// Package main runs the construction-site safety platform HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sitesafe/backend/config"
	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/internal/companies"
	"github.com/sitesafe/backend/internal/invites"
	"github.com/sitesafe/backend/internal/memberships"
	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/internal/ppe"
	"github.com/sitesafe/backend/internal/projects"
	"github.com/sitesafe/backend/internal/tasks"
	"github.com/sitesafe/backend/internal/workers"
	"github.com/sitesafe/backend/pkg/database"
	"github.com/sitesafe/backend/pkg/queue"
	"github.com/sitesafe/backend/pkg/redis"
	"github.com/sitesafe/backend/pkg/response"
	"github.com/sitesafe/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			EvidenceBucket:       cfg.AWS.EvidenceBucket,
			PhotosBucket:         cfg.AWS.PhotosBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Identity and tenancy
	userRepo := auth.NewRepository(pool)
	ledger := memberships.NewRepository(pool)
	resolver := auth.NewResolver(ledger)
	workerRepo := workers.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, ledger, workerRepo, tokens, resolver, logger)

	// Companies
	companyRepo := companies.NewRepository(pool)
	companyHandler := companies.NewHandler(companyRepo, ledger, userRepo, tokens, logger)

	// Members and invites
	memberHandler := memberships.NewHandler(ledger, userRepo, workerRepo, logger)
	inviteRepo := invites.NewRepository(pool)
	inviteHandler := invites.NewHandler(inviteRepo, companyRepo, ledger, userRepo, jobQueue, logger)

	// Workers
	workerHandler := workers.NewHandler(workerRepo, userRepo, ledger, s3Client, logger)

	// Projects and tasks
	projectRepo := projects.NewRepository(pool)
	projectHandler := projects.NewHandler(projectRepo, logger)
	taskRepo := tasks.NewRepository(pool)
	taskHandler := tasks.NewHandler(taskRepo, projectRepo, logger)

	// PPE checks
	ppeRepo := ppe.NewRepository(pool)
	ppeHandler := ppe.NewHandler(ppeRepo, taskRepo, s3Client, logger)

	roleAdmin := string(models.RoleAdmin)
	roleManager := string(models.RoleManager)
	roleSubcontractor := string(models.RoleSubcontractor)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public
	router.POST("/auth/login", authHandler.Login)
	router.POST("/companies/register", companyHandler.Register)
	router.POST("/workers/register", workerHandler.RegisterIndependent)
	router.POST("/workers/:companyId/register", workerHandler.SelfRegister)

	// Authenticated, not tenant-scoped
	api := router.Group("")
	api.Use(middleware.Auth(tokens))
	{
		api.GET("/auth/me", authHandler.Me)
		api.PATCH("/auth/me", authHandler.UpdateMe)
		api.GET("/workers/me", workerHandler.Me)
		api.POST("/workers/link", workerHandler.Link)
		api.POST("/invites/accept", inviteHandler.Accept)
	}

	// Tenant-scoped
	company := router.Group("/companies/:companyId")
	company.Use(middleware.Auth(tokens), middleware.RequireTenant(resolver))
	{
		company.GET("", companyHandler.Get)
		company.PATCH("", middleware.RequireRole(roleAdmin), companyHandler.Update)
		company.DELETE("", middleware.RequireRole(roleAdmin), companyHandler.Delete)
		company.POST("/verify", middleware.RequireRole(roleAdmin), companyHandler.Verify)
		company.POST("/reject", middleware.RequireRole(roleAdmin), companyHandler.Reject)

		company.POST("/members", middleware.RequireRole(roleAdmin), memberHandler.Add)
		company.GET("/members", middleware.RequireRole(roleAdmin, roleManager), memberHandler.List)
		company.PATCH("/members/:userId", middleware.RequireRole(roleAdmin), memberHandler.Decide)
		company.DELETE("/members/:userId", middleware.RequireRole(roleAdmin), memberHandler.Remove)

		company.POST("/invites", middleware.RequireRole(roleAdmin), inviteHandler.Create)
		company.GET("/invites", middleware.RequireRole(roleAdmin), inviteHandler.List)
		company.POST("/invites/:inviteId/revoke", middleware.RequireRole(roleAdmin), inviteHandler.Revoke)

		company.POST("/workers", middleware.RequireRole(roleAdmin, roleManager), workerHandler.Enroll)
		company.GET("/workers", middleware.RequireRole(roleAdmin, roleManager), workerHandler.ListRoster)
		company.POST("/workers/:workerId/unlink", middleware.RequireRole(roleAdmin, roleManager), workerHandler.Unlink)
		company.POST("/workers/:workerId/photo", middleware.RequireRole(roleAdmin, roleManager), workerHandler.UploadPhoto)
		company.POST("/workers/:workerId/photo-upload-url", middleware.RequireRole(roleAdmin, roleManager), workerHandler.PhotoUploadURL)
		company.POST("/workers/:workerId/photo/confirm", middleware.RequireRole(roleAdmin, roleManager), workerHandler.ConfirmPhoto)

		company.POST("/projects", middleware.RequireRole(roleAdmin, roleManager), projectHandler.Create)
		company.GET("/projects", projectHandler.List)
		company.GET("/projects/:projectId", projectHandler.Get)
		company.PATCH("/projects/:projectId", middleware.RequireRole(roleAdmin, roleManager), projectHandler.Update)
		company.DELETE("/projects/:projectId", middleware.RequireRole(roleAdmin), projectHandler.Delete)

		company.POST("/projects/:projectId/tasks", middleware.RequireRole(roleAdmin, roleManager), taskHandler.Create)
		company.GET("/projects/:projectId/tasks", taskHandler.List)
		company.GET("/tasks/:taskId", taskHandler.Get)
		company.PATCH("/tasks/:taskId", middleware.RequireRole(roleAdmin, roleManager), taskHandler.Update)
		company.DELETE("/tasks/:taskId", middleware.RequireRole(roleAdmin, roleManager), taskHandler.Delete)

		company.POST("/tasks/:taskId/assignments", middleware.RequireRole(roleAdmin, roleManager), taskHandler.Assign)
		company.GET("/tasks/:taskId/assignments", taskHandler.ListAssigned)
		company.DELETE("/tasks/:taskId/assignments/:workerId", middleware.RequireRole(roleAdmin, roleManager), taskHandler.Unassign)

		company.POST("/tasks/:taskId/checks", middleware.RequireRole(roleManager, roleSubcontractor), ppeHandler.Submit)
		company.GET("/tasks/:taskId/checks", middleware.RequireRole(roleAdmin, roleManager, roleSubcontractor), ppeHandler.List)
		company.POST("/checks/evidence-upload-url", middleware.RequireRole(roleManager, roleSubcontractor), ppeHandler.EvidenceUploadURL)
		company.GET("/checks/evidence-download-url", middleware.RequireRole(roleAdmin, roleManager, roleSubcontractor), ppeHandler.EvidenceDownloadURL)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
