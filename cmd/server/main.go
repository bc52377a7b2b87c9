// Package main runs the video platform HTTP server: uploads, metadata and
// HLS artifact serving, with graceful shutdown.
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

	"github.com/videoflix/backend/config"
	"github.com/videoflix/backend/internal/hls"
	"github.com/videoflix/backend/internal/middleware"
	"github.com/videoflix/backend/internal/pipeline"
	"github.com/videoflix/backend/internal/videos"
	"github.com/videoflix/backend/pkg/database"
	"github.com/videoflix/backend/pkg/queue"
	"github.com/videoflix/backend/pkg/redis"
	"github.com/videoflix/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	if err := hls.ValidateLadder(); err != nil {
		logger.Fatal("rendition ladder", zap.Error(err))
	}

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

	if err := os.MkdirAll(cfg.Media.Root, 0o750); err != nil {
		logger.Fatal("media root", zap.Error(err))
	}

	videoRepo := videos.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	orchestrator := pipeline.NewOrchestrator(jobQueue, logger)
	videoHandler := videos.NewHandler(videoRepo, orchestrator, cfg.Media.Root, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api/video")
	{
		api.POST("/", videoHandler.Upload)
		api.GET("/", videoHandler.List)
		api.GET("/:id", videoHandler.Get)
		api.DELETE("/:id", videoHandler.Delete)
		api.GET("/:id/master.m3u8", videoHandler.ServeMaster)
		api.GET("/:id/:resolution/index.m3u8", videoHandler.ServePlaylist)
		api.GET("/:id/:resolution/:segment", videoHandler.ServeSegment)
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
