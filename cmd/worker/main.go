// Package main runs the background worker pool draining the pipeline
// queue (rendition encoding, thumbnails, playlist composition, cleanup).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/videoflix/backend/config"
	"github.com/videoflix/backend/internal/ffmpeg"
	"github.com/videoflix/backend/internal/hls"
	"github.com/videoflix/backend/internal/pipeline"
	"github.com/videoflix/backend/internal/videos"
	"github.com/videoflix/backend/internal/worker"
	"github.com/videoflix/backend/pkg/database"
	"github.com/videoflix/backend/pkg/queue"
	"github.com/videoflix/backend/pkg/redis"
	"github.com/videoflix/backend/pkg/storage"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	videoRepo := videos.NewRepository(pool)
	runner := ffmpeg.NewExec(cfg.Media.FFmpegBin, logger)
	processor := pipeline.NewProcessor(videoRepo, runner, cfg.Media.Root, logger)

	// Source archiving is optional: no bucket, no archiver.
	if cfg.AWS.ArchiveBucket != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ArchiveBucket:   cfg.AWS.ArchiveBucket,
		}
		s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("source archiving disabled", zap.Error(err))
		} else {
			processor.SetArchiver(s3Client)
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	workerPool := worker.NewPool(jobQueue, processor, cfg.Worker.Concurrency, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		workerPool.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started", zap.Int("concurrency", cfg.Worker.Concurrency))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-done
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
