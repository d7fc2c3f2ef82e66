package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/clipforge/video-pipeline/internal/chunker"
	"github.com/clipforge/video-pipeline/internal/config"
	"github.com/clipforge/video-pipeline/internal/mediaengine"
	"github.com/clipforge/video-pipeline/internal/metadata"
	"github.com/clipforge/video-pipeline/internal/processor"
	"github.com/clipforge/video-pipeline/internal/thumbnails"
	"github.com/clipforge/video-pipeline/internal/videos/repository"
	"github.com/clipforge/video-pipeline/internal/worker"
	"github.com/clipforge/video-pipeline/pkg/db/aws"
	"github.com/clipforge/video-pipeline/pkg/db/postgres"
	clientRedis "github.com/clipforge/video-pipeline/pkg/db/redis"
	"github.com/clipforge/video-pipeline/pkg/logger"
)

func main() {
	cfgFile, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer redisClient.Close()

	s3Client, presignClient, err := aws.NewAWSClient(context.Background(), cfg.S3)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	videoRepo := repository.NewVideoRepo(psqlDB)
	redisRepo := repository.NewVideoRedisRepo(redisClient, appLogger)
	awsRepo := repository.NewAwsRepository(s3Client, presignClient)

	engine := mediaengine.NewFFmpegEngine(cfg.Pipeline.FFmpegPath, cfg.Pipeline.WorkDir, appLogger)
	proc := processor.NewVideoProcessor(engine, appLogger)
	optimizer := chunker.NewOptimizer(proc, nil, appLogger)
	extractor := metadata.NewExtractor(proc, appLogger)
	generator := thumbnails.NewGenerator(proc, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	pipeline := worker.NewJobProcessor(optimizer, extractor, generator, redisRepo, awsRepo, videoRepo, appLogger)
	w := worker.NewWorker(cfg, appLogger, redisRepo, awsRepo, videoRepo, pipeline)
	w.Start(ctx)

	if err := proc.Cleanup(context.Background()); err != nil {
		appLogger.Warnf("engine cleanup: %v", err)
	}
}
