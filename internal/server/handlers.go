package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clipforge/video-pipeline/internal/chunker"
	"github.com/clipforge/video-pipeline/internal/mediaengine"
	"github.com/clipforge/video-pipeline/internal/middleware"
	"github.com/clipforge/video-pipeline/internal/processor"
	videoHttp "github.com/clipforge/video-pipeline/internal/videos/delivery/http"
	videoRepository "github.com/clipforge/video-pipeline/internal/videos/repository"
	videoUsecase "github.com/clipforge/video-pipeline/internal/videos/usecase"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	vRepo := videoRepository.NewVideoRepo(s.db)
	vRedisRepo := videoRepository.NewVideoRedisRepo(s.redisClient, s.logger)
	vAWSRepo := videoRepository.NewAwsRepository(s.s3Client, s.preSignClient)

	// The API only uses the optimizer for estimates and strategy listing, so
	// the engine behind it is never loaded here.
	engine := mediaengine.NewFFmpegEngine(s.cfg.Pipeline.FFmpegPath, s.cfg.Pipeline.WorkDir, s.logger)
	proc := processor.NewVideoProcessor(engine, s.logger)
	optimizer := chunker.NewOptimizer(proc, nil, s.logger)

	videoUC := videoUsecase.NewVideoUseCase(s.cfg, vRepo, vRedisRepo, vAWSRepo, optimizer, s.logger)
	videoHandlers := videoHttp.NewVideoHandler(videoUC)

	mw := middleware.NewMiddlewareManager(s.cfg, []string{"*"}, s.logger)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	videoGroup := v1.Group("/video")

	videoHttp.MapVideoRoutes(videoGroup, videoHandlers, mw)
	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
