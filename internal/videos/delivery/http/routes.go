package http

import (
	"github.com/labstack/echo/v4"

	"github.com/clipforge/video-pipeline/internal/middleware"
	"github.com/clipforge/video-pipeline/internal/videos"
)

func MapVideoRoutes(videoGroup *echo.Group, h videos.Handler, mw *middleware.MiddlewareManager) {
	videoGroup.Use(mw.RequestLoggerMiddleware)
	videoGroup.POST("/get-upload-url", h.GetPresignUpload())
	videoGroup.POST("/register", h.RegisterVideo())
	videoGroup.POST("/estimate", h.EstimateProcessing())
	videoGroup.GET("/strategies", h.ListStrategies())
	videoGroup.GET("/list-videos", h.ListVideos())
	videoGroup.GET("/search", h.SearchVideos())
	videoGroup.GET("/:video_id", h.GetVideoByID())
	videoGroup.DELETE("/:video_id", h.DeleteVideo())
	videoGroup.GET("/jobs/:job_id", h.GetJobStatus())
}
