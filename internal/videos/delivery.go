package videos

import "github.com/labstack/echo/v4"

type Handler interface {
	GetPresignUpload() echo.HandlerFunc
	RegisterVideo() echo.HandlerFunc
	ListVideos() echo.HandlerFunc
	GetVideoByID() echo.HandlerFunc
	SearchVideos() echo.HandlerFunc
	DeleteVideo() echo.HandlerFunc
	GetJobStatus() echo.HandlerFunc
	EstimateProcessing() echo.HandlerFunc
	ListStrategies() echo.HandlerFunc
}
