package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clipforge/video-pipeline/internal/config"
	"github.com/clipforge/video-pipeline/pkg/logger"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

type MiddlewareManager struct {
	cfg     *config.Config
	origins []string
	logger  logger.Logger
}

// Middleware manager constructor
func NewMiddlewareManager(cfg *config.Config, origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{cfg: cfg, origins: origins, logger: logger}
}

// RequestLoggerMiddleware logs method, URI, status and latency per request.
func (mw *MiddlewareManager) RequestLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		req := c.Request()
		res := c.Response()
		status := res.Status
		if err != nil {
			c.Error(err)
			status = res.Status
		}
		mw.logger.Infof("%s %s, RequestID: %s, Status: %d, Latency: %s",
			req.Method, req.RequestURI, utils.GetRequestID(c), status, time.Since(start),
		)
		return err
	}
}
