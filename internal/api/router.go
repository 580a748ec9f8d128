package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resumeghana/internal/api/middleware"
	"resumeghana/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎：Correlation ID、请求日志、指标与健康检查。
func NewRouter(logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func loggerFrom(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContext(c)
}
