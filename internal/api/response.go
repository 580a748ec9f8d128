package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeghana/internal/completion"
	"resumeghana/internal/llmjson"
	"resumeghana/internal/resume"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func BadRequest(c *gin.Context, msg string)         { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)          { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)           { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)           { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)           { Error(c, http.StatusInternalServerError, msg) }
func ServiceUnavailable(c *gin.Context, msg string) { Error(c, http.StatusServiceUnavailable, msg) }

// aiErrorStatus 将 AI 调用错误映射为 HTTP 状态码。
func aiErrorStatus(err error) int {
	var cfgErr *completion.ConfigError
	switch {
	case errors.Is(err, resume.ErrValidation):
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, completion.ErrRateLimit):
		return http.StatusServiceUnavailable
	case errors.Is(err, completion.ErrAuth),
		errors.Is(err, completion.ErrTransport),
		errors.Is(err, llmjson.ErrMalformedResponse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeAIError 写出 AI 失败响应；5xx 记录错误日志。
func writeAIError(c *gin.Context, err error) {
	status := aiErrorStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		loggerFrom(c).Error("ai request failed", "status", status, "error", err)
		if status == http.StatusInternalServerError {
			msg = "ai request failed"
		}
	}
	Error(c, status, msg)
}
