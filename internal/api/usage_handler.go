package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeghana/internal/api/middleware"
	"resumeghana/internal/database"
)

// UsageSummarizer 汇总用户的 AI 用量。
type UsageSummarizer interface {
	Summary(ctx context.Context, userID uint) (database.UsageSummary, error)
}

// UsageHandler 返回当前用户的 AI token 用量。
type UsageHandler struct {
	usage UsageSummarizer
}

func NewUsageHandler(usage UsageSummarizer) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// GetUsage GET /v1/usage
func (h *UsageHandler) GetUsage(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	summary, err := h.usage.Summary(c.Request.Context(), userID)
	if err != nil {
		loggerFrom(c).Error("query ai usage failed", "error", err)
		Internal(c, "failed to query usage")
		return
	}
	c.JSON(http.StatusOK, summary)
}
