package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeghana/internal/ai"
	"resumeghana/internal/api/middleware"
	"resumeghana/internal/resume"
)

// AIService 是 AI 辅助接口依赖的能力。
type AIService interface {
	EnhanceSection(ctx context.Context, userID uint, sectionType, content string) (string, error)
	Review(ctx context.Context, userID uint, in resume.Input) (ai.ReviewResult, error)
	Suggest(ctx context.Context, userID uint, step int, form map[string]any) (ai.Suggestion, error)
}

// AIHandler 负责 /v1/ai 下的辅助接口。
type AIHandler struct {
	service AIService
}

// NewAIHandler 构造 AIHandler。
func NewAIHandler(service AIService) *AIHandler {
	return &AIHandler{service: service}
}

type enhanceRequest struct {
	SectionType string `json:"section_type"`
	Content     string `json:"content"`
}

// Suggest 按表单步骤返回向导反馈或增强建议。
// 请求体为 {"step": n, "formData": {...}}；缺少 formData 时整个请求体视为表单。
func (h *AIHandler) Suggest(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "invalid json body")
		return
	}

	step := 1
	if raw, ok := body["step"]; ok {
		n, ok := stepNumber(raw)
		if !ok {
			BadRequest(c, "step must be an integer")
			return
		}
		step = n
	}

	form := body
	if nested, ok := body["formData"].(map[string]any); ok {
		form = nested
	}

	suggestion, err := h.service.Suggest(c.Request.Context(), userID, step, form)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

// Enhance 改写单个分节文本。
func (h *AIHandler) Enhance(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req enhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		BadRequest(c, "content is required")
		return
	}

	enhanced, err := h.service.EnhanceSection(c.Request.Context(), userID, req.SectionType, req.Content)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enhanced": enhanced})
}

// Review 对整份简历打分并给出改进建议。
func (h *AIHandler) Review(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var in resume.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid json body")
		return
	}

	result, err := h.service.Review(c.Request.Context(), userID, in)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func stepNumber(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
