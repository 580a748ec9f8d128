package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"resumeghana/internal/api/middleware"
	"resumeghana/internal/builder"
	"resumeghana/internal/database"
	"resumeghana/internal/render"
	"resumeghana/internal/resume"
	"resumeghana/internal/tasks"
)

// ResumeBuilder 生成简历 HTML。
type ResumeBuilder interface {
	Build(ctx context.Context, userID uint, in resume.Input, templateID string, photo *builder.Photo) (builder.Result, error)
}

// TaskEnqueuer 是 asynq.Client 的最小子集。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// LinkSigner 生成对象的限时下载链接。
type LinkSigner interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration, filename string) (string, error)
}

const downloadLinkTTL = 5 * time.Minute

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	db         *gorm.DB
	builder    ResumeBuilder
	photos     builder.PhotoStore
	queue      TaskEnqueuer
	links      LinkSigner
	maxResumes int
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(db *gorm.DB, b ResumeBuilder, photos builder.PhotoStore, queue TaskEnqueuer, links LinkSigner, maxResumes int) *ResumeHandler {
	return &ResumeHandler{
		db:         db,
		builder:    b,
		photos:     photos,
		queue:      queue,
		links:      links,
		maxResumes: maxResumes,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

type experienceEntry struct {
	Company     string `json:"company"`
	Years       string `json:"years"`
	Description string `json:"description"`
}

type educationEntry struct {
	School   string `json:"school"`
	Duration string `json:"duration"`
	Skills   string `json:"skills"`
}

// buildRequest 为表单提交的简历数据。重复的经历/教育分组在对应文本为空时折叠为 "---" 分隔文本。
type buildRequest struct {
	resume.Input
	Template          string            `json:"template"`
	ExperienceEntries []experienceEntry `json:"experience_entries"`
	EducationEntries  []educationEntry  `json:"education_entries"`
}

func (r buildRequest) toInput() resume.Input {
	in := r.Input
	if strings.TrimSpace(in.Experience) == "" && len(r.ExperienceEntries) > 0 {
		entries := make([]resume.Entry, 0, len(r.ExperienceEntries))
		for _, e := range r.ExperienceEntries {
			entries = append(entries, resume.Entry{Heading: e.Company, Period: e.Years, Detail: e.Description})
		}
		in.Experience = resume.FoldEntries(entries)
	}
	if strings.TrimSpace(in.Education) == "" && len(r.EducationEntries) > 0 {
		entries := make([]resume.Entry, 0, len(r.EducationEntries))
		for _, e := range r.EducationEntries {
			entries = append(entries, resume.Entry{Heading: e.School, Period: e.Duration, Detail: e.Skills})
		}
		in.Education = resume.FoldEntries(entries)
	}
	return in
}

type builtResponse struct {
	ID       uint   `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Template string `json:"template"`
	HTML     string `json:"html"`
	Degraded bool   `json:"degraded"`
}

type resumeListItem struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Template  string    `json:"template"`
	Status    string    `json:"status"`
	HasPDF    bool      `json:"has_pdf"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type resumeDetail struct {
	builtResponse
	Status string       `json:"status"`
	Input  resume.Input `json:"input"`
}

// PreviewResume 渲染草稿，不保存。
func (h *ResumeHandler) PreviewResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid json body")
		return
	}
	in := req.toInput()
	if in.PhotoKey != "" && !isValidPhotoKey(userID, in.PhotoKey) {
		BadRequest(c, "invalid photo key")
		return
	}

	ctx := c.Request.Context()
	result, err := h.builder.Build(ctx, userID, in, req.Template, h.loadPhoto(c, in.PhotoKey))
	if err != nil {
		writeBuildError(c, err)
		return
	}
	c.JSON(http.StatusOK, builtResponse{Template: result.Template, HTML: result.HTML, Degraded: result.Degraded})
}

// CreateResume 生成并保存一份新简历，超过限额时拒绝。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid json body")
		return
	}
	in := req.toInput()
	if err := in.Validate(); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if in.PhotoKey != "" && !isValidPhotoKey(userID, in.PhotoKey) {
		BadRequest(c, "invalid photo key")
		return
	}

	ctx := c.Request.Context()

	var count int64
	if err := h.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		Internal(c, "failed to count resumes")
		return
	}
	if h.maxResumes > 0 && count >= int64(h.maxResumes) {
		Forbidden(c, "resume limit reached")
		return
	}

	result, err := h.builder.Build(ctx, userID, in, req.Template, h.loadPhoto(c, in.PhotoKey))
	if err != nil {
		writeBuildError(c, err)
		return
	}

	sections, err := database.SectionsFromInput(in)
	if err != nil {
		Internal(c, "failed to encode resume")
		return
	}
	record := database.Resume{
		Title:        in.Title(),
		TemplateName: result.Template,
		UserID:       userID,
		PhotoKey:     in.PhotoKey,
		Status:       database.StatusDraft,
		Sections:     sections,
	}
	if err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&record).Error
	}); err != nil {
		loggerFrom(c).Error("save resume failed", "error", err)
		Internal(c, "failed to save resume")
		return
	}

	c.JSON(http.StatusCreated, builtResponse{
		ID:       record.ID,
		Title:    record.Title,
		Template: result.Template,
		HTML:     result.HTML,
		Degraded: result.Degraded,
	})
}

// ListResumes 列出用户全部简历。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var resumes []database.Resume
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:        r.ID,
			Title:     r.Title,
			Template:  r.TemplateName,
			Status:    r.Status,
			HasPDF:    r.PdfKey != "",
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetResume 由保存的分节重建输入并重新渲染。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	record, in, result, ok := h.renderSaved(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resumeDetail{
		builtResponse: builtResponse{
			ID:       record.ID,
			Title:    record.Title,
			Template: result.Template,
			HTML:     result.HTML,
			Degraded: result.Degraded,
		},
		Status: record.Status,
		Input:  in,
	})
}

// DownloadResume 以附件形式返回渲染后的 HTML。
func (h *ResumeHandler) DownloadResume(c *gin.Context) {
	record, _, result, ok := h.renderSaved(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="resume-%d.html"`, record.ID))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(result.HTML))
}

// ExportResume 将 PDF 导出任务入队并立即返回 202。
func (h *ResumeHandler) ExportResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	record, ok := h.resumeOr404(c, userID)
	if !ok {
		return
	}

	task, err := tasks.NewResumeExportTask(record.ID, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(record).Update("status", database.StatusPending).Error; err != nil {
		Internal(c, "failed to update resume status")
		return
	}

	info, err := h.queue.Enqueue(task)
	if err != nil {
		loggerFrom(c).Error("enqueue resume export failed", "resume_id", record.ID, "error", err)
		Internal(c, "failed to enqueue pdf export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "PDF export request accepted",
		"task_id": info.ID,
	})
}

// GetDownloadLink 生成已导出 PDF 的预签名下载链接。
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	record, ok := h.resumeOr404(c, userID)
	if !ok {
		return
	}

	if record.PdfKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	filename := fmt.Sprintf("resume-%d.pdf", record.ID)
	signedURL, err := h.links.GeneratePresignedURL(c.Request.Context(), record.PdfKey, downloadLinkTTL, filename)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

type updateTemplateRequest struct {
	Template string `json:"template" binding:"required"`
}

// UpdateTemplate 切换已保存简历的模板。未知模板名回落为默认模板。
func (h *ResumeHandler) UpdateTemplate(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "template is required")
		return
	}
	record, ok := h.resumeOr404(c, userID)
	if !ok {
		return
	}

	name := render.Resolve(req.Template)
	if err := h.db.WithContext(c.Request.Context()).Model(record).Update("template_name", name).Error; err != nil {
		Internal(c, "failed to update template")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": record.ID, "template": name})
}

// DeleteResume 删除指定简历及其分节。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	record, ok := h.resumeOr404(c, userID)
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", record.ID).Delete(&database.ResumeSection{}).Error; err != nil {
			return err
		}
		return tx.Delete(&database.Resume{}, record.ID).Error
	})
	if err != nil {
		Internal(c, "failed to delete resume")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ResumeHandler) renderSaved(c *gin.Context) (*database.Resume, resume.Input, builder.Result, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, resume.Input{}, builder.Result{}, false
	}
	record, ok := h.resumeOr404(c, userID, "Sections")
	if !ok {
		return nil, resume.Input{}, builder.Result{}, false
	}

	in, err := record.ToInput()
	if err != nil {
		loggerFrom(c).Error("decode resume sections failed", "resume_id", record.ID, "error", err)
		Internal(c, "failed to decode resume")
		return nil, resume.Input{}, builder.Result{}, false
	}

	result, err := h.builder.Build(c.Request.Context(), userID, in, record.TemplateName, h.loadPhoto(c, in.PhotoKey))
	if err != nil {
		writeBuildError(c, err)
		return nil, resume.Input{}, builder.Result{}, false
	}
	return record, in, result, true
}

// loadPhoto 读取头像；失败时记录告警并在无头像情况下继续渲染。
func (h *ResumeHandler) loadPhoto(c *gin.Context, key string) *builder.Photo {
	photo, err := builder.LoadPhoto(c.Request.Context(), h.photos, key)
	if err != nil {
		loggerFrom(c).Warn("load profile photo failed, rendering without it", "photo_key", key, "error", err)
		return nil
	}
	return photo
}

func (h *ResumeHandler) resumeOr404(c *gin.Context, userID uint, preload ...string) (*database.Resume, bool) {
	record, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID, preload...)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidResumeID):
			BadRequest(c, "invalid resume id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to query resume")
		}
		return nil, false
	}
	return record, true
}

func (h *ResumeHandler) getResumeForUser(ctx context.Context, idParam string, userID uint, preload ...string) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil || resumeID == 0 {
		return nil, errInvalidResumeID
	}

	query := h.db.WithContext(ctx)
	for _, p := range preload {
		query = query.Preload(p)
	}

	var record database.Resume
	if err := query.
		Where("id = ? AND user_id = ?", uint(resumeID), userID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func writeBuildError(c *gin.Context, err error) {
	if errors.Is(err, resume.ErrValidation) {
		BadRequest(c, err.Error())
		return
	}
	loggerFrom(c).Error("build resume failed", "error", err)
	Internal(c, "failed to build resume")
}
