package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"resumeghana/internal/builder"
	"resumeghana/internal/database"
	"resumeghana/internal/errcode"
	"resumeghana/internal/resume"
	"resumeghana/internal/tasks"
)

// ResumeBuilder 生成简历 HTML。
type ResumeBuilder interface {
	Build(ctx context.Context, userID uint, in resume.Input, templateID string, photo *builder.Photo) (builder.Result, error)
}

// PDFRenderer 将 HTML 渲染为 PDF。
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// ObjectStore 读取头像并保存导出文件。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	ReadPhoto(ctx context.Context, key string) ([]byte, string, error)
}

// ExportTaskHandler 负责消费简历 PDF 导出任务。
type ExportTaskHandler struct {
	db       *gorm.DB
	builder  ResumeBuilder
	pdf      PDFRenderer
	store    ObjectStore
	notifier Notifier
	logger   *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(db *gorm.DB, b ResumeBuilder, pdf PDFRenderer, store ObjectStore, notifier Notifier, logger *slog.Logger) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportTaskHandler{db: db, builder: b, pdf: pdf, store: store, notifier: notifier, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.ParseResumeExportPayload(t)
	if err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
	)
	log.Info("starting resume export task")

	var record database.Resume
	if err := h.db.WithContext(ctx).Preload("Sections").First(&record, payload.ResumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}
	log = log.With(slog.Uint64("user_id", uint64(record.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		skip := errors.Is(retErr, asynq.SkipRetry)
		if !skip && !isFinalAsynqAttempt(ctx) {
			return
		}
		code := errcode.SystemError
		if errors.Is(retErr, resume.ErrValidation) {
			code = errcode.ValidationFailed
		}
		h.markFailed(ctx, log, &record)
		h.notify(ctx, log, record.UserID, ExportNotifyMessage{
			Status:        NotifyError,
			ResumeID:      record.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     code,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		})
	}()

	in, err := record.ToInput()
	if err != nil {
		log.Error("decode resume sections failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	var missingKeys []string
	photo, err := builder.LoadPhoto(ctx, h.store, in.PhotoKey)
	if err != nil {
		log.Warn("load profile photo failed, exporting without it",
			slog.String("photo_key", in.PhotoKey),
			slog.Any("error", err),
		)
		missingKeys = append(missingKeys, in.PhotoKey)
		photo = nil
	}

	built, err := h.builder.Build(ctx, record.UserID, in, record.TemplateName, photo)
	if err != nil {
		if errors.Is(err, resume.ErrValidation) {
			log.Warn("resume failed validation, skipping export", slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Error("build resume failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := h.pdf.RenderPDF(ctx, built.HTML)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("exports/%d/%s.pdf", record.UserID, uuid.NewString())
	if _, err := h.store.UploadFile(ctx, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.db.WithContext(ctx).Model(&record).Updates(map[string]any{
		"pdf_key": objectName,
		"status":  database.StatusCompleted,
	}).Error; err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		return err
	}

	msg := ExportNotifyMessage{
		Status:        NotifyCompleted,
		ResumeID:      record.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		Degraded:      built.Degraded,
	}
	switch {
	case len(missingKeys) > 0:
		msg.ErrorCode = errcode.ResourceMissing
		msg.MissingKeys = missingKeys
	case built.Degraded:
		msg.ErrorCode = errcode.AIUnavailable
	}
	if msg.ErrorCode != errcode.OK {
		msg.ErrorMessage = errcode.Message(msg.ErrorCode)
	}
	h.notify(ctx, log, record.UserID, msg)

	log.Info("resume export task completed",
		slog.String("object", objectName),
		slog.Bool("degraded", built.Degraded),
	)
	return nil
}

func (h *ExportTaskHandler) markFailed(ctx context.Context, log *slog.Logger, record *database.Resume) {
	if err := h.db.WithContext(ctx).Model(record).Update("status", database.StatusFailed).Error; err != nil {
		log.Error("mark resume export failed", slog.Any("error", err))
	}
}

func (h *ExportTaskHandler) notify(ctx context.Context, log *slog.Logger, userID uint, msg ExportNotifyMessage) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(ctx, userID, msg); err != nil {
		log.Error("publish export notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
