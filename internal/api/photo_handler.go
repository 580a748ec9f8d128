package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"resumeghana/internal/api/middleware"
	"resumeghana/internal/storage"
)

const (
	maxPhotoBytes   = 5 << 20
	photoURLTTL     = 15 * time.Minute
	defaultPhotoTop = 20
)

// photoExtensions 为允许的图片类型（按探测到的 Content-Type）及其扩展名。
var photoExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

var errMalwareDetected = errors.New("malicious file detected")

// PhotoStorage 是头像接口依赖的对象存储能力。
type PhotoStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	ListObjects(ctx context.Context, prefix string, limit int) ([]storage.ObjectMeta, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration, filename string) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// Scanner 扫描上传内容。
type Scanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner 通过 clamd INSTREAM 扫描。
type ClamdScanner struct {
	client *clamd.Clamd
}

// NewClamdScanner 返回扫描器；address 为空时返回 nil，表示跳过扫描。
func NewClamdScanner(address string) Scanner {
	if address == "" {
		return nil
	}
	return &ClamdScanner{client: clamd.NewClamd(address)}
}

// Scan 在发现恶意内容时返回 errMalwareDetected。
func (s *ClamdScanner) Scan(r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := s.client.ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for result := range results {
		if result.Status != clamd.RES_OK {
			return errMalwareDetected
		}
	}
	return nil
}

// PhotoHandler 负责头像的上传与访问。
type PhotoHandler struct {
	storage PhotoStorage
	scanner Scanner
	logger  *slog.Logger
}

// NewPhotoHandler 返回 PhotoHandler 实例。scanner 为 nil 时不做病毒扫描。
func NewPhotoHandler(store PhotoStorage, scanner Scanner, logger *slog.Logger) *PhotoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PhotoHandler{storage: store, scanner: scanner, logger: logger}
}

// UploadPhoto 校验类型与大小，扫描后保存到 photos/<uid>/。
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxPhotoBytes {
		Error(c, http.StatusRequestEntityTooLarge, "photo exceeds 5MB limit")
		return
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxPhotoBytes+1))
	reader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if len(data) > maxPhotoBytes {
		Error(c, http.StatusRequestEntityTooLarge, "photo exceeds 5MB limit")
		return
	}

	contentType := http.DetectContentType(data)
	ext, allowed := photoExtensions[contentType]
	if !allowed {
		Error(c, http.StatusUnsupportedMediaType, "photo must be png, jpeg or webp")
		return
	}

	if h.scanner != nil {
		if err := h.scanner.Scan(bytes.NewReader(data)); err != nil {
			if errors.Is(err, errMalwareDetected) {
				h.logger.Warn("malicious photo rejected", slog.Uint64("user_id", uint64(userID)))
				BadRequest(c, "malicious file detected")
				return
			}
			h.logger.Error("scan file", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
	}

	objectKey := fmt.Sprintf("%s%s.%s", photoPrefix(userID), uuid.NewString(), ext)
	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.logger.Error("upload file", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"photo_key": objectKey, "content_type": contentType})
}

// ListPhotos 列出用户上传的头像，附带预览链接。
func (h *PhotoHandler) ListPhotos(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPhotoTop)))
	if err != nil || limit <= 0 {
		limit = defaultPhotoTop
	}
	if limit > 100 {
		limit = 100
	}

	ctx := c.Request.Context()
	objects, err := h.storage.ListObjects(ctx, photoPrefix(userID), limit)
	if err != nil {
		h.logger.Error("list photos", slog.Any("error", err))
		Internal(c, "failed to list photos")
		return
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	items := make([]gin.H, 0, len(objects))
	for _, obj := range objects {
		url, err := h.storage.GeneratePresignedURL(ctx, obj.Key, photoURLTTL, "")
		if err != nil {
			h.logger.Error("generate photo url", slog.String("photo_key", obj.Key), slog.Any("error", err))
			continue
		}
		items = append(items, gin.H{
			"photo_key":     obj.Key,
			"preview_url":   url,
			"size":          obj.Size,
			"last_modified": obj.LastModified,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DeletePhoto 删除用户自己的头像。
func (h *PhotoHandler) DeletePhoto(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	key := c.Query("key")
	if !isValidPhotoKey(userID, key) {
		Forbidden(c, "access denied")
		return
	}
	if err := h.storage.DeleteObject(c.Request.Context(), key); err != nil {
		h.logger.Error("delete photo", slog.Any("error", err))
		Internal(c, "failed to delete photo")
		return
	}
	c.Status(http.StatusNoContent)
}
