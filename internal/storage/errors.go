package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrNotFound 表示对象或 Bucket 不存在。
var ErrNotFound = errors.New("storage: object not found")

func wrapMissing(key string, err error) error {
	if IsNoSuchKey(err) || IsNoSuchBucket(err) {
		return fmt.Errorf("read object %q: %w", key, ErrNotFound)
	}
	return fmt.Errorf("read object %q: %w", key, err)
}

// IsNoSuchKey 判断错误是否表示对象不存在（NoSuchKey/NotFound）。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch strings.ToLower(strings.TrimSpace(minioErr.Code)) {
		case "nosuchkey", "notfound":
			return true
		}
	}

	// 网关可能把错误包装成字符串。
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist")
}

// IsNoSuchBucket 判断错误是否表示 Bucket 不存在。
func IsNoSuchBucket(err error) bool {
	if err == nil {
		return false
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) && strings.EqualFold(strings.TrimSpace(minioErr.Code), "nosuchbucket") {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchbucket") ||
		strings.Contains(lower, "specified bucket does not exist")
}
