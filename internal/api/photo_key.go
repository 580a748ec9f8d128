package api

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxPhotoKeyLen = 200

func photoPrefix(userID uint) string {
	return fmt.Sprintf("photos/%d/", userID)
}

// isValidPhotoKey 校验头像对象键属于该用户且为受支持的图片扩展名。
func isValidPhotoKey(userID uint, key string) bool {
	if key == "" || !utf8.ValidString(key) || len(key) > maxPhotoKeyLen {
		return false
	}
	if !strings.HasPrefix(key, photoPrefix(userID)) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	lower := strings.ToLower(key)
	for _, ext := range photoExtensions {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return strings.HasSuffix(lower, ".jpeg")
}
