package builder

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

const defaultPhotoType = "image/jpeg"

// Photo 是已编码的头像，渲染后以 data URI 内联进 HTML。
type Photo struct {
	ContentType string
	Base64      string
}

// DataURI returns the photo as an inline image source.
func (p *Photo) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", p.ContentType, p.Base64)
}

// EncodePhoto wraps raw image bytes. A blank content type defaults to image/jpeg.
func EncodePhoto(contentType string, data []byte) *Photo {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = defaultPhotoType
	}
	return &Photo{ContentType: contentType, Base64: base64.StdEncoding.EncodeToString(data)}
}

// PhotoStore reads uploaded photos.
type PhotoStore interface {
	ReadPhoto(ctx context.Context, key string) ([]byte, string, error)
}

// LoadPhoto fetches and encodes key. An empty key yields (nil, nil).
func LoadPhoto(ctx context.Context, store PhotoStore, key string) (*Photo, error) {
	if strings.TrimSpace(key) == "" || store == nil {
		return nil, nil
	}
	data, contentType, err := store.ReadPhoto(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read photo %q: %w", key, err)
	}
	return EncodePhoto(contentType, data), nil
}
