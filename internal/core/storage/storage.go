package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"club-api/internal/core/config"
)

// ObjectStore 文章封面等公开文件
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (url string, err error)
	Delete(ctx context.Context, key string) error
	// KeyOf 由 Put 返回的 URL 反推对象键
	KeyOf(url string) (string, bool)
}

// New driver 为空时返回 nil，上传接口回 503
func New(ctx context.Context, c config.Storage) (ObjectStore, error) {
	switch c.Driver {
	case "":
		return nil, nil
	case "s3", "r2":
		s, err := NewS3(ctx, c)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gcs":
		s, err := NewGCS(ctx, c)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", c.Driver)
	}
}

// ObjectKey articles/42/1700000000-<uuid>.png
func ObjectKey(prefix string, id uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%d/%d-%s%s", prefix, id, time.Now().UTC().Unix(), uuid.NewString(), ext)
}

func ContentType(header, filename string) string {
	if header != "" {
		return header
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func publicURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, key)
}

// KeyFromURL publicURL 的逆操作；不是本桶的 URL 返回 false
func KeyFromURL(base, bucket, raw string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/" + bucket + "/"
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	return strings.TrimPrefix(raw, prefix), true
}
