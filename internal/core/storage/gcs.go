package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"club-api/internal/core/config"
)

const gcsPublicBase = "https://storage.googleapis.com"

type GCSStore struct {
	Client  *gcs.Client
	Bucket  string
	BaseURL string
}

// NewGCS CredentialsFile 为空时走默认凭证链
func NewGCS(ctx context.Context, c config.Storage) (*GCSStore, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("storage: gcs bucket is empty")
	}
	var opts []option.ClientOption
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, c.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	base := c.PublicBaseURL
	if base == "" {
		base = gcsPublicBase
	}
	return &GCSStore{Client: client, Bucket: c.Bucket, BaseURL: base}, nil
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	// 新对象不覆盖已有同名对象
	w := s.Client.Bucket(s.Bucket).Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("io.Copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Writer.Close: %w", err)
	}
	return publicURL(s.BaseURL, s.Bucket, key), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.Client.Bucket(s.Bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) KeyOf(url string) (string, bool) { return KeyFromURL(s.BaseURL, s.Bucket, url) }
