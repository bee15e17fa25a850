// Package storage persists uploaded images and hands back the public URL they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dailychallenge/server/config"
)

// ErrTooLarge is returned by Put when the body exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds upload size limit")

// Upload is one file received from a client. Open is called once by the store.
type Upload struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Object describes a stored file.
type Object struct {
	Key          string // backend key, kept as the image's stored name
	OriginalName string
	URL          string
}

// Store is implemented by the local disk and S3 backends.
type Store interface {
	Put(ctx context.Context, up Upload) (Object, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg config.AppConfig) (Store, error) {
	maxBytes := int64(cfg.MaxUploadMB) << 20
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocal(cfg.UploadDir, cfg.UploadBaseURL, maxBytes)
	case "s3":
		return NewS3(ctx, S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			MaxBytes:      maxBytes,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// newKey returns "YYYY/MM/DD/<uuid><ext>" so stored names never collide and never carry client paths.
func newKey(now time.Time, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(now.Format("2006"), now.Format("01"), now.Format("02"), uuid.NewString()+ext)
}

// originalName strips any directory part a client sent.
func originalName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
