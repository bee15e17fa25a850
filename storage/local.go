package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local writes files below a directory that the HTTP layer serves at baseURL.
type Local struct {
	dir      string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

func NewLocal(dir, baseURL string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, baseURL: baseURL, maxBytes: maxBytes, now: time.Now}, nil
}

// Dir is the root directory of stored files.
func (l *Local) Dir() string { return l.dir }

// BaseURL is the URL prefix stored files are served under.
func (l *Local) BaseURL() string { return l.baseURL }

func (l *Local) Put(ctx context.Context, up Upload) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	src, err := up.Open()
	if err != nil {
		return Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	key := newKey(l.now(), up.Filename)
	dst := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("create upload directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return Object{}, fmt.Errorf("create file: %w", err)
	}

	var r io.Reader = src
	if l.maxBytes > 0 {
		r = &io.LimitedReader{R: src, N: l.maxBytes + 1}
	}
	written, err := io.Copy(out, r)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && l.maxBytes > 0 && written > l.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		if errors.Is(err, ErrTooLarge) {
			return Object{}, err
		}
		return Object{}, fmt.Errorf("write file: %w", err)
	}

	return Object{Key: key, OriginalName: originalName(up.Filename), URL: joinURL(l.baseURL, key)}, nil
}

// Delete removes the file for key. A missing file is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("invalid key %q", key)
	}
	if err := os.Remove(l.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.dir, filepath.FromSlash(key))
}
