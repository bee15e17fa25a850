package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailychallenge/server/config"
)

func upload(name, body string) Upload {
	return Upload{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func TestLocalPutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "/uploads/", 1024)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }

	obj, err := store.Put(context.Background(), upload("../../etc/photo.PNG", "pixels"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Key, "2024/03/09/"))
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.Equal(t, "photo.PNG", obj.OriginalName)
	assert.Equal(t, "/uploads/"+obj.Key, obj.URL)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("pixels"), data))

	require.NoError(t, store.Delete(context.Background(), obj.Key))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, store.Delete(context.Background(), obj.Key))
	assert.Error(t, store.Delete(context.Background(), "../x"))
}

func TestLocalPutTooLarge(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "/uploads", 4)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), upload("big.jpg", "12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	var files int
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, _ error) error {
		if info != nil && !info.IsDir() {
			files++
		}
		return nil
	})
	assert.Zero(t, files)
}

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(context.Background(), config.AppConfig{StorageBackend: "local", UploadDir: t.TempDir(), MaxUploadMB: 1})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, store)

	_, err = New(context.Background(), config.AppConfig{StorageBackend: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.AppConfig{StorageBackend: "s3"})
	assert.Error(t, err)
}
