// internal/service/provisioning/infrastructure/fs_blobstore_test.go
package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/service/provisioning/port"
)

func TestFsBlobStore_UploadDelete(t *testing.T) {
	root := t.TempDir()
	s := NewFsBlobStore(root, "http://cdn.local/blobs")
	ctx := context.Background()

	id, err := s.Upload(ctx, "product-images", []byte("payload"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := os.ReadFile(filepath.Join(root, "product-images", id))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, s.Delete(ctx, "product-images", id))
	_, err = os.Stat(filepath.Join(root, "product-images", id))
	assert.True(t, os.IsNotExist(err))

	// 重复删除静默成功
	assert.NoError(t, s.Delete(ctx, "product-images", id))
}

func TestFsBlobStore_URLFor(t *testing.T) {
	s := NewFsBlobStore("/tmp/na", "http://cdn.local/blobs")
	url := s.URLFor("category-icons", "abc", port.URLDownload)
	assert.Equal(t, "http://cdn.local/blobs/category-icons/abc?kind=download", url)
}

func TestFsBlobStore_UploadHonorsContext(t *testing.T) {
	s := NewFsBlobStore(t.TempDir(), "http://cdn.local/blobs")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upload(ctx, "product-images", []byte("x"))
	assert.Error(t, err)
}
