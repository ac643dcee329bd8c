// internal/service/provisioning/infrastructure/fs_blobstore.go
package infrastructure

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bazaar/internal/service/provisioning/port"
)

// FsBlobStore 把 blob 落在本地磁盘：root/<bucket>/<id>。
// 单实例部署够用；多副本时换成对象存储适配器，端口不变。
type FsBlobStore struct {
	root    string
	baseURL string
}

// NewFsBlobStore 创建文件 blob 库。baseURL 用于拼外链，如
// "http://cdn.internal/blobs"。
func NewFsBlobStore(root, baseURL string) *FsBlobStore {
	return &FsBlobStore{root: root, baseURL: baseURL}
}

func (s *FsBlobStore) Upload(ctx context.Context, bucket string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create bucket dir %s", bucket)
	}
	id := uuid.New().String()
	if err := os.WriteFile(filepath.Join(dir, id), data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write blob %s/%s", bucket, id)
	}
	return id, nil
}

// Delete 对不存在的对象静默成功。
func (s *FsBlobStore) Delete(ctx context.Context, bucket, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, bucket, id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete blob %s/%s", bucket, id)
	}
	return nil
}

func (s *FsBlobStore) URLFor(bucket, id string, kind port.URLKind) string {
	return s.baseURL + "/" + bucket + "/" + id + "?kind=" + string(kind)
}
