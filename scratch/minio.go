package scratch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/arloliu/atomenv/types"
)

// Minio is a ScratchStore backed by a MinIO or S3-compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ types.ScratchStore = (*Minio)(nil)

// NewMinio creates a store on bucket. prefix is prepended to every key.
func NewMinio(client *minio.Client, bucket, prefix string) *Minio {
	return &Minio{client: client, bucket: bucket, prefix: prefix}
}

func (m *Minio) object(key string) string {
	return path.Join(m.prefix, key)
}

// Put uploads data under key.
func (m *Minio) Put(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, m.object(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("put scratch object %s: %w", key, err)
	}

	return nil
}

// Get downloads the data stored under key.
func (m *Minio) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.object(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, m.translate(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.translate(key, err)
	}

	return data, nil
}

// Delete removes key.
func (m *Minio) Delete(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, m.object(key), minio.RemoveObjectOptions{})
	if err != nil && !notFound(err) {
		return fmt.Errorf("delete scratch object %s: %w", key, err)
	}

	return nil
}

func (m *Minio) translate(key string, err error) error {
	if notFound(err) {
		return fmt.Errorf("%w: %s", types.ErrScratchEntryMissing, key)
	}

	return fmt.Errorf("get scratch object %s: %w", key, err)
}

func notFound(err error) bool {
	code := minio.ToErrorResponse(err).Code

	return code == "NoSuchKey" || code == "NotFound"
}
