package artifact

import (
	"bytes"
	"context"
	"io"

	"github.com/algorithm-ninja/task-wizard/internal/common/storage"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// ObjectBlobBackend stores blobs as objects in a bucket, keyed by digest.
// A stat-then-put check keeps repeated puts of the same digest cheap.
type ObjectBlobBackend struct {
	storage storage.ObjectStorage
	bucket  string
}

func NewObjectBlobBackend(storageClient storage.ObjectStorage, bucket string) (*ObjectBlobBackend, error) {
	if storageClient == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("object storage is required")
	}
	if bucket == "" {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("bucket is required")
	}
	return &ObjectBlobBackend{storage: storageClient, bucket: bucket}, nil
}

func (b *ObjectBlobBackend) Put(ctx context.Context, digest string, content []byte) error {
	if _, err := b.storage.StatObject(ctx, b.bucket, digest); err == nil {
		// Content is immutable per digest, nothing to overwrite.
		return nil
	}
	err := b.storage.PutObject(ctx, b.bucket, digest, bytes.NewReader(content), int64(len(content)), "application/octet-stream")
	if err != nil {
		return appErr.Wrapf(err, appErr.BlobWriteFailed, "upload blob failed")
	}
	return nil
}

func (b *ObjectBlobBackend) Get(ctx context.Context, digest string) ([]byte, error) {
	if _, err := b.storage.StatObject(ctx, b.bucket, digest); err != nil {
		return nil, appErr.Newf(appErr.BlobNotFound, "blob %s not found", digest)
	}
	reader, err := b.storage.GetObject(ctx, b.bucket, digest)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.BlobNotFound, "open blob failed")
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "read blob failed")
	}
	return content, nil
}

var _ BlobBackend = (*ObjectBlobBackend)(nil)
