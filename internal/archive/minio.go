package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// Remote archives task working directories to an S3-compatible bucket
// via the minio client, the teacher's dependency for object-storage
// access.
type Remote struct {
	Client *minio.Client
	Bucket string
	// Prefix, if non-empty, is prepended to every object key, joined
	// with a "/".
	Prefix string
}

// NewRemote constructs a Remote archiver over an already-configured
// minio client.
func NewRemote(client *minio.Client, bucket, prefix string) *Remote {
	return &Remote{Client: client, Bucket: bucket, Prefix: prefix}
}

// Archive uploads r as an object named <prefix>/<key> in Bucket (just
// <key> when Prefix is empty).
func (a *Remote) Archive(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	objectName := key
	if a.Prefix != "" {
		objectName = a.Prefix + "/" + key
	}
	_, err := a.Client.PutObject(ctx, a.Bucket, objectName, r, size, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("archive upload %s/%s: %w", a.Bucket, objectName, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.Bucket, objectName), nil
}

var _ Archiver = (*Remote)(nil)
