// Package gcs uploads admin images to a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/asset"
)

const defaultPublicBase = "https://storage.googleapis.com"

// objectWriter opens a writer for one new object.
type objectWriter interface {
	NewWriter(ctx context.Context, key, contentType string) io.WriteCloser
}

type bucketWriter struct {
	bucket *storage.BucketHandle
}

func (b bucketWriter) NewWriter(ctx context.Context, key, contentType string) io.WriteCloser {
	w := b.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

type Uploader struct {
	client     *storage.Client
	objects    objectWriter
	bucket     string
	prefix     string
	publicBase string
}

// NewUploader connects to bucket. credsFile may be empty to use application
// default credentials; STORAGE_EMULATOR_HOST is honoured by the client.
func NewUploader(ctx context.Context, bucket, credsFile string) (*Uploader, error) {
	var opts []option.ClientOption
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Uploader{
		client:     client,
		objects:    bucketWriter{bucket: client.Bucket(bucket)},
		bucket:     bucket,
		prefix:     "admin/",
		publicBase: defaultPublicBase,
	}, nil
}

func (u *Uploader) Close() error {
	if u.client == nil {
		return nil
	}
	return u.client.Close()
}

func (u *Uploader) Upload(ctx context.Context, f asset.File) (string, error) {
	key := u.prefix + asset.NewKey(f.MimeType)

	w := u.objects.NewWriter(ctx, key, f.MimeType)
	if _, err := w.Write(f.Data); err != nil {
		if cerr := w.Close(); cerr != nil {
			slog.Error("failed to close object writer after write error", "key", key, "error", cerr)
		}
		return "", apperr.Upload("image upload failed", fmt.Errorf("failed to write object %s: %w", key, err))
	}
	// the object only exists once Close succeeds
	if err := w.Close(); err != nil {
		return "", apperr.Upload("image upload failed", fmt.Errorf("failed to finalize object %s: %w", key, err))
	}

	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(u.publicBase, "/"), u.bucket, key), nil
}
