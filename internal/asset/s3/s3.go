// Package s3 uploads admin images to an S3-compatible bucket through minio-go.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/asset"
)

// objectPutter is the part of *minio.Client the uploader needs.
type objectPutter interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Uploader struct {
	client objectPutter
	bucket string
	base   string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewUploader(opts Options) (*Uploader, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return newUploader(client, client.EndpointURL(), opts.Bucket), nil
}

func newUploader(client objectPutter, endpoint *url.URL, bucket string) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
		base:   strings.TrimRight(endpoint.String(), "/"),
	}
}

func (u *Uploader) Upload(ctx context.Context, f asset.File) (string, error) {
	key := asset.NewKey(f.MimeType)

	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(f.Data), int64(len(f.Data)), minio.PutObjectOptions{
		ContentType: f.MimeType,
	})
	if err != nil {
		return "", apperr.Upload("image upload failed", fmt.Errorf("failed to put object %s: %w", key, err))
	}

	return fmt.Sprintf("%s/%s/%s", u.base, u.bucket, key), nil
}
