package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/asset"
)

type fakeObject struct {
	bytes.Buffer
	key, contentType string
	closeErr         error
	closed           bool
}

func (o *fakeObject) Close() error {
	o.closed = true
	return o.closeErr
}

type fakeBucket struct {
	objects  []*fakeObject
	closeErr error
}

func (b *fakeBucket) NewWriter(_ context.Context, key, contentType string) io.WriteCloser {
	o := &fakeObject{key: key, contentType: contentType, closeErr: b.closeErr}
	b.objects = append(b.objects, o)
	return o
}

func newTestUploader(b *fakeBucket) *Uploader {
	return &Uploader{objects: b, bucket: "travel-assets", prefix: "admin/", publicBase: defaultPublicBase}
}

func TestUploadWritesObject(t *testing.T) {
	b := &fakeBucket{}
	u := newTestUploader(b)

	url, err := u.Upload(context.Background(), asset.File{Name: "c.webp", MimeType: "image/webp", Data: []byte("RIFF")})
	require.NoError(t, err)

	require.Len(t, b.objects, 1)
	obj := b.objects[0]
	assert.True(t, obj.closed)
	assert.Equal(t, "image/webp", obj.contentType)
	assert.Equal(t, "RIFF", obj.String())
	assert.True(t, strings.HasPrefix(obj.key, "admin/"))
	assert.True(t, strings.HasSuffix(obj.key, ".webp"))
	assert.Equal(t, "https://storage.googleapis.com/travel-assets/"+obj.key, url)
}

func TestUploadCloseFailure(t *testing.T) {
	u := newTestUploader(&fakeBucket{closeErr: errors.New("permission denied")})

	_, err := u.Upload(context.Background(), asset.File{MimeType: "image/jpeg", Data: []byte("x")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpload))
}

func TestUploadEmulator(t *testing.T) {
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" || os.Getenv("GCS_TEST_BUCKET") == "" {
		t.Skip("STORAGE_EMULATOR_HOST and GCS_TEST_BUCKET not set")
	}
	ctx := context.Background()
	u, err := NewUploader(ctx, os.Getenv("GCS_TEST_BUCKET"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = u.Close() })

	url, err := u.Upload(ctx, asset.File{MimeType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)
	assert.Contains(t, url, os.Getenv("GCS_TEST_BUCKET"))
}
