package cloudinary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/asset"
)

func jpeg() asset.File {
	return asset.File{Name: "cover.jpg", MimeType: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}}
}

func TestUploadSendsPresetAndFile(t *testing.T) {
	var gotPath, gotPreset, gotName string
	var gotData []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPreset = r.FormValue("upload_preset")
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotName = hdr.Filename
		gotData, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://res.cloudinary.com/demo/image/upload/v1/cover.jpg"})
	}))
	defer server.Close()

	u := NewUploader("demo", "travelweb", server.URL)
	url, err := u.Upload(context.Background(), jpeg())
	require.NoError(t, err)

	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/cover.jpg", url)
	assert.Equal(t, "/v1_1/demo/image/upload", gotPath)
	assert.Equal(t, "travelweb", gotPreset)
	assert.Equal(t, "cover.jpg", gotName)
	assert.Equal(t, jpeg().Data, gotData)
}

func TestUploadRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	}))
	defer server.Close()

	u := NewUploader("demo", "missing", server.URL)
	_, err := u.Upload(context.Background(), jpeg())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpload))
	assert.Contains(t, err.Error(), "Upload preset not found")
	assert.Equal(t, "image upload failed", apperr.Message(err, ""))
}

func TestUploadMissingSecureURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"public_id":"abc"}`))
	}))
	defer server.Close()

	u := NewUploader("demo", "travelweb", server.URL)
	_, err := u.Upload(context.Background(), jpeg())
	assert.True(t, apperr.Is(err, apperr.KindUpload))
}

func TestUploadUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	u := NewUploader("demo", "travelweb", url)
	_, err := u.Upload(context.Background(), jpeg())
	assert.True(t, apperr.Is(err, apperr.KindUpload))
}

func TestUploadNamesUnnamedFiles(t *testing.T) {
	var gotName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		gotName = hdr.Filename
		_, _ = w.Write([]byte(`{"secure_url":"https://cdn/x.png"}`))
	}))
	defer server.Close()

	u := NewUploader("demo", "travelweb", server.URL+"/")
	_, err := u.Upload(context.Background(), asset.File{MimeType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f-]{36}\.png$`, gotName)
}
