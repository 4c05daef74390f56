package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/asset"
)

const defaultBaseURL = "https://api.cloudinary.com"

// uploadFailed is the message admins see for any rejected upload.
const uploadFailed = "image upload failed"

type response struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Uploader posts unsigned uploads under a fixed upload preset.
type Uploader struct {
	cloud   string
	preset  string
	baseURL string
	client  *http.Client
}

func NewUploader(cloud, preset, baseURL string) *Uploader {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Uploader{
		cloud:   cloud,
		preset:  preset,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (u *Uploader) endpoint() string {
	return fmt.Sprintf("%s/v1_1/%s/image/upload", u.baseURL, u.cloud)
}

func (u *Uploader) Upload(ctx context.Context, f asset.File) (string, error) {
	body, contentType, err := buildForm(f, u.preset)
	if err != nil {
		return "", apperr.Upload(uploadFailed, fmt.Errorf("failed to build upload form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint(), body)
	if err != nil {
		return "", apperr.Upload(uploadFailed, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", apperr.Upload(uploadFailed, fmt.Errorf("failed to call cloudinary: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close cloudinary response body", "error", err)
		}
	}()

	var out response
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if decodeErr == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return "", apperr.Upload(uploadFailed, fmt.Errorf("cloudinary returned status %d: %s", resp.StatusCode, msg))
	}
	if decodeErr != nil {
		return "", apperr.Upload(uploadFailed, fmt.Errorf("failed to decode response: %w", decodeErr))
	}
	if out.SecureURL == "" {
		return "", apperr.Upload(uploadFailed, fmt.Errorf("cloudinary response has no secure_url"))
	}

	return out.SecureURL, nil
}

func buildForm(f asset.File, preset string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := f.Name
	if name == "" {
		name = asset.NewKey(f.MimeType)
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("upload_preset", preset); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
