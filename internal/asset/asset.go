// Package asset pushes admin images to a content host and returns their
// public URLs.
package asset

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// File is an image picked in an admin form.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Uploader stores one file and returns its public URL. Implementations fail
// with an apperr Upload error when the host does not confirm the upload.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// NewKey returns a fresh object key carrying an extension for mimeType.
func NewKey(mimeType string) string {
	return uuid.NewString() + ExtFor(mimeType)
}

func ExtFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func MimeFor(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
