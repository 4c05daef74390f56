package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/asset"
)

// ErrNotFound is returned by Open for keys with no file behind them.
var ErrNotFound = errors.New("asset not found")

// Store keeps uploads on local disk. The admin server serves them back under
// baseURL.
type Store struct {
	basePath string
	baseURL  string
}

func NewStore(basePath, baseURL string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}
	return &Store{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *Store) Upload(ctx context.Context, f asset.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Upload("image upload failed", err)
	}

	key := asset.NewKey(f.MimeType)
	filePath := filepath.Join(s.basePath, key)

	out, err := os.Create(filePath)
	if err != nil {
		return "", apperr.Upload("image upload failed", fmt.Errorf("failed to create file: %w", err))
	}
	if _, err := out.Write(f.Data); err != nil {
		if cerr := out.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return "", apperr.Upload("image upload failed", fmt.Errorf("failed to write file: %w", err))
	}
	if err := out.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return "", apperr.Upload("image upload failed", fmt.Errorf("failed to close file: %w", err))
	}
	return s.baseURL + "/" + key, nil
}

// Open returns the stored bytes for key and their MIME type.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, asset.MimeFor(filePath), nil
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *Store) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, key))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
