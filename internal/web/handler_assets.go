package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/vlogadmin/internal/asset/local"
)

// handleGetAsset serves images uploaded to the local asset backend. The
// public site links to these URLs directly, so no session is required.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		http.NotFound(w, r)
		return
	}
	key := r.PathValue("key")

	reader, mimeType, err := s.assets.Open(r.Context(), key)
	if errors.Is(err, local.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to read asset", http.StatusInternalServerError)
		s.logger.Error("open asset failed", "key", key, "error", err)
		return
	}
	defer closeWithLog(reader, "asset reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write asset failed", "key", key, "error", err)
	}
}
