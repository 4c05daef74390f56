package web

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := s.catalog.Counts(r.Context())
	if err != nil {
		s.fail(w, r, err, "could not load dashboard")
		return
	}

	if err := s.renderPage(w, http.StatusOK,
		page(r, "dashboard", map[string]any{"Counts": counts}),
		"pages/dashboard.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
