package web

import (
	"net/http"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/auth"
)

// notice is the transient message shown in the toast area.
type notice struct {
	Kind    string
	Message string
}

func errorNotice(err error, fallback string) *notice {
	return &notice{Kind: apperr.KindOf(err).String(), Message: apperr.Message(err, fallback)}
}

// page adds the data every full page needs.
func page(r *http.Request, nav string, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	data["Principal"] = auth.PrincipalFrom(r.Context())
	data["ActiveNav"] = nav
	return data
}

// toast answers an HTMX request with only a notification, swapped into the
// toast area regardless of the request's own target.
func (s *Server) toast(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("HX-Retarget", "#toast")
	w.Header().Set("HX-Reswap", "innerHTML")
	if err := s.renderPartial(w, status, "toast", &notice{Kind: kind, Message: message}, "partials/toast.html"); err != nil {
		s.logger.Error("render toast failed", "error", err)
	}
}

// fail reports err with the status its kind maps to. Only failures the admin
// cannot fix are logged as errors.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	kind := apperr.KindOf(err)
	status := kind.Status()
	msg := apperr.Message(err, fallback)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "kind", kind.String(), "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "kind", kind.String(), "error", err)
	}

	if isHTMX(r) {
		s.toast(w, status, kind.String(), msg)
		return
	}
	if kind == apperr.KindNotFound {
		s.notFound(w, r, msg, "")
		return
	}
	http.Error(w, msg, status)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, message, back string) {
	if err := s.renderPage(w, http.StatusNotFound,
		page(r, "", map[string]any{"Message": message, "Back": back}),
		"pages/not_found.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
