package web

import (
	"net/http"

	"github.com/vbonduro/vlogadmin/internal/auth"
)

const sessionCookie = "vlogadmin_session"

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireSession runs a fresh gate for every request. Authenticated requests
// carry their principal in the context. Unauthenticated ones are sent to
// /signin exactly once. When the session backend does not answer the gate
// stays Initializing and the admin gets a loading page, never a redirect.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gate := auth.NewGate()
		token := sessionToken(r)

		switch gate.Check(r.Context(), s.auth, token) {
		case auth.Authenticated:
			next(w, r.WithContext(auth.WithPrincipal(r.Context(), gate.Principal())))
		case auth.Unauthenticated:
			if token != "" {
				s.clearSessionCookie(w)
			}
			redirect(w, r, "/signin")
		default:
			s.logger.Error("session check failed", "path", r.URL.Path, "error", gate.Err())
			w.Header().Set("Retry-After", "2")
			if isHTMX(r) {
				s.toast(w, http.StatusServiceUnavailable, "error", "Session service is unavailable, try again shortly")
				return
			}
			if err := s.renderPage(w, http.StatusServiceUnavailable,
				map[string]any{"ActiveNav": "", "Retry": r.URL.RequestURI()},
				"pages/loading.html",
			); err != nil {
				s.logger.Error("render page failed", "error", err)
			}
		}
	}
}
