package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/auth"
)

func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	if p, err := s.auth.Resolve(r.Context(), sessionToken(r)); err == nil && p != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderSignIn(w, r, http.StatusOK, "", nil, nil)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	token, p, err := s.auth.SignIn(r.Context(), email, password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.renderSignIn(w, r, http.StatusUnauthorized, email, nil,
			&notice{Kind: "validation", Message: "Invalid email or password"})
		return
	case apperr.Is(err, apperr.KindValidation):
		s.renderSignIn(w, r, http.StatusUnprocessableEntity, email, apperr.FieldErrors(err), nil)
		return
	default:
		s.logger.Error("sign in failed", "error", err)
		s.renderSignIn(w, r, apperr.KindOf(err).Status(), email, nil, errorNotice(err, "could not sign in"))
		return
	}

	s.setSessionCookie(w, token)
	s.logger.Info("session started", "uid", p.UID)
	redirect(w, r, "/dashboard")
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), sessionToken(r)); err != nil {
		s.fail(w, r, err, "could not sign out")
		return
	}
	s.clearSessionCookie(w)
	redirect(w, r, "/signin")
}

func (s *Server) renderSignIn(w http.ResponseWriter, r *http.Request, status int, email string, errs map[string]string, n *notice) {
	if err := s.renderPage(w, status,
		map[string]any{"ActiveNav": "", "Email": email, "Errors": errs, "Notice": n},
		"pages/signin.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
