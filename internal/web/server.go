package web

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/vlogadmin/internal/auth"
	"github.com/vbonduro/vlogadmin/internal/service"
)

// assetOpener serves uploads back when assets live on local disk.
type assetOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Deps are the collaborators behind the admin screens.
type Deps struct {
	Catalog *service.Catalog
	Auth    *auth.Service
	Lists   *Lists
	// Assets is nil unless uploads are kept on local disk.
	Assets        assetOpener
	SessionTTL    time.Duration
	SecureCookies bool
}

type Server struct {
	catalog       *service.Catalog
	auth          *auth.Service
	lists         *Lists
	assets        assetOpener
	sessionTTL    time.Duration
	secureCookies bool
	templates     fs.FS
	mux           *http.ServeMux
	tmplFuncs     template.FuncMap
	logger        *slog.Logger
}

func NewServer(deps Deps, tmpl fs.FS, logger *slog.Logger) *Server {
	s := &Server{
		catalog:       deps.Catalog,
		auth:          deps.Auth,
		lists:         deps.Lists,
		assets:        deps.Assets,
		sessionTTL:    deps.SessionTTL,
		secureCookies: deps.SecureCookies,
		templates:     tmpl,
		mux:           http.NewServeMux(),
		logger:        logger,
		tmplFuncs: template.FuncMap{
			"imageField": newImageField,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /signin", s.handleSignInPage)
	s.mux.HandleFunc("POST /signin", s.handleSignIn)
	s.mux.HandleFunc("POST /signout", s.handleSignOut)
	s.mux.HandleFunc("GET /assets/{key}", s.handleGetAsset)
	if static, err := fs.Sub(s.templates, "static"); err == nil {
		s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	}

	s.mux.HandleFunc("GET /{$}", s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}))
	s.mux.HandleFunc("GET /dashboard", s.requireSession(s.handleDashboard))

	s.mux.HandleFunc("GET /categories", s.requireSession(s.handleListCategories))
	s.mux.HandleFunc("GET /categories/new", s.requireSession(s.handleNewCategory))
	s.mux.HandleFunc("POST /categories", s.requireSession(s.handleCreateCategory))
	s.mux.HandleFunc("GET /categories/{id}/edit", s.requireSession(s.handleEditCategory))
	s.mux.HandleFunc("POST /categories/{id}", s.requireSession(s.handleUpdateCategory))
	s.mux.HandleFunc("DELETE /categories/{id}", s.requireSession(s.handleDeleteCategory))

	s.mux.HandleFunc("GET /gallery", s.requireSession(s.handleListGallery))
	s.mux.HandleFunc("GET /gallery/new", s.requireSession(s.handleNewGallery))
	s.mux.HandleFunc("GET /gallery/slot", s.requireSession(s.handleGallerySlot))
	s.mux.HandleFunc("GET /gallery/slot/removed", s.requireSession(s.handleGallerySlotRemoved))
	s.mux.HandleFunc("POST /gallery", s.requireSession(s.handleCreateGallery))
	s.mux.HandleFunc("GET /gallery/{id}/edit", s.requireSession(s.handleEditGallery))
	s.mux.HandleFunc("POST /gallery/{id}", s.requireSession(s.handleUpdateGallery))
	s.mux.HandleFunc("DELETE /gallery/{id}", s.requireSession(s.handleDeleteGallery))

	s.mux.HandleFunc("GET /vlogs", s.requireSession(s.handleListVlogs))
	s.mux.HandleFunc("GET /vlogs/new", s.requireSession(s.handleNewVlog))
	s.mux.HandleFunc("POST /vlogs", s.requireSession(s.handleCreateVlog))
	s.mux.HandleFunc("GET /vlogs/{id}/edit", s.requireSession(s.handleEditVlog))
	s.mux.HandleFunc("POST /vlogs/{id}", s.requireSession(s.handleUpdateVlog))
	s.mux.HandleFunc("DELETE /vlogs/{id}", s.requireSession(s.handleDeleteVlog))

	s.mux.HandleFunc("GET /users", s.requireSession(s.handleListUsers))
	s.mux.HandleFunc("DELETE /users/{id}", s.requireSession(s.handleDeleteUser))
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: https:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps progress streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"htmx", isHTMX(r),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	return s.render(w, status, "base", data, append([]string{"base.html", "partials/toast.html"}, files...)...)
}

// renderPartial executes the named block from the given files.
func (s *Server) renderPartial(w http.ResponseWriter, status int, name string, data any, files ...string) error {
	return s.render(w, status, name, data, files...)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// redirect sends the browser to target. HTMX requests get HX-Redirect so
// the whole page navigates instead of swapping a fragment.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}

type imageFieldView struct {
	Label string
	Name  string
	Slot  service.ImageSlot
	Error string
}

func newImageField(label, name string, slot service.ImageSlot, errMsg string) imageFieldView {
	return imageFieldView{Label: label, Name: name, Slot: slot, Error: errMsg}
}
