package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vbonduro/vlogadmin/internal/auth"
	"github.com/vbonduro/vlogadmin/internal/config"
	"github.com/vbonduro/vlogadmin/internal/domain"
	"github.com/vbonduro/vlogadmin/internal/listsync"
	"github.com/vbonduro/vlogadmin/internal/store"
)

// Lists holds one synchronizer registry per admin table.
type Lists struct {
	Categories *listsync.Registry[domain.Category, *domain.Category]
	Gallery    *listsync.Registry[domain.GalleryItem, *domain.GalleryItem]
	Vlogs      *listsync.Registry[domain.Vlog, *domain.Vlog]
	Users      *listsync.Registry[domain.User, *domain.User]
}

func NewLists(set *store.Set, sizes config.PageSizes, ttl time.Duration) *Lists {
	return &Lists{
		Categories: listsync.NewRegistry[domain.Category]("categories", set.Categories, sizes.Categories, ttl),
		Gallery:    listsync.NewRegistry[domain.GalleryItem]("gallery", set.Gallery, sizes.Gallery, ttl),
		Vlogs:      listsync.NewRegistry[domain.Vlog]("vlogs", set.Vlogs, sizes.Vlogs, ttl),
		Users:      listsync.NewRegistry[domain.User]("users", set.Users, sizes.Users, ttl),
	}
}

// ForgetOnSignOut drops every table of a session once it signs out.
func (l *Lists) ForgetOnSignOut(events listsync.EventSource) (unsubscribe func()) {
	unsubs := []func(){
		l.Categories.ForgetOnSignOut(events),
		l.Gallery.ForgetOnSignOut(events),
		l.Vlogs.ForgetOnSignOut(events),
		l.Users.ForgetOnSignOut(events),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

type listScreen struct {
	Nav      string
	Title    string
	Path     string
	NewLabel string
	Rows     string
}

var (
	categoriesScreen = listScreen{Nav: "categories", Title: "Manage Categories", Path: "/categories", NewLabel: "Add Category", Rows: "partials/category_rows.html"}
	galleryScreen    = listScreen{Nav: "gallery", Title: "Manage Gallery", Path: "/gallery", NewLabel: "Add Gallery", Rows: "partials/gallery_rows.html"}
	vlogsScreen      = listScreen{Nav: "vlogs", Title: "Manage Vlogs", Path: "/vlogs", NewLabel: "Add Vlog", Rows: "partials/vlog_rows.html"}
	usersScreen      = listScreen{Nav: "users", Title: "Manage Users", Path: "/users", Rows: "partials/user_rows.html"}
)

// listQuery is what a list request asks to see.
type listQuery struct {
	sort    listsync.SortKey
	page    int
	refresh bool
}

func parseListQuery(r *http.Request) listQuery {
	q := r.URL.Query()
	n, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		n = 1
	}
	return listQuery{
		sort:    listsync.ParseSortKey(q.Get("sort")),
		page:    n,
		refresh: q.Get("refresh") == "1",
	}
}

// decorator adds screen-specific data and filters once the canonical copy
// is current.
type decorator[T any, PT interface {
	*T
	domain.Document
}] func(r *http.Request, sync *listsync.Synchronizer[T, PT], data map[string]any) []listsync.Filter[T]

func sessionID(r *http.Request) string {
	if p := auth.PrincipalFrom(r.Context()); p != nil {
		return p.SessionID
	}
	return ""
}

// serveList renders a table. A full page load is a mount and refetches the
// collection. HTMX requests for another sort or page re-derive from the copy
// already held, unless it was never loaded or the admin asked to retry.
func serveList[T any, PT interface {
	*T
	domain.Document
}](s *Server, w http.ResponseWriter, r *http.Request, scr listScreen, reg *listsync.Registry[T, PT], decorate decorator[T, PT]) {
	sync := reg.Acquire(sessionID(r))
	q := parseListQuery(r)

	if !isHTMX(r) || q.refresh || sync.State() == listsync.Loading {
		refreshList(s, scr, sync, r)
	}

	renderList(s, w, r, http.StatusOK, scr, sync, q, decorate)
}

func refreshList[T any, PT interface {
	*T
	domain.Document
}](s *Server, scr listScreen, sync *listsync.Synchronizer[T, PT], r *http.Request) {
	if err := sync.Refresh(r.Context()); err != nil {
		s.logger.Warn("list refresh failed", "list", scr.Nav, "error", err)
		return
	}
	s.logger.Debug("list refreshed", "list", scr.Nav, "rows", sync.Len())
}

func renderList[T any, PT interface {
	*T
	domain.Document
}](s *Server, w http.ResponseWriter, r *http.Request, status int, scr listScreen, sync *listsync.Synchronizer[T, PT], q listQuery, decorate decorator[T, PT]) {
	data := map[string]any{
		"Screen":     scr,
		"SortKeys":   listsync.SortKeys,
		"State":      sync.State().String(),
		"Error":      "",
		"Filter":     "",
		"Categories": nil,
	}
	if err := sync.Err(); err != nil {
		data["Error"] = errorNotice(err, "could not load records").Message
	}
	var filters []listsync.Filter[T]
	if decorate != nil {
		filters = decorate(r, sync, data)
	}
	data["Page"] = sync.Page(q.sort, q.page, filters...)

	files := []string{scr.Rows, "partials/pager.html", "partials/list_state.html"}
	var err error
	if isHTMX(r) {
		err = s.renderPartial(w, status, "rows", data, files...)
	} else {
		files = append(files, "pages/list.html", "partials/sort_select.html")
		err = s.renderPage(w, status, page(r, scr.Nav, data), files...)
	}
	if err != nil {
		s.logger.Error("render list failed", "list", scr.Nav, "error", err)
	}
}

// removeFromList deletes optimistically and answers with the refreshed rows.
// A refused delete puts the row back and is reported as a toast.
func removeFromList[T any, PT interface {
	*T
	domain.Document
}](s *Server, w http.ResponseWriter, r *http.Request, scr listScreen, reg *listsync.Registry[T, PT], decorate decorator[T, PT]) {
	sync := reg.Acquire(sessionID(r))
	id := r.PathValue("id")

	if err := sync.Remove(r.Context(), id); err != nil {
		s.fail(w, r, err, "could not delete the record")
		return
	}
	s.logger.Info("record deleted", "list", scr.Nav, "id", id)

	if sync.State() == listsync.Loading {
		refreshList(s, scr, sync, r)
	}
	renderList(s, w, r, http.StatusOK, scr, sync, parseListQuery(r), decorate)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	serveList(s, w, r, categoriesScreen, s.lists.Categories, nil)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	removeFromList(s, w, r, categoriesScreen, s.lists.Categories, nil)
}

func (s *Server) handleListGallery(w http.ResponseWriter, r *http.Request) {
	serveList(s, w, r, galleryScreen, s.lists.Gallery, nil)
}

func (s *Server) handleDeleteGallery(w http.ResponseWriter, r *http.Request) {
	removeFromList(s, w, r, galleryScreen, s.lists.Gallery, nil)
}

// vlogFilter narrows the vlog table to one category and feeds the dropdown.
func vlogFilter(r *http.Request, sync *listsync.Synchronizer[domain.Vlog, *domain.Vlog], data map[string]any) []listsync.Filter[domain.Vlog] {
	data["Categories"] = sync.Distinct(func(v *domain.Vlog) string { return v.Category })

	category := r.URL.Query().Get("category")
	if category == "" {
		return nil
	}
	data["Filter"] = category
	return []listsync.Filter[domain.Vlog]{
		func(v *domain.Vlog) bool { return v.Category == category },
	}
}

func (s *Server) handleListVlogs(w http.ResponseWriter, r *http.Request) {
	serveList(s, w, r, vlogsScreen, s.lists.Vlogs, vlogFilter)
}

func (s *Server) handleDeleteVlog(w http.ResponseWriter, r *http.Request) {
	removeFromList(s, w, r, vlogsScreen, s.lists.Vlogs, vlogFilter)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	serveList(s, w, r, usersScreen, s.lists.Users, nil)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	removeFromList(s, w, r, usersScreen, s.lists.Users, nil)
}
