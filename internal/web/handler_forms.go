package web

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/domain"
	"github.com/vbonduro/vlogadmin/internal/service"
)

const maxGallerySlots = 30

type formScreen struct {
	Nav  string
	List string
	Page string
	Noun string
}

var (
	categoryFormScreen = formScreen{Nav: "categories", List: "/categories", Page: "pages/category_form.html", Noun: "Category"}
	galleryFormScreen  = formScreen{Nav: "gallery", List: "/gallery", Page: "pages/gallery_form.html", Noun: "Gallery item"}
	vlogFormScreen     = formScreen{Nav: "vlogs", List: "/vlogs", Page: "pages/vlog_form.html", Noun: "Vlog"}
)

// formView is what a create or update screen renders. ID is empty on create.
type formView struct {
	ID         string
	Form       any
	Errors     service.FieldErrors
	Notice     *notice
	Categories []*domain.Category
	Slots      []gallerySlot
}

func (s *Server) showForm(w http.ResponseWriter, r *http.Request, scr formScreen, status int, v formView) {
	data := map[string]any{
		"ID":         v.ID,
		"Form":       v.Form,
		"Errors":     v.Errors,
		"Notice":     v.Notice,
		"Categories": v.Categories,
		"Slots":      v.Slots,
		"Partial":    isHTMX(r),
	}
	files := []string{scr.Page, "partials/image_field.html", "partials/toast.html"}

	var err error
	if isHTMX(r) {
		err = s.renderPartial(w, status, "form", data, files...)
	} else {
		err = s.renderPage(w, status, page(r, scr.Nav, data), scr.Page, "partials/image_field.html")
	}
	if err != nil {
		s.logger.Error("render form failed", "form", scr.Nav, "error", err)
	}
}

// submit runs one create or update. Clients that accept an event stream get
// progress events and a final done or error event. Everyone else gets the
// form back: emptied after a create, re-filled with errors after a failure.
// A successful update returns to the list, whose mount refetches.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, scr formScreen, submitted, blank formView, run func(service.ProgressFunc) error) {
	update := submitted.ID != ""

	if wantsEventStream(r) {
		stream := newProgressStream(w)
		if err := run(stream.progress); err != nil {
			s.logSubmitFailure(r, scr, err)
			stream.send("error", failureOutcome(err))
			return
		}
		done := outcome{Kind: "success", Message: savedMessage(scr, update)}
		if update {
			done.Redirect = scr.List
		}
		stream.send("done", done)
		return
	}

	if err := run(nil); err != nil {
		s.logSubmitFailure(r, scr, err)
		if apperr.Is(err, apperr.KindNotFound) {
			s.fail(w, r, err, "record not found")
			return
		}
		submitted.Errors = service.FieldErrors(apperr.FieldErrors(err))
		submitted.Notice = errorNotice(err, "could not save")
		s.showForm(w, r, scr, apperr.KindOf(err).Status(), submitted)
		return
	}

	if update {
		redirect(w, r, scr.List)
		return
	}
	blank.Notice = &notice{Kind: "success", Message: savedMessage(scr, false)}
	s.showForm(w, r, scr, http.StatusOK, blank)
}

func savedMessage(scr formScreen, update bool) string {
	if update {
		return scr.Noun + " updated"
	}
	return scr.Noun + " added"
}

func (s *Server) logSubmitFailure(r *http.Request, scr formScreen, err error) {
	kind := apperr.KindOf(err)
	if kind.Status() >= http.StatusInternalServerError {
		s.logger.Error("submit failed", "form", scr.Nav, "path", r.URL.Path, "kind", kind.String(), "error", err)
		return
	}
	s.logger.Warn("submit rejected", "form", scr.Nav, "path", r.URL.Path, "kind", kind.String(), "error", err)
}

// rejectImages reports files that are not accepted images alongside the
// form's own validation messages.
func rejectImages(errs, bad service.FieldErrors) error {
	for k, v := range bad {
		errs[k] = v
	}
	return apperr.Validation(errs)
}

func (s *Server) loadForEdit(w http.ResponseWriter, r *http.Request, scr formScreen, err error) {
	if apperr.Is(err, apperr.KindNotFound) && !isHTMX(r) {
		s.notFound(w, r, apperr.Message(err, "record not found"), scr.List)
		return
	}
	s.fail(w, r, err, "could not load the record")
}

func (s *Server) badForm(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("unreadable form", "path", r.URL.Path, "error", err)
	http.Error(w, "failed to parse form", http.StatusBadRequest)
}

// Categories

func parseCategoryForm(w http.ResponseWriter, r *http.Request) (service.CategoryForm, service.FieldErrors, error) {
	if err := parseSubmission(w, r); err != nil {
		return service.CategoryForm{}, nil, err
	}
	form := service.CategoryForm{
		Title:       r.FormValue("title"),
		Province:    r.FormValue("province"),
		Description: r.FormValue("description"),
	}
	bad := service.FieldErrors{}
	cover, msg, err := formImage(r, "cover")
	if err != nil {
		return form, nil, err
	}
	if msg != "" {
		bad["cover"] = msg
	}
	form.Cover = cover
	return form, bad, nil
}

func (s *Server) handleNewCategory(w http.ResponseWriter, r *http.Request) {
	s.showForm(w, r, categoryFormScreen, http.StatusOK, formView{Form: service.CategoryForm{}})
}

func (s *Server) handleEditCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cat, err := s.catalog.Category(r.Context(), id)
	if err != nil {
		s.loadForEdit(w, r, categoryFormScreen, err)
		return
	}
	s.showForm(w, r, categoryFormScreen, http.StatusOK, formView{ID: id, Form: service.CategoryFormFrom(cat)})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	s.saveCategory(w, r, "")
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	s.saveCategory(w, r, r.PathValue("id"))
}

func (s *Server) saveCategory(w http.ResponseWriter, r *http.Request, id string) {
	form, bad, err := parseCategoryForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}
	run := func(progress service.ProgressFunc) error {
		if len(bad) > 0 {
			return rejectImages(form.Validate(), bad)
		}
		var err error
		if id == "" {
			_, err = s.catalog.CreateCategory(r.Context(), form, progress)
		} else {
			_, err = s.catalog.UpdateCategory(r.Context(), id, form, progress)
		}
		return err
	}
	s.submit(w, r, categoryFormScreen,
		formView{ID: id, Form: form},
		formView{Form: service.CategoryForm{}},
		run,
	)
}

// Gallery

func parseGalleryForm(w http.ResponseWriter, r *http.Request) (service.GalleryForm, service.FieldErrors, error) {
	if err := parseSubmission(w, r); err != nil {
		return service.GalleryForm{}, nil, err
	}
	form := service.GalleryForm{
		CategoryID:  r.FormValue("categoryId"),
		Subtitle:    r.FormValue("subtitle"),
		Date:        r.FormValue("date"),
		Province:    r.FormValue("province"),
		Description: r.FormValue("description"),
	}
	bad := service.FieldErrors{}

	cover, msg, err := formImage(r, "coverImg")
	if err != nil {
		return form, nil, err
	}
	if msg != "" {
		bad["coverImg"] = msg
	}
	form.Cover = cover

	for _, key := range slotKeys(r.Form["gallery_slot"]) {
		slot, msg, err := formImage(r, "gallery_"+key)
		if err != nil {
			return form, nil, err
		}
		if msg != "" {
			bad["gallery"] = msg
		}
		form.Images = append(form.Images, slot)
	}
	return form, bad, nil
}

// gallerySlot is one gallery image row of the form. Key ties the row's file
// input to its carried-over URL and survives rows being removed around it.
type gallerySlot struct {
	Key  string
	Slot service.ImageSlot
}

// indexedSlots keys images by position. An empty album still gets one
// empty row to fill in.
func indexedSlots(images []service.ImageSlot) []gallerySlot {
	if len(images) == 0 {
		return []gallerySlot{{Key: "0"}}
	}
	out := make([]gallerySlot, len(images))
	for i, img := range images {
		out[i] = gallerySlot{Key: strconv.Itoa(i), Slot: img}
	}
	return out
}

// slotKeys keeps well-formed keys in form order, without repeats, up to
// maxGallerySlots.
func slotKeys(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var keys []string
	for _, k := range raw {
		if len(keys) == maxGallerySlots {
			break
		}
		if !validSlotKey(k) || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

func validSlotKey(k string) bool {
	if k == "" || len(k) > 40 {
		return false
	}
	for _, c := range k {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c == '-') {
			return false
		}
	}
	return true
}

// handleGallerySlot renders one empty image row for the add button to
// append. Rows already on the page keep their picked files.
func (s *Server) handleGallerySlot(w http.ResponseWriter, r *http.Request) {
	if err := s.renderPartial(w, http.StatusOK, "gallery_slot",
		gallerySlot{Key: uuid.NewString()},
		galleryFormScreen.Page, "partials/image_field.html", "partials/toast.html",
	); err != nil {
		s.logger.Error("render gallery slot failed", "error", err)
	}
}

// handleGallerySlotRemoved answers a row's remove button. The row is
// dropped client side by its swap, so there is nothing to send.
func (s *Server) handleGallerySlotRemoved(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNewGallery(w http.ResponseWriter, r *http.Request) {
	cats, err := s.catalog.CategoryOptions(r.Context())
	if err != nil {
		s.fail(w, r, err, "could not load categories")
		return
	}
	s.showForm(w, r, galleryFormScreen, http.StatusOK, formView{
		Form:       service.GalleryForm{},
		Categories: cats,
		Slots:      indexedSlots(nil),
	})
}

func (s *Server) handleEditGallery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, err := s.catalog.GalleryItem(r.Context(), id)
	if err != nil {
		s.loadForEdit(w, r, galleryFormScreen, err)
		return
	}
	cats, err := s.catalog.CategoryOptions(r.Context())
	if err != nil {
		s.fail(w, r, err, "could not load categories")
		return
	}
	form := service.GalleryFormFrom(item, cats)
	s.showForm(w, r, galleryFormScreen, http.StatusOK, formView{
		ID:         id,
		Form:       form,
		Categories: cats,
		Slots:      indexedSlots(form.Images),
	})
}

func (s *Server) handleCreateGallery(w http.ResponseWriter, r *http.Request) {
	s.saveGallery(w, r, "")
}

func (s *Server) handleUpdateGallery(w http.ResponseWriter, r *http.Request) {
	s.saveGallery(w, r, r.PathValue("id"))
}

func (s *Server) saveGallery(w http.ResponseWriter, r *http.Request, id string) {
	form, bad, err := parseGalleryForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}
	// Only needed to re-render the form; the flow loads the chosen category
	// itself.
	cats, err := s.catalog.CategoryOptions(r.Context())
	if err != nil {
		s.logger.Warn("category options unavailable", "error", err)
	}

	run := func(progress service.ProgressFunc) error {
		if len(bad) > 0 {
			return rejectImages(form.Validate(), bad)
		}
		var err error
		if id == "" {
			_, err = s.catalog.CreateGallery(r.Context(), form, progress)
		} else {
			_, err = s.catalog.UpdateGallery(r.Context(), id, form, progress)
		}
		return err
	}
	s.submit(w, r, galleryFormScreen,
		formView{ID: id, Form: form, Categories: cats, Slots: indexedSlots(form.Images)},
		formView{Form: service.GalleryForm{}, Categories: cats, Slots: indexedSlots(nil)},
		run,
	)
}

// Vlogs

func parseVlogForm(w http.ResponseWriter, r *http.Request) (service.VlogForm, service.FieldErrors, error) {
	if err := parseSubmission(w, r); err != nil {
		return service.VlogForm{}, nil, err
	}
	form := service.VlogForm{
		Title:       r.FormValue("title"),
		URL:         r.FormValue("url"),
		Category:    r.FormValue("category"),
		Duration:    r.FormValue("duration"),
		Description: r.FormValue("description"),
	}
	bad := service.FieldErrors{}
	thumb, msg, err := formImage(r, "thumbnail")
	if err != nil {
		return form, nil, err
	}
	if msg != "" {
		bad["thumbnail"] = msg
	}
	form.Thumbnail = thumb
	return form, bad, nil
}

func (s *Server) handleNewVlog(w http.ResponseWriter, r *http.Request) {
	s.showForm(w, r, vlogFormScreen, http.StatusOK, formView{Form: service.VlogForm{}})
}

func (s *Server) handleEditVlog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, err := s.catalog.Vlog(r.Context(), id)
	if err != nil {
		s.loadForEdit(w, r, vlogFormScreen, err)
		return
	}
	s.showForm(w, r, vlogFormScreen, http.StatusOK, formView{ID: id, Form: service.VlogFormFrom(v)})
}

func (s *Server) handleCreateVlog(w http.ResponseWriter, r *http.Request) {
	s.saveVlog(w, r, "")
}

func (s *Server) handleUpdateVlog(w http.ResponseWriter, r *http.Request) {
	s.saveVlog(w, r, r.PathValue("id"))
}

func (s *Server) saveVlog(w http.ResponseWriter, r *http.Request, id string) {
	form, bad, err := parseVlogForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}
	run := func(progress service.ProgressFunc) error {
		if len(bad) > 0 {
			return rejectImages(form.Validate(), bad)
		}
		var err error
		if id == "" {
			_, err = s.catalog.CreateVlog(r.Context(), form, progress)
		} else {
			_, err = s.catalog.UpdateVlog(r.Context(), id, form, progress)
		}
		return err
	}
	s.submit(w, r, vlogFormScreen,
		formView{ID: id, Form: form},
		formView{Form: service.VlogForm{}},
		run,
	)
}
