package service

import (
	"net/url"
	"strings"
	"time"

	"github.com/vbonduro/vlogadmin/internal/asset"
	"github.com/vbonduro/vlogadmin/internal/domain"
)

// ImageSlot is one image field of a form: either the URL already stored on the
// record, or a newly picked file that still has to be uploaded.
type ImageSlot struct {
	URL  string
	File *asset.File
}

func ExistingImage(url string) ImageSlot { return ImageSlot{URL: url} }

func NewImage(f asset.File) ImageSlot { return ImageSlot{File: &f} }

// Empty reports a slot with neither a file nor a URL.
func (s ImageSlot) Empty() bool {
	return s.File == nil && strings.TrimSpace(s.URL) == ""
}

func (s ImageSlot) IsNew() bool { return s.File != nil }

// FieldErrors maps a form field name to the message shown next to it.
type FieldErrors map[string]string

func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// rule is one row of a form's validation table. The first failing rule for
// a field wins.
type rule[F any] struct {
	field   string
	message string
	ok      func(F) bool
}

func check[F any](f F, rules []rule[F]) FieldErrors {
	errs := FieldErrors{}
	for _, r := range rules {
		if errs.Has(r.field) {
			continue
		}
		if !r.ok(f) {
			errs[r.field] = r.message
		}
	}
	return errs
}

func present(s string) bool { return strings.TrimSpace(s) != "" }

type CategoryForm struct {
	Title       string
	Province    string
	Description string
	Cover       ImageSlot
}

var categoryRules = []rule[CategoryForm]{
	{"title", "Name is required", func(f CategoryForm) bool { return present(f.Title) }},
	{"province", "Province is required", func(f CategoryForm) bool { return present(f.Province) }},
	{"description", "Description is required", func(f CategoryForm) bool { return present(f.Description) }},
	{"cover", "Cover image is required", func(f CategoryForm) bool { return !f.Cover.Empty() }},
}

func (f CategoryForm) Validate() FieldErrors { return check(f, categoryRules) }

func CategoryFormFrom(c *domain.Category) CategoryForm {
	return CategoryForm{
		Title:       c.Title,
		Province:    c.Province,
		Description: c.Description,
		Cover:       ExistingImage(c.CoverImageURL),
	}
}

type GalleryForm struct {
	CategoryID  string
	Subtitle    string
	Date        string
	Province    string
	Description string
	Cover       ImageSlot
	Images      []ImageSlot
}

var galleryRules = []rule[GalleryForm]{
	{"categoryId", "Category selection is required", func(f GalleryForm) bool { return present(f.CategoryID) }},
	{"date", "Date is required", func(f GalleryForm) bool { return present(f.Date) }},
	{"date", "Date must be YYYY-MM-DD", func(f GalleryForm) bool {
		_, err := time.Parse(domain.GalleryDateLayout, strings.TrimSpace(f.Date))
		return err == nil
	}},
	{"province", "Province is required", func(f GalleryForm) bool { return present(f.Province) }},
	{"description", "Description is required", func(f GalleryForm) bool { return present(f.Description) }},
	{"coverImg", "Cover image is required", func(f GalleryForm) bool { return !f.Cover.Empty() }},
	{"gallery", "All gallery images are required", func(f GalleryForm) bool {
		if len(f.Images) == 0 {
			return false
		}
		for _, img := range f.Images {
			if img.Empty() {
				return false
			}
		}
		return true
	}},
}

func (f GalleryForm) Validate() FieldErrors { return check(f, galleryRules) }

// GalleryFormFrom pre-fills an edit form. The category is matched by title
// because gallery items only keep a copy of it.
func GalleryFormFrom(item *domain.GalleryItem, categories []*domain.Category) GalleryForm {
	form := GalleryForm{
		Subtitle:    item.Subtitle,
		Date:        item.Date,
		Province:    item.Province,
		Description: item.Description,
		Cover:       ExistingImage(item.CoverImageURL),
	}
	for _, c := range categories {
		if c.Title == item.Title {
			form.CategoryID = c.ID
			break
		}
	}
	for _, u := range item.GalleryImageURLs {
		form.Images = append(form.Images, ExistingImage(u))
	}
	return form
}

type VlogForm struct {
	Title       string
	URL         string
	Category    string
	Duration    string
	Description string
	Thumbnail   ImageSlot
}

var vlogRules = []rule[VlogForm]{
	{"title", "Title is required", func(f VlogForm) bool { return present(f.Title) }},
	{"url", "URL is required", func(f VlogForm) bool { return present(f.URL) }},
	{"url", "URL must be a full http(s) link", func(f VlogForm) bool { return isHTTPURL(f.URL) }},
	{"category", "Category is required", func(f VlogForm) bool { return present(f.Category) }},
	{"duration", "Duration is required", func(f VlogForm) bool { return present(f.Duration) }},
	{"description", "Description is required", func(f VlogForm) bool { return present(f.Description) }},
	{"thumbnail", "Thumbnail is required", func(f VlogForm) bool { return !f.Thumbnail.Empty() }},
}

func (f VlogForm) Validate() FieldErrors { return check(f, vlogRules) }

func VlogFormFrom(v *domain.Vlog) VlogForm {
	return VlogForm{
		Title:       v.Title,
		URL:         v.URL,
		Category:    v.Category,
		Duration:    v.Duration,
		Description: v.Description,
		Thumbnail:   ExistingImage(v.ThumbnailURL),
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
