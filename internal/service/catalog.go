package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/asset"
	"github.com/vbonduro/vlogadmin/internal/domain"
)

// repository is the subset of store.Collection that Catalog requires.
type repository[T any] interface {
	List(ctx context.Context) ([]*T, error)
	GetByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, v *T) (string, error)
	Update(ctx context.Context, v *T) error
	Count(ctx context.Context) (int, error)
}

// counter is the subset of store.Collection used for the dashboard only.
type counter interface {
	Count(ctx context.Context) (int, error)
}

// Catalog runs the create and update flows for categories, gallery items
// and vlogs.
type Catalog struct {
	categories repository[domain.Category]
	gallery    repository[domain.GalleryItem]
	vlogs      repository[domain.Vlog]
	users      counter
	uploader   asset.Uploader
	logger     *slog.Logger
}

func NewCatalog(
	categories repository[domain.Category],
	gallery repository[domain.GalleryItem],
	vlogs repository[domain.Vlog],
	users counter,
	uploader asset.Uploader,
	logger *slog.Logger,
) *Catalog {
	return &Catalog{
		categories: categories,
		gallery:    gallery,
		vlogs:      vlogs,
		users:      users,
		uploader:   uploader,
		logger:     logger,
	}
}

// Counts is the dashboard summary.
type Counts struct {
	Categories int
	Gallery    int
	Vlogs      int
	Users      int
}

func (c *Catalog) Counts(ctx context.Context) (Counts, error) {
	var out Counts
	for _, q := range []struct {
		name string
		src  counter
		dst  *int
	}{
		{domain.CollectionCategories, c.categories, &out.Categories},
		{domain.CollectionGallery, c.gallery, &out.Gallery},
		{domain.CollectionVlogs, c.vlogs, &out.Vlogs},
		{domain.CollectionUsers, c.users, &out.Users},
	} {
		n, err := q.src.Count(ctx)
		if err != nil {
			return Counts{}, apperr.Classify("could not load dashboard", fmt.Errorf("failed to count %s: %w", q.name, err))
		}
		*q.dst = n
	}
	return out, nil
}

// CategoryOptions lists the categories a gallery item can be filed under,
// newest first.
func (c *Catalog) CategoryOptions(ctx context.Context) ([]*domain.Category, error) {
	cats, err := c.categories.List(ctx)
	if err != nil {
		return nil, apperr.Classify("could not load categories", err)
	}
	return cats, nil
}

func (c *Catalog) Category(ctx context.Context, id string) (*domain.Category, error) {
	return load(ctx, c.categories, "category", id)
}

func (c *Catalog) GalleryItem(ctx context.Context, id string) (*domain.GalleryItem, error) {
	return load(ctx, c.gallery, "gallery item", id)
}

func (c *Catalog) Vlog(ctx context.Context, id string) (*domain.Vlog, error) {
	return load(ctx, c.vlogs, "vlog", id)
}

func load[T any](ctx context.Context, repo repository[T], kind, id string) (*T, error) {
	v, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Classify("could not load "+kind, err)
	}
	if v == nil {
		return nil, apperr.NotFound(kind + " not found")
	}
	return v, nil
}

// resolve turns a slot into a URL, uploading it when it holds a new file.
func (c *Catalog) resolve(ctx context.Context, slot ImageSlot) (string, error) {
	if !slot.IsNew() {
		return slot.URL, nil
	}
	url, err := c.uploader.Upload(ctx, *slot.File)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			err = apperr.Upload("image upload failed", err)
		}
		return "", err
	}
	c.logger.Debug("image uploaded", "name", slot.File.Name, "url", url)
	return url, nil
}

// resolveCover uploads the single leading image of a form, reporting the
// cover milestones.
func (c *Catalog) resolveCover(ctx context.Context, slot ImageSlot, progress ProgressFunc) (string, error) {
	progress.report(pctCoverStart, stepCover)
	url, err := c.resolve(ctx, slot)
	if err != nil {
		return "", err
	}
	progress.report(pctCoverDone, stepCover)
	return url, nil
}

func invalid(errs FieldErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return apperr.Validation(errs)
}
