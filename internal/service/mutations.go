package service

import (
	"context"
	"strings"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/domain"
)

// Every submit runs the same pipeline: validate locally, load what the form
// depends on, upload new images one at a time, then persist. Nothing touches
// the network when validation fails. Images uploaded before a later failure
// are left behind.

func (c *Catalog) CreateCategory(ctx context.Context, form CategoryForm, progress ProgressFunc) (*domain.Category, error) {
	if err := invalid(form.Validate()); err != nil {
		return nil, err
	}
	cat := &domain.Category{}
	if err := c.fillCategory(ctx, cat, form, progress); err != nil {
		return nil, err
	}

	progress.report(pctSaveStart, stepSave)
	id, err := c.categories.Create(ctx, cat)
	if err != nil {
		return nil, apperr.Classify("could not save category", err)
	}
	progress.report(pctSaveFinished, stepDone)
	c.logger.Info("category created", "id", id, "title", cat.Title)
	return cat, nil
}

func (c *Catalog) UpdateCategory(ctx context.Context, id string, form CategoryForm, progress ProgressFunc) (*domain.Category, error) {
	if err := invalid(form.Validate()); err != nil {
		return nil, err
	}
	cat, err := c.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.fillCategory(ctx, cat, form, progress); err != nil {
		return nil, err
	}

	progress.report(pctSaveStart, stepSave)
	if err := c.categories.Update(ctx, cat); err != nil {
		return nil, apperr.Classify("could not save category", err)
	}
	progress.report(pctSaveFinished, stepDone)
	c.logger.Info("category updated", "id", id)
	return cat, nil
}

func (c *Catalog) fillCategory(ctx context.Context, cat *domain.Category, form CategoryForm, progress ProgressFunc) error {
	cover, err := c.resolveCover(ctx, form.Cover, progress)
	if err != nil {
		return err
	}
	cat.Title = strings.TrimSpace(form.Title)
	cat.Province = strings.TrimSpace(form.Province)
	cat.Description = strings.TrimSpace(form.Description)
	cat.CoverImageURL = cover
	return nil
}

func (c *Catalog) CreateGallery(ctx context.Context, form GalleryForm, progress ProgressFunc) (*domain.GalleryItem, error) {
	if err := invalid(form.Validate()); err != nil {
		return nil, err
	}
	item := &domain.GalleryItem{}
	if err := c.fillGallery(ctx, item, form, progress); err != nil {
		return nil, err
	}

	progress.report(pctSaveStart, stepSave)
	id, err := c.gallery.Create(ctx, item)
	if err != nil {
		return nil, apperr.Classify("could not save gallery item", err)
	}
	progress.report(pctSaveFinished, stepDone)
	c.logger.Info("gallery item created", "id", id, "images", len(item.GalleryImageURLs))
	return item, nil
}

func (c *Catalog) UpdateGallery(ctx context.Context, id string, form GalleryForm, progress ProgressFunc) (*domain.GalleryItem, error) {
	if err := invalid(form.Validate()); err != nil {
		return nil, err
	}
	item, err := c.GalleryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.fillGallery(ctx, item, form, progress); err != nil {
		return nil, err
	}

	progress.report(pctSaveStart, stepSave)
	if err := c.gallery.Update(ctx, item); err != nil {
		return nil, apperr.Classify("could not save gallery item", err)
	}
	progress.report(pctSaveFinished, stepDone)
	c.logger.Info("gallery item updated", "id", id)
	return item, nil
}

func (c *Catalog) fillGallery(ctx context.Context, item *domain.GalleryItem, form GalleryForm, progress ProgressFunc) error {
	cat, err := c.categories.GetByID(ctx, form.CategoryID)
	if err != nil {
		return apperr.Classify("could not load category", err)
	}
	if cat == nil {
		return apperr.Validation(FieldErrors{"categoryId": "Selected category no longer exists"})
	}

	cover, err := c.resolveCover(ctx, form.Cover, progress)
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(form.Images))
	for i, slot := range form.Images {
		url, err := c.resolve(ctx, slot)
		if err != nil {
			return err
		}
		urls = append(urls, url)
		progress.report(galleryPercent(i, len(form.Images)), stepGallery)
	}

	item.Title = cat.Title
	item.Subtitle = strings.TrimSpace(form.Subtitle)
	item.Date = strings.TrimSpace(form.Date)
	item.Province = strings.TrimSpace(form.Province)
	item.Description = strings.TrimSpace(form.Description)
	item.CoverImageURL = cover
	item.GalleryImageURLs = urls
	return nil
}

func (c *Catalog) CreateVlog(ctx context.Context, form VlogForm, progress ProgressFunc) (*domain.Vlog, error) {
	if err := invalid(form.Validate()); err != nil {
		return nil, err
	}
	v := &domain.Vlog{}
	if err := c.fillVlog(ctx, v, form, progress); err != nil {
		return nil, err
	}

	progress.report(pctSaveStart, stepSave)
	id, err := c.vlogs.Create(ctx, v)
	if err != nil {
		return nil, apperr.Classify("could not save vlog", err)
	}
	progress.report(pctSaveFinished, stepDone)
	c.logger.Info("vlog created", "id", id, "title", v.Title)
	return v, nil
}

func (c *Catalog) UpdateVlog(ctx context.Context, id string, form VlogForm, progress ProgressFunc) (*domain.Vlog, error) {
	if err := invalid(form.Validate()); err != nil {
		return nil, err
	}
	v, err := c.Vlog(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.fillVlog(ctx, v, form, progress); err != nil {
		return nil, err
	}

	progress.report(pctSaveStart, stepSave)
	if err := c.vlogs.Update(ctx, v); err != nil {
		return nil, apperr.Classify("could not save vlog", err)
	}
	progress.report(pctSaveFinished, stepDone)
	c.logger.Info("vlog updated", "id", id)
	return v, nil
}

func (c *Catalog) fillVlog(ctx context.Context, v *domain.Vlog, form VlogForm, progress ProgressFunc) error {
	thumb, err := c.resolveCover(ctx, form.Thumbnail, progress)
	if err != nil {
		return err
	}
	v.Title = strings.TrimSpace(form.Title)
	v.URL = strings.TrimSpace(form.URL)
	v.Category = strings.TrimSpace(form.Category)
	v.Duration = strings.TrimSpace(form.Duration)
	v.Description = strings.TrimSpace(form.Description)
	v.ThumbnailURL = thumb
	return nil
}
