// Package store persists admin records. Every collection is a set of JSON
// documents keyed by an opaque string id.
package store

import (
	"context"

	"github.com/vbonduro/vlogadmin/internal/domain"
)

// Collection is the record store contract shared by every backend.
// GetByID returns (nil, nil) when the id is absent. Update returns an
// apperr NotFound error when the id is absent. Delete of a missing id
// succeeds.
type Collection[T any] interface {
	List(ctx context.Context) ([]*T, error)
	GetByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, v *T) (string, error)
	Put(ctx context.Context, id string, v *T) error
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Set bundles one collection per entity.
type Set struct {
	Categories  Collection[domain.Category]
	Gallery     Collection[domain.GalleryItem]
	Vlogs       Collection[domain.Vlog]
	Users       Collection[domain.User]
	Credentials Collection[domain.Credential]
}
