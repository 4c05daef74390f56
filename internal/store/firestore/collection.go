// Package firestore stores admin records in Cloud Firestore collections.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/domain"
	"github.com/vbonduro/vlogadmin/internal/store"
)

// NewClient connects to project. credsFile may be empty to use the ambient
// application default credentials (or FIRESTORE_EMULATOR_HOST).
func NewClient(ctx context.Context, project, credsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := firestore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

// Collection maps one Firestore collection onto store.Collection.
// createdAt and updatedAt are filled in by the server.
type Collection[T any, PT interface {
	*T
	domain.Document
}] struct {
	client *firestore.Client
	name   string
}

func NewCollection[T any, PT interface {
	*T
	domain.Document
}](client *firestore.Client, name string) *Collection[T, PT] {
	return &Collection[T, PT]{client: client, name: name}
}

// NewSet opens every admin collection on client.
func NewSet(client *firestore.Client) *store.Set {
	return &store.Set{
		Categories:  NewCollection[domain.Category](client, domain.CollectionCategories),
		Gallery:     NewCollection[domain.GalleryItem](client, domain.CollectionGallery),
		Vlogs:       NewCollection[domain.Vlog](client, domain.CollectionVlogs),
		Users:       NewCollection[domain.User](client, domain.CollectionUsers),
		Credentials: NewCollection[domain.Credential](client, domain.CollectionCredentials),
	}
}

func (c *Collection[T, PT]) col() *firestore.CollectionRef {
	return c.client.Collection(c.name)
}

func (c *Collection[T, PT]) List(ctx context.Context) ([]*T, error) {
	snaps, err := c.col().OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.name, err)
	}

	out := make([]*T, 0, len(snaps))
	for _, snap := range snaps {
		v, err := c.decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Collection[T, PT]) GetByID(ctx context.Context, id string) (*T, error) {
	snap, err := c.col().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record: %w", c.name, err)
	}
	return c.decode(snap)
}

func (c *Collection[T, PT]) Create(ctx context.Context, v *T) (string, error) {
	meta := PT(v).Metadata()
	meta.CreatedAt, meta.UpdatedAt = time.Time{}, time.Time{}

	ref, wr, err := c.col().Add(ctx, v)
	if err != nil {
		return "", fmt.Errorf("failed to create %s record: %w", c.name, err)
	}
	meta.ID = ref.ID
	meta.CreatedAt = wr.UpdateTime
	return ref.ID, nil
}

func (c *Collection[T, PT]) Put(ctx context.Context, id string, v *T) error {
	if id == "" {
		return fmt.Errorf("failed to put %s record: empty id", c.name)
	}
	ref := c.col().Doc(id)
	meta := PT(v).Metadata()

	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		meta.CreatedAt, meta.UpdatedAt = time.Time{}, time.Time{}
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			existing, err := c.decode(snap)
			if err != nil {
				return err
			}
			meta.CreatedAt = PT(existing).Metadata().CreatedAt
		}
		return tx.Set(ref, v)
	})
	if err != nil {
		return fmt.Errorf("failed to put %s record: %w", c.name, err)
	}
	meta.ID = id
	return nil
}

func (c *Collection[T, PT]) Update(ctx context.Context, v *T) error {
	meta := PT(v).Metadata()
	ref := c.col().Doc(meta.ID)

	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return apperr.NotFound(fmt.Sprintf("%s record %s not found", c.name, meta.ID))
		}
		if err != nil {
			return err
		}
		existing, err := c.decode(snap)
		if err != nil {
			return err
		}
		meta.CreatedAt = PT(existing).Metadata().CreatedAt
		meta.UpdatedAt = time.Time{}
		return tx.Set(ref, v)
	})
	if apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update %s record: %w", c.name, err)
	}
	return nil
}

// Delete succeeds for missing documents; Firestore treats that as a no-op.
func (c *Collection[T, PT]) Delete(ctx context.Context, id string) error {
	if _, err := c.col().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", c.name, err)
	}
	return nil
}

func (c *Collection[T, PT]) Count(ctx context.Context) (int, error) {
	res, err := c.col().NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("failed to count %s: unexpected aggregation result %T", c.name, res["all"])
	}
	return int(v.GetIntegerValue()), nil
}

func (c *Collection[T, PT]) decode(snap *firestore.DocumentSnapshot) (*T, error) {
	v := new(T)
	if err := snap.DataTo(v); err != nil {
		return nil, fmt.Errorf("failed to decode %s record %s: %w", c.name, snap.Ref.ID, err)
	}
	PT(v).Metadata().ID = snap.Ref.ID
	return v, nil
}
