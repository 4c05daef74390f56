package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/db"
	"github.com/vbonduro/vlogadmin/internal/domain"
)

// SQLCollection stores one collection in the documents table. Payloads are
// JSON; id and timestamps live in their own columns.
type SQLCollection[T any, PT interface {
	*T
	domain.Document
}] struct {
	db      *sql.DB
	dialect db.Dialect
	name    string
	now     func() time.Time
}

func NewSQLCollection[T any, PT interface {
	*T
	domain.Document
}](d *sql.DB, dialect db.Dialect, name string) *SQLCollection[T, PT] {
	return &SQLCollection[T, PT]{db: d, dialect: dialect, name: name, now: time.Now}
}

// NewSQLSet opens every admin collection over d.
func NewSQLSet(d *sql.DB, dialect db.Dialect) *Set {
	return &Set{
		Categories:  NewSQLCollection[domain.Category](d, dialect, domain.CollectionCategories),
		Gallery:     NewSQLCollection[domain.GalleryItem](d, dialect, domain.CollectionGallery),
		Vlogs:       NewSQLCollection[domain.Vlog](d, dialect, domain.CollectionVlogs),
		Users:       NewSQLCollection[domain.User](d, dialect, domain.CollectionUsers),
		Credentials: NewSQLCollection[domain.Credential](d, dialect, domain.CollectionCredentials),
	}
}

// WithClock replaces the timestamp source.
func (s *SQLCollection[T, PT]) WithClock(now func() time.Time) *SQLCollection[T, PT] {
	s.now = now
	return s
}

func (s *SQLCollection[T, PT]) List(ctx context.Context) ([]*T, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, data, created_at, updated_at FROM documents
		WHERE collection = ?
		ORDER BY created_at DESC, id ASC
	`), s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.name, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", s.name, err)
	}

	return out, nil
}

func (s *SQLCollection[T, PT]) GetByID(ctx context.Context, id string) (*T, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, data, created_at, updated_at FROM documents
		WHERE collection = ? AND id = ?
	`), s.name, id)

	v, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLCollection[T, PT]) Create(ctx context.Context, v *T) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s record: %w", s.name, err)
	}

	id := uuid.NewString()
	now := s.now()
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, 0)
	`), s.name, id, string(data), now.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to create %s record: %w", s.name, err)
	}

	meta := PT(v).Metadata()
	meta.ID = id
	meta.CreatedAt = now
	meta.UpdatedAt = time.Time{}
	return id, nil
}

func (s *SQLCollection[T, PT]) Put(ctx context.Context, id string, v *T) error {
	if id == "" {
		return fmt.Errorf("failed to put %s record: empty id", s.name)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", s.name, err)
	}

	now := s.now().UnixNano()
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, 0)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = ?
	`), s.name, id, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to put %s record: %w", s.name, err)
	}

	PT(v).Metadata().ID = id
	return nil
}

func (s *SQLCollection[T, PT]) Update(ctx context.Context, v *T) error {
	meta := PT(v).Metadata()
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", s.name, err)
	}

	now := s.now()
	var created int64
	err = s.db.QueryRowContext(ctx, s.rebind(`
		UPDATE documents SET data = ?, updated_at = ?
		WHERE collection = ? AND id = ?
		RETURNING created_at
	`), string(data), now.UnixNano(), s.name, meta.ID).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(fmt.Sprintf("%s record %s not found", singular(s.name), meta.ID))
	}
	if err != nil {
		return fmt.Errorf("failed to update %s record: %w", s.name, err)
	}

	meta.CreatedAt = fromNanos(created)
	meta.UpdatedAt = now
	return nil
}

func (s *SQLCollection[T, PT]) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		DELETE FROM documents WHERE collection = ? AND id = ?
	`), s.name, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s record: %w", s.name, err)
	}
	return nil
}

func (s *SQLCollection[T, PT]) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM documents WHERE collection = ?
	`), s.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", s.name, err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLCollection[T, PT]) scan(row scanner) (*T, error) {
	var (
		id               string
		data             []byte
		created, updated int64
	)
	if err := row.Scan(&id, &data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan %s record: %w", s.name, err)
	}

	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s record %s: %w", s.name, id, err)
	}
	meta := PT(v).Metadata()
	meta.ID = id
	meta.CreatedAt = fromNanos(created)
	meta.UpdatedAt = fromNanos(updated)
	return v, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLCollection[T, PT]) rebind(query string) string {
	if s.dialect != db.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func singular(collection string) string {
	switch collection {
	case domain.CollectionCategories:
		return "category"
	case domain.CollectionGallery:
		return "gallery"
	default:
		return strings.TrimSuffix(collection, "s")
	}
}
