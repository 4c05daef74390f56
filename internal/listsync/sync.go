// Package listsync keeps one browser session's copy of a collection and
// derives the sorted, filtered and paged views the admin tables show.
package listsync

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/domain"
)

type State int

const (
	Loading State = iota
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "loading"
	}
}

// Source is the part of a record store the synchronizer uses.
type Source[T any] interface {
	List(ctx context.Context) ([]*T, error)
	Delete(ctx context.Context, id string) error
}

// Filter keeps the records for which it returns true.
type Filter[T any] func(*T) bool

// Synchronizer owns the canonical in-memory copy of one collection. The mutex
// is never held across a store call.
type Synchronizer[T any, PT interface {
	*T
	domain.Document
}] struct {
	name     string
	src      Source[T]
	pageSize int

	mu        sync.Mutex
	canonical []*T
	state     State
	err       error
	issued    uint64
	applied   uint64
	// deleted maps ids confirmed gone to the last refresh token issued
	// before the delete returned. Listings with that token or older may
	// still carry them.
	deleted map[string]uint64
}

func New[T any, PT interface {
	*T
	domain.Document
}](name string, src Source[T], pageSize int) *Synchronizer[T, PT] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Synchronizer[T, PT]{name: name, src: src, pageSize: pageSize, deleted: make(map[string]uint64)}
}

// Refresh replaces the canonical copy with a fresh listing. A failed listing
// leaves the copy untouched and moves to Error. A response that arrives after
// a newer refresh has been applied is dropped, and records deleted while it
// was in flight are left out of it.
func (s *Synchronizer[T, PT]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	token := s.issued
	s.state = Loading
	s.mu.Unlock()

	items, err := s.src.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token <= s.applied {
		return nil
	}
	s.applied = token

	if err != nil {
		s.state = Error
		s.err = apperr.Classify(fmt.Sprintf("could not load %s", s.name), err)
		return s.err
	}

	s.canonical = s.withoutDeleted(items, token)
	s.state = Ready
	s.err = nil
	return nil
}

// withoutDeleted drops records from a listing issued as token that were
// deleted after it was requested. Tombstones older than token are done.
func (s *Synchronizer[T, PT]) withoutDeleted(items []*T, token uint64) []*T {
	if len(s.deleted) == 0 {
		return items
	}
	kept := items[:0]
	for _, item := range items {
		if gen, ok := s.deleted[PT(item).Metadata().ID]; ok && token <= gen {
			continue
		}
		kept = append(kept, item)
	}
	for id, gen := range s.deleted {
		if gen < token {
			delete(s.deleted, id)
		}
	}
	return kept
}

func (s *Synchronizer[T, PT]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the failure behind the Error state.
func (s *Synchronizer[T, PT]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Synchronizer[T, PT]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.canonical)
}

// Snapshot returns the canonical copy in store order.
func (s *Synchronizer[T, PT]) Snapshot() []*T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*T, len(s.canonical))
	copy(out, s.canonical)
	return out
}

// Derive returns the filtered records sorted by key. It never changes the
// canonical copy.
func (s *Synchronizer[T, PT]) Derive(key SortKey, filters ...Filter[T]) []*T {
	items := s.Snapshot()

	kept := items[:0]
	for _, item := range items {
		if keep(item, filters) {
			kept = append(kept, item)
		}
	}

	sortDocs[T, PT](kept, key)
	return kept
}

func keep[T any](item *T, filters []Filter[T]) bool {
	for _, f := range filters {
		if f != nil && !f(item) {
			return false
		}
	}
	return true
}

// Page is one window of a derived view.
type Page[T any] struct {
	Items      []*T
	Number     int
	TotalPages int
	Total      int
	Sort       SortKey
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }
func (p Page[T]) Prev() int     { return p.Number - 1 }
func (p Page[T]) Next() int     { return p.Number + 1 }

// Numbers lists every page number, for pagination links.
func (p Page[T]) Numbers() []int {
	out := make([]int, p.TotalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Page returns window n of the derived view. n is clamped to
// [1, TotalPages] and TotalPages is at least 1.
func (s *Synchronizer[T, PT]) Page(key SortKey, n int, filters ...Filter[T]) Page[T] {
	items := s.Derive(key, filters...)
	total := len(items)
	pages := TotalPages(total, s.pageSize)

	if n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}

	start := (n - 1) * s.pageSize
	end := min(start+s.pageSize, total)
	if start > total {
		start = total
	}

	return Page[T]{
		Items:      items[start:end],
		Number:     n,
		TotalPages: pages,
		Total:      total,
		Sort:       key,
	}
}

// TotalPages is max(1, ceil(n/size)).
func TotalPages(n, size int) int {
	if size < 1 {
		size = 1
	}
	return max(1, (n+size-1)/size)
}

// OptimisticRemove drops id from the canonical copy and reports where it was.
// Unknown ids are a no-op.
func (s *Synchronizer[T, PT]) OptimisticRemove(id string) (*T, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.canonical {
		if PT(item).Metadata().ID == id {
			s.canonical = append(s.canonical[:i:i], s.canonical[i+1:]...)
			return item, i, true
		}
	}
	return nil, -1, false
}

// Remove deletes id optimistically and then in the store. When the store
// refuses, the record goes back where it was, unless a refresh has already
// brought it back, and the error is returned for the admin to see.
func (s *Synchronizer[T, PT]) Remove(ctx context.Context, id string) error {
	removed, index, ok := s.OptimisticRemove(id)

	err := s.src.Delete(ctx, id)
	if err == nil {
		s.confirmDeleted(id)
		return nil
	}

	if ok {
		s.restore(removed, index)
	}
	return apperr.Classify(fmt.Sprintf("could not delete from %s", s.name), err)
}

// confirmDeleted keeps id out of the copy, including listings already in
// flight when the store confirmed the delete.
func (s *Synchronizer[T, PT]) confirmDeleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted[id] = s.issued
	for i, item := range s.canonical {
		if PT(item).Metadata().ID == id {
			s.canonical = append(s.canonical[:i:i], s.canonical[i+1:]...)
			break
		}
	}
}

func (s *Synchronizer[T, PT]) restore(item *T, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := PT(item).Metadata().ID
	for _, existing := range s.canonical {
		if PT(existing).Metadata().ID == id {
			return
		}
	}

	index = max(0, min(index, len(s.canonical)))
	s.canonical = append(s.canonical, nil)
	copy(s.canonical[index+1:], s.canonical[index:])
	s.canonical[index] = item
}

// Distinct returns the sorted non-empty values of field across the canonical
// copy.
func (s *Synchronizer[T, PT]) Distinct(field func(*T) string) []string {
	seen := make(map[string]struct{})
	for _, item := range s.Snapshot() {
		if v := field(item); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
