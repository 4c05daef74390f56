package listsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/domain"
)

type fakeSource[T any] struct {
	mu        sync.Mutex
	items     []*T
	listErr   error
	deleteErr error
	listCalls int
	deleted   []string
}

func (f *fakeSource[T]) List(context.Context) ([]*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*T, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeSource[T]) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func gallery(id, title, date string) *domain.GalleryItem {
	g := &domain.GalleryItem{Title: title, Date: date}
	g.ID = id
	return g
}

func category(id, title string, created time.Time) *domain.Category {
	c := &domain.Category{Title: title}
	c.ID = id
	c.CreatedAt = created
	return c
}

func titles[T any, PT interface {
	*T
	domain.Document
}](items []*T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = PT(item).DisplayName()
	}
	return out
}

func ids[T any, PT interface {
	*T
	domain.Document
}](items []*T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = PT(item).Metadata().ID
	}
	return out
}

func TestDeriveDateDescGallery(t *testing.T) {
	src := &fakeSource[domain.GalleryItem]{items: []*domain.GalleryItem{
		gallery("1", "Ella", "2024-01-01"),
		gallery("2", "Kandy", "2024-06-01"),
	}}
	s := New[domain.GalleryItem]("gallery", src, 3)
	require.NoError(t, s.Refresh(context.Background()))

	got := s.Derive(DateDesc)
	assert.Equal(t, []string{"Kandy", "Ella"}, titles[domain.GalleryItem](got))
}

func TestPageWindow(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource[domain.Category]{}
	for i := range 12 {
		// store order is newest first
		src.items = append(src.items, category(fmt.Sprint(i), fmt.Sprintf("c%02d", i), base.Add(-time.Duration(i)*time.Hour)))
	}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	p := s.Page(DateDesc, 3)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, 12, p.Total)
	assert.Equal(t, []string{"10", "11"}, ids[domain.Category](p.Items))
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())
	assert.Equal(t, []int{1, 2, 3}, p.Numbers())
}

func TestPageClampsOutOfRange(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource[domain.Category]{}
	for i := range 7 {
		src.items = append(src.items, category(fmt.Sprint(i), "c", base.Add(-time.Duration(i)*time.Minute)))
	}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	past := s.Page(DateDesc, 99)
	assert.Equal(t, 2, past.Number)
	assert.Len(t, past.Items, 2)

	before := s.Page(DateDesc, -4)
	assert.Equal(t, 1, before.Number)
	assert.Len(t, before.Items, 5)
}

func TestPageEmpty(t *testing.T) {
	s := New[domain.Vlog]("vlogs", &fakeSource[domain.Vlog]{}, 3)
	require.NoError(t, s.Refresh(context.Background()))

	p := s.Page(NameAsc, 1)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
	assert.False(t, p.HasNext())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 5))
	assert.Equal(t, 1, TotalPages(5, 5))
	assert.Equal(t, 2, TotalPages(6, 5))
	assert.Equal(t, 4, TotalPages(10, 3))
}

func TestPageSizeBound(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for n := range 11 {
		src := &fakeSource[domain.Category]{}
		for i := range n {
			src.items = append(src.items, category(fmt.Sprint(i), "c", base.Add(time.Duration(i)*time.Minute)))
		}
		s := New[domain.Category]("categories", src, 3)
		require.NoError(t, s.Refresh(context.Background()))

		seen := 0
		total := s.Page(DateDesc, 1).TotalPages
		for page := 1; page <= total; page++ {
			items := s.Page(DateDesc, page).Items
			assert.LessOrEqual(t, len(items), 3)
			seen += len(items)
		}
		assert.Equal(t, n, seen)
	}
}

func TestDeriveIsStable(t *testing.T) {
	same := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	src := &fakeSource[domain.Category]{items: []*domain.Category{
		category("a", "Galle", same),
		category("b", "Galle", same),
		category("c", "Galle", same),
	}}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	for _, key := range SortKeys {
		assert.Equal(t, []string{"a", "b", "c"}, ids[domain.Category](s.Derive(key)), key)
	}
}

func TestDeriveNameOrdinal(t *testing.T) {
	now := time.Now()
	src := &fakeSource[domain.Category]{items: []*domain.Category{
		category("1", "apple", now),
		category("2", "Zebra", now),
		category("3", "Ärmel", now),
		category("4", "Banana", now),
	}}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	assert.Equal(t, []string{"Banana", "Zebra", "apple", "Ärmel"}, titles[domain.Category](s.Derive(NameAsc)))
	assert.Equal(t, []string{"Ärmel", "apple", "Zebra", "Banana"}, titles[domain.Category](s.Derive(NameDesc)))
}

func TestDeriveDoesNotMutateCanonical(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource[domain.Category]{items: []*domain.Category{
		category("new", "B", base.Add(time.Hour)),
		category("old", "A", base),
	}}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	_ = s.Derive(DateAsc)
	_ = s.Derive(NameAsc)
	assert.Equal(t, []string{"new", "old"}, ids[domain.Category](s.Snapshot()))
}

func TestDeriveFilters(t *testing.T) {
	mk := func(id, cat string) *domain.Vlog {
		v := &domain.Vlog{Title: id, Category: cat}
		v.ID = id
		return v
	}
	src := &fakeSource[domain.Vlog]{items: []*domain.Vlog{mk("1", "hiking"), mk("2", "food"), mk("3", "hiking"), mk("4", "")}}
	s := New[domain.Vlog]("vlogs", src, 3)
	require.NoError(t, s.Refresh(context.Background()))

	hiking := func(v *domain.Vlog) bool { return v.Category == "hiking" }
	assert.Equal(t, []string{"1", "3"}, ids[domain.Vlog](s.Derive(DateDesc, hiking)))
	assert.Len(t, s.Derive(DateDesc, nil), 4)

	assert.Equal(t, []string{"food", "hiking"}, s.Distinct(func(v *domain.Vlog) string { return v.Category }))
}

func TestRefreshFailureKeepsCanonical(t *testing.T) {
	now := time.Now()
	src := &fakeSource[domain.Category]{items: []*domain.Category{category("1", "Kandy", now)}}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, Ready, s.State())

	src.listErr = errors.New("dial tcp: connection refused")
	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNetwork))
	assert.Equal(t, Error, s.State())
	assert.Equal(t, err, s.Err())
	assert.Equal(t, 1, s.Len())

	src.listErr = nil
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, Ready, s.State())
	assert.NoError(t, s.Err())
}

func TestInitialStateIsLoading(t *testing.T) {
	s := New[domain.Vlog]("vlogs", &fakeSource[domain.Vlog]{}, 3)
	assert.Equal(t, Loading, s.State())
	assert.Equal(t, "loading", s.State().String())
}

// gatedSource answers each List call with the slice sent on its release
// channel, so tests control the order responses come back in.
type gatedSource struct {
	calls chan chan []*domain.Vlog
}

func (g *gatedSource) List(ctx context.Context) ([]*domain.Vlog, error) {
	release := make(chan []*domain.Vlog)
	g.calls <- release
	return <-release, nil
}

func (g *gatedSource) Delete(context.Context, string) error { return nil }

func TestStaleRefreshDiscarded(t *testing.T) {
	src := &gatedSource{calls: make(chan chan []*domain.Vlog)}
	s := New[domain.Vlog]("vlogs", src, 3)
	ctx := context.Background()

	older := make(chan error, 1)
	go func() { older <- s.Refresh(ctx) }()
	firstRelease := <-src.calls

	newer := make(chan error, 1)
	go func() { newer <- s.Refresh(ctx) }()
	secondRelease := <-src.calls

	fresh := &domain.Vlog{Title: "fresh"}
	fresh.ID = "fresh"
	secondRelease <- []*domain.Vlog{fresh}
	require.NoError(t, <-newer)

	stale := &domain.Vlog{Title: "stale"}
	stale.ID = "stale"
	firstRelease <- []*domain.Vlog{stale}
	require.NoError(t, <-older)

	assert.Equal(t, []string{"fresh"}, ids[domain.Vlog](s.Snapshot()))
	assert.Equal(t, Ready, s.State())
}

func vlog(id string) *domain.Vlog {
	v := &domain.Vlog{Title: id}
	v.ID = id
	return v
}

func TestRefreshInFlightDuringRemoveKeepsRecordOut(t *testing.T) {
	src := &gatedSource{calls: make(chan chan []*domain.Vlog)}
	s := New[domain.Vlog]("vlogs", src, 3)
	ctx := context.Background()

	loaded := make(chan error, 1)
	go func() { loaded <- s.Refresh(ctx) }()
	(<-src.calls) <- []*domain.Vlog{vlog("a"), vlog("b")}
	require.NoError(t, <-loaded)

	// a listing taken before the delete is still on its way back
	inFlight := make(chan error, 1)
	go func() { inFlight <- s.Refresh(ctx) }()
	release := <-src.calls

	require.NoError(t, s.Remove(ctx, "a"))
	assert.Equal(t, []string{"b"}, ids[domain.Vlog](s.Snapshot()))

	release <- []*domain.Vlog{vlog("a"), vlog("b")}
	require.NoError(t, <-inFlight)
	assert.Equal(t, []string{"b"}, ids[domain.Vlog](s.Snapshot()))
	assert.Equal(t, Ready, s.State())

	// listings requested after the delete are taken as they are
	later := make(chan error, 1)
	go func() { later <- s.Refresh(ctx) }()
	(<-src.calls) <- []*domain.Vlog{vlog("b")}
	require.NoError(t, <-later)
	assert.Equal(t, []string{"b"}, ids[domain.Vlog](s.Snapshot()))
	assert.Empty(t, s.deleted)
}

func TestOptimisticRemove(t *testing.T) {
	now := time.Now()
	src := &fakeSource[domain.Category]{items: []*domain.Category{
		category("a", "A", now), category("x", "X", now), category("b", "B", now),
	}}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	removed, index, ok := s.OptimisticRemove("x")
	require.True(t, ok)
	assert.Equal(t, "X", removed.Title)
	assert.Equal(t, 1, index)
	assert.Equal(t, []string{"a", "b"}, ids[domain.Category](s.Snapshot()))

	// idempotent
	_, _, ok = s.OptimisticRemove("x")
	assert.False(t, ok)
	_, _, ok = s.OptimisticRemove("unknown")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids[domain.Category](s.Snapshot()))
	assert.Equal(t, 1, src.listCalls)
}

func TestRemoveSuccess(t *testing.T) {
	now := time.Now()
	src := &fakeSource[domain.Category]{items: []*domain.Category{category("x", "X", now), category("y", "Y", now)}}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.Remove(context.Background(), "x"))
	assert.Equal(t, []string{"y"}, ids[domain.Category](s.Snapshot()))
	assert.Equal(t, []string{"x"}, src.deleted)
	assert.Equal(t, Ready, s.State())
}

// blockingDeleteSource lets the test look at the canonical copy while the
// remote delete is still in flight.
type blockingDeleteSource struct {
	fakeSource[domain.Category]
	started chan struct{}
	release chan error
}

func (b *blockingDeleteSource) Delete(ctx context.Context, id string) error {
	close(b.started)
	return <-b.release
}

func TestRemoveFailureRollsBack(t *testing.T) {
	now := time.Now()
	src := &blockingDeleteSource{
		started: make(chan struct{}),
		release: make(chan error),
	}
	src.items = []*domain.Category{category("a", "A", now), category("x", "X", now), category("b", "B", now)}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Remove(context.Background(), "x") }()

	<-src.started
	assert.Equal(t, []string{"a", "b"}, ids[domain.Category](s.Snapshot()))

	src.release <- errors.New("permission denied")
	err := <-done
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNetwork))

	assert.Equal(t, []string{"a", "x", "b"}, ids[domain.Category](s.Snapshot()))
	assert.Equal(t, Ready, s.State())
}

func TestRemoveFailureAfterRefreshDoesNotDuplicate(t *testing.T) {
	now := time.Now()
	src := &blockingDeleteSource{
		started: make(chan struct{}),
		release: make(chan error),
	}
	src.items = []*domain.Category{category("x", "X", now), category("y", "Y", now)}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Remove(context.Background(), "x") }()
	<-src.started

	// another request refreshes while the delete is pending
	require.NoError(t, s.Refresh(context.Background()))

	src.release <- errors.New("permission denied")
	require.Error(t, <-done)
	assert.Equal(t, []string{"x", "y"}, ids[domain.Category](s.Snapshot()))
}

func TestRemoveUnknownStillDeletesRemotely(t *testing.T) {
	src := &fakeSource[domain.Category]{deleteErr: errors.New("boom")}
	s := New[domain.Category]("categories", src, 5)
	require.NoError(t, s.Refresh(context.Background()))

	err := s.Remove(context.Background(), "ghost")
	assert.Error(t, err)
	assert.Equal(t, []string{"ghost"}, src.deleted)
	assert.Zero(t, s.Len())
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, NameAsc, ParseSortKey("name-asc"))
	assert.Equal(t, DateAsc, ParseSortKey("date-asc"))
	assert.Equal(t, DateDesc, ParseSortKey(""))
	assert.Equal(t, DateDesc, ParseSortKey("rating"))
	assert.Equal(t, "Name Z-A", NameDesc.Label())
}
