package listsync

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/vbonduro/vlogadmin/internal/auth"
	"github.com/vbonduro/vlogadmin/internal/domain"
)

// Registry hands each session its own synchronizer for one collection.
// Idle entries expire after ttl.
type Registry[T any, PT interface {
	*T
	domain.Document
}] struct {
	name     string
	src      Source[T]
	pageSize int
	cache    *cache.Cache

	// serializes get-or-create in Acquire
	mu sync.Mutex
}

func NewRegistry[T any, PT interface {
	*T
	domain.Document
}](name string, src Source[T], pageSize int, ttl time.Duration) *Registry[T, PT] {
	return &Registry[T, PT]{
		name:     name,
		src:      src,
		pageSize: pageSize,
		cache:    cache.New(ttl, ttl),
	}
}

// Acquire returns the synchronizer for sessionID, creating it on first use,
// and extends its lifetime.
func (r *Registry[T, PT]) Acquire(sessionID string) *Synchronizer[T, PT] {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.cache.Get(sessionID)
	if !ok {
		s = New[T, PT](r.name, r.src, r.pageSize)
	}
	r.cache.SetDefault(sessionID, s)
	return s.(*Synchronizer[T, PT])
}

func (r *Registry[T, PT]) Forget(sessionID string) {
	r.cache.Delete(sessionID)
}

// EventSource is satisfied by *auth.Service.
type EventSource interface {
	Subscribe(fn func(auth.Event)) (unsubscribe func())
}

// ForgetOnSignOut drops a session's synchronizer when it signs out.
func (r *Registry[T, PT]) ForgetOnSignOut(events EventSource) (unsubscribe func()) {
	return events.Subscribe(func(ev auth.Event) {
		if ev.Kind == auth.SignedOut {
			r.Forget(ev.SessionID)
		}
	})
}
