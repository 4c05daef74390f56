package auth

import (
	"context"
	"sync"
)

type State int

const (
	Initializing State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "initializing"
	}
}

// Resolver looks up the principal behind a session token.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Principal, error)
}

// Gate decides whether one request may see a protected screen. It leaves
// Initializing at most once; a resolver failure keeps it there.
type Gate struct {
	mu        sync.Mutex
	state     State
	principal *Principal
	err       error
}

func NewGate() *Gate {
	return &Gate{}
}

// Check resolves token unless the gate has already settled, and returns the
// resulting state.
func (g *Gate) Check(ctx context.Context, r Resolver, token string) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Initializing {
		return g.state
	}

	p, err := r.Resolve(ctx, token)
	switch {
	case err != nil:
		g.err = err
	case p == nil:
		g.state = Unauthenticated
	default:
		g.principal = p
		g.state = Authenticated
	}
	return g.state
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gate) Principal() *Principal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.principal
}

// Err is the last resolver failure seen while Initializing.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by the session middleware, or
// nil on public routes.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
