// Package session stores signed-in admin sessions keyed by token hash.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, revoked or expired sessions.
var ErrNotFound = errors.New("session not found or expired")

// Data is what a session token resolves to.
type Data struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Save(ctx context.Context, tokenHash string, d Data, ttl time.Duration) error
	Lookup(ctx context.Context, tokenHash string) (Data, error)
	Revoke(ctx context.Context, tokenHash string) error
}
