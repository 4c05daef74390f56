package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process. They are lost on restart.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(defaultTTL, 10*time.Minute)}
}

func (s *MemoryStore) Save(_ context.Context, tokenHash string, d Data, ttl time.Duration) error {
	s.cache.Set(tokenHash, d, ttl)
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, tokenHash string) (Data, error) {
	v, ok := s.cache.Get(tokenHash)
	if !ok {
		return Data{}, ErrNotFound
	}
	return v.(Data), nil
}

func (s *MemoryStore) Revoke(_ context.Context, tokenHash string) error {
	s.cache.Delete(tokenHash)
	return nil
}
