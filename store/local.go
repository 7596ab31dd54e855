package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache"
)

// LocalStore is an in-process KVStore used when REDIS_URL is not set.
// Identity state kept here is not shared across engine instances, which is
// fine for single-node deployments and local development.
type LocalStore struct {
	mu sync.Mutex
	c  cache.Cache
}

// NewLocalStore creates an in-process store with the given default TTL
func NewLocalStore(defaultTTL time.Duration) (*LocalStore, error) {
	c, err := cache.NewCache(cache.TTL(defaultTTL))
	if err != nil {
		return nil, err
	}
	return &LocalStore{c: c}, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (s *LocalStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Set(key, value, ttl)
	return nil
}

func (s *LocalStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if v, ok := s.c.Get(key); ok {
		parsed, err := strconv.ParseInt(v.(string), 10, 64)
		if err == nil {
			n = parsed
		}
	}
	n++
	s.c.Set(key, strconv.FormatInt(n, 10), ttl)
	return n, nil
}

func (s *LocalStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.c.Invalidate(key)
	}
	return nil
}
