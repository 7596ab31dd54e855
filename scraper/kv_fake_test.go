package scraper

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

// fakeKV is an in-memory KVStore with a controllable clock, used across the
// cache, fetcher and identity manager tests
type fakeKV struct {
	mu   sync.Mutex
	data map[string]fakeEntry
	now  func() time.Time
	fail bool // when set, every operation errors
}

type fakeEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]fakeEntry{}, now: time.Now}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", false, errors.New("kv unavailable")
	}
	entry, ok := f.data[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && f.now().After(entry.expiresAt) {
		delete(f.data, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("kv unavailable")
	}
	entry := fakeEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = f.now().Add(ttl)
	}
	f.data[key] = entry
	return nil
}

func (f *fakeKV) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("kv unavailable")
	}
	var n int64
	if entry, ok := f.data[key]; ok {
		if entry.expiresAt.IsZero() || f.now().Before(entry.expiresAt) {
			n, _ = strconv.ParseInt(entry.value, 10, 64)
		}
	}
	n++
	entry := fakeEntry{value: strconv.FormatInt(n, 10)}
	if ttl > 0 {
		entry.expiresAt = f.now().Add(ttl)
	}
	f.data[key] = entry
	return n, nil
}

func (f *fakeKV) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("kv unavailable")
	}
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}
