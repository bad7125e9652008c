// Package kvstore is the guest-facing key-value capability: a
// namespaced (bucket), per-key-TTL store the extension host links
// into the guest import table alongside the outbound-HTTP capability,
// supplementing the original's second guest import
// (`nero:keyvalue-ttl/store`). It reuses internal/cache rather than a
// second hand-rolled map+mutex, giving that component a guest-facing
// call site in addition to the media proxy's.
package kvstore

import (
	"sync"
	"time"

	"nero/internal/cache"
)

// Store is a collection of independent buckets, each a TTL-bounded
// cache of byte-slice values. Buckets are created lazily on first use.
type Store struct {
	defaultTTL time.Duration
	capacity   int

	mu      sync.Mutex
	buckets map[string]*cache.Cache[[]byte]
}

// New builds a Store. defaultTTL/capacity size every bucket's
// underlying cache; a Set call can still override the TTL per key.
func New(defaultTTL time.Duration, capacity int) *Store {
	return &Store{
		defaultTTL: defaultTTL,
		capacity:   capacity,
		buckets:    make(map[string]*cache.Cache[[]byte]),
	}
}

// Get returns the value stored under key in bucket, if present and
// unexpired.
func (s *Store) Get(bucket, key string) ([]byte, bool) {
	b := s.bucket(bucket)
	return b.Get(key)
}

// Set stores value under key in bucket. ttl <= 0 uses the store's
// default TTL; a positive ttl overrides it for this entry only.
func (s *Store) Set(bucket, key string, value []byte, ttl time.Duration) {
	b := s.bucket(bucket)
	if ttl <= 0 {
		b.Insert(key, value)
		return
	}
	b.InsertTTL(key, value, ttl)
}

// Delete removes key from bucket, reporting whether it was present.
func (s *Store) Delete(bucket, key string) bool {
	_, ok := s.bucket(bucket).Remove(key)
	return ok
}

func (s *Store) bucket(name string) *cache.Cache[[]byte] {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[name]
	if !ok {
		b = cache.New[[]byte](s.defaultTTL, s.capacity)
		s.buckets[name] = b
	}
	return b
}
