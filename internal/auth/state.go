package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// StateStore holds OAuth CSRF state tokens with a bounded lifetime.
// Entries expire automatically, so an abandoned login attempt never
// leaks memory and a replayed state is rejected after Consume.
type StateStore struct {
	cache *ttlcache.Cache[string, struct{}]
}

// NewStateStore creates a store whose entries expire after ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go cache.Start()
	return &StateStore{cache: cache}
}

// Issue mints a fresh single-use state token.
func (s *StateStore) Issue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(buf)
	s.cache.Set(state, struct{}{}, ttlcache.DefaultTTL)
	return state, nil
}

// Consume validates and invalidates a state token. It returns false for
// unknown, expired, or already-consumed tokens.
func (s *StateStore) Consume(state string) bool {
	if s.cache.Get(state) == nil {
		return false
	}
	s.cache.Delete(state)
	return true
}

// Stop halts the expiration goroutine.
func (s *StateStore) Stop() {
	s.cache.Stop()
}
