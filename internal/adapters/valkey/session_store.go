package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/ports"
)

// ErrMiss is returned by Cache.Get for a missing key.
var ErrMiss = errors.New("cache miss")

const sessionKeyPrefix = "qgrid:session:"

// SessionStore implements ports.SessionStore as JSON snapshots in a cache.
type SessionStore struct {
	cache ports.CacheService
	ttl   time.Duration
}

// NewSessionStore creates a SessionStore. Snapshots expire after ttl of inactivity.
func NewSessionStore(cache ports.CacheService, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: cache, ttl: ttl}
}

// Save writes the snapshot and refreshes its expiry.
func (s *SessionStore) Save(ctx context.Context, snap *domain.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.cache.Set(ctx, sessionKeyPrefix+snap.ID, data, int(s.ttl/time.Second))
}

// Load reads a snapshot. Missing keys map to domain.ErrSessionNotFound.
func (s *SessionStore) Load(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	data, err := s.cache.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &snap, nil
}

// Delete removes a snapshot.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+id)
}
