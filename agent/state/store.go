package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

const (
	defaultStoreKeyPrefix  = "trip:session:"
	defaultStoreTTL        = 30 * time.Minute
	defaultCleanupInterval = 5 * time.Minute
)

// Store is the persistence contract used by the orchestrator.
type Store interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

// WithKeyPrefix namespaces the cache keys. A blank prefix keeps the default.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *MemoryStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

// WithTTL sets how long an idle conversation is kept. 0 keeps it forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

func WithCleanupInterval(interval time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.cleanupInterval = interval
	}
}

// MemoryStore keeps SessionState in process memory. Values are deep-copied on
// Load and Save so no two callers ever share a TripContext.
type MemoryStore struct {
	cache           *cache.Cache
	keyPrefix       string
	ttl             time.Duration
	cleanupInterval time.Duration
}

func NewMemoryStore(opts ...StoreOption) (*MemoryStore, error) {
	store := &MemoryStore{
		keyPrefix:       defaultStoreKeyPrefix,
		ttl:             defaultStoreTTL,
		cleanupInterval: defaultCleanupInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	if store.cleanupInterval < 0 {
		return nil, errors.New("cleanup interval must be >= 0")
	}

	expiration := store.ttl
	if expiration == 0 {
		expiration = cache.NoExpiration
	}
	store.cache = cache.New(expiration, store.cleanupInterval)
	return store, nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := s.cacheKey(sessionID)
	if err != nil {
		return nil, err
	}

	v, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrStateNotFound
	}
	st, ok := v.(*SessionState)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value %T for %s", v, key)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session state loaded from store: %w", err)
	}
	return st.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, st *SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	} else {
		st.UpdatedAt = st.UpdatedAt.UTC()
	}

	key, err := s.cacheKey(st.SessionID)
	if err != nil {
		return err
	}
	s.cache.Set(key, st.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.cacheKey(sessionID)
	if err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}

// Len reports the number of live conversations.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

func (s *MemoryStore) cacheKey(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return s.keyPrefix + sessionID, nil
}
