package session

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

// MemoryStore is a process-local Store. It backs development runs without
// Redis and tests; sessions do not survive restarts.
type MemoryStore struct {
	mu       sync.Mutex
	lifetime time.Duration
	now      func() time.Time
	sessions map[string]Session
}

// NewMemoryStore constructs an in-memory session store.
func NewMemoryStore(lifetime time.Duration) *MemoryStore {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &MemoryStore{lifetime: lifetime, now: time.Now, sessions: make(map[string]Session)}
}

func (s *MemoryStore) Create(_ context.Context, userID, role string) (*Session, error) {
	now := s.now().UTC()
	sess := Session{ID: ksuid.New().String(), UserID: userID, Role: role, CreatedAt: now, ExpiresAt: now.Add(s.lifetime)}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return &sess, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DestroyAllForUser(_ context.Context, userID, keepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID && id != keepID {
			delete(s.sessions, id)
		}
	}
	return nil
}
