package server

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bradyops/brady/pkg/agent"
)

// sessionEntry serializes turns on one session; agent sessions are not safe
// for concurrent use.
type sessionEntry struct {
	mu      sync.Mutex
	session agent.Session
}

// sessionStore keeps the most recently used sessions. Evicted sessions are
// forgotten: a client presenting an evicted id gets a new session.
type sessionStore struct {
	model agent.Model
	cache *lru.Cache[string, *sessionEntry]
}

func newSessionStore(model agent.Model, size int) (*sessionStore, error) {
	cache, err := lru.New[string, *sessionEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	return &sessionStore{model: model, cache: cache}, nil
}

// acquire returns the entry for id, opening a new session when id is empty
// or unknown. The returned entry is locked; the caller must unlock it.
func (s *sessionStore) acquire(ctx context.Context, id string) (*sessionEntry, error) {
	if id != "" {
		if entry, ok := s.cache.Get(id); ok {
			entry.mu.Lock()
			return entry, nil
		}
	}

	session, err := s.model.NewSession(ctx)
	if err != nil {
		return nil, err
	}

	entry := &sessionEntry{session: session}
	entry.mu.Lock()
	s.cache.Add(session.ID(), entry)
	return entry, nil
}

func (s *sessionStore) len() int {
	return s.cache.Len()
}
