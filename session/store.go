package session

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kavehmz/agentic-office-manager/errors"
)

// ErrNotFound is returned by Get for a conversation that was never created.
var ErrNotFound = errors.Sentinel("session: conversation not found")

// Store maps conversation identifiers to sessions. It is bounded: the least
// recently used conversation is evicted once the cap is reached, so a
// long-running process does not accumulate transcripts forever.
type Store struct {
	mu           sync.Mutex
	cache        *lru.Cache[string, *Session]
	systemPrompt string
}

// NewStore creates a store holding at most maxConversations sessions.
// New sessions are seeded with the given system prompt.
func NewStore(maxConversations int, systemPrompt string) (*Store, error) {
	if maxConversations <= 0 {
		maxConversations = 512
	}
	cache, err := lru.New[string, *Session](maxConversations)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create session cache")
	}
	return &Store{cache: cache, systemPrompt: systemPrompt}, nil
}

// GetOrCreate returns the session for id, creating it on first contact.
// Safe under concurrent first contact from different callers.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.cache.Get(id); ok {
		return s
	}
	s := New(id, st.systemPrompt)
	st.cache.Add(id, s)
	return s
}

// Get returns the session for id, or ErrNotFound if it was never created
// (or has been evicted). Used by frontends resolving approval decisions,
// which must reference an existing conversation.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.cache.Get(id); ok {
		return s, nil
	}
	return nil, errors.Wrapf(ErrNotFound, "conversation '%s'", id)
}

// Contains reports whether a session exists without updating recency.
func (st *Store) Contains(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cache.Contains(id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cache.Len()
}
