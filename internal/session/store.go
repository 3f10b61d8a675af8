// Package session provides the in-memory conversational session store.
//
// Sessions are ephemeral per-(user, challenge, level) state. The store is
// shared by concurrent request handlers and the background sweeper, so all
// mutation goes through key-scoped locking: the store mutex guards the map,
// each session's own mutex guards its history and timestamp.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/promptlabs/internal/domain"
)

// DefaultMaxTurnPairs bounds retained history to 20 user/model pairs.
const DefaultMaxTurnPairs = 20

// Store manages active challenge sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[domain.SessionKey]*Session
	maxPairs int
	now      func() time.Time
}

// Session holds one conversation's state. All fields are guarded by mu and
// accessed only through methods.
type Session struct {
	key domain.SessionKey
	id  string

	mu          sync.Mutex
	history     []domain.Turn
	lastTouched time.Time
}

// Option configures the store.
type Option func(*Store)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxTurnPairs overrides the history bound.
func WithMaxTurnPairs(pairs int) Option {
	return func(s *Store) {
		if pairs > 0 {
			s.maxPairs = pairs
		}
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[domain.SessionKey]*Session),
		maxPairs: DefaultMaxTurnPairs,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the session for key, creating and registering an empty
// one if none exists. Concurrent calls for the same key observe the same
// session.
func (s *Store) GetOrCreate(key domain.SessionKey) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	sess := &Session{
		key:         key,
		id:          uuid.NewString(),
		lastTouched: s.now(),
	}
	s.sessions[key] = sess
	return sess
}

// Get returns the session for key, or nil.
func (s *Store) Get(key domain.SessionKey) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[key]
}

// Touch refreshes the session's last-activity timestamp using the store
// clock. The timestamp never moves backwards.
func (s *Store) Touch(sess *Session) {
	sess.touch(s.now())
}

// Append appends turns to the session's history and enforces the pair bound:
// when the history exceeds maxPairs user/model pairs, the oldest pairs are
// dropped first.
func (s *Store) Append(sess *Session, turns ...domain.Turn) {
	maxEntries := s.maxPairs * 2

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.history = append(sess.history, turns...)
	if over := len(sess.history) - maxEntries; over > 0 {
		// Trim on pair boundaries so a user turn never survives without
		// its reply slot.
		if over%2 != 0 {
			over++
		}
		sess.history = append(sess.history[:0:0], sess.history[over:]...)
	}
}

// Sweep removes every session whose last activity is older than
// idleThreshold relative to now. Returns the number of evicted sessions.
// The staleness check and the eviction are one critical section under the
// session lock, so a touch that completes before eviction always leaves the
// session alive. No code path takes a session lock before the store lock,
// so the nested locking here cannot deadlock.
func (s *Store) Sweep(now time.Time, idleThreshold time.Duration) int {
	cutoff := now.Add(-idleThreshold)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, sess := range s.sessions {
		sess.mu.Lock()
		if sess.lastTouched.Before(cutoff) {
			delete(s.sessions, key)
			evicted++
		}
		sess.mu.Unlock()
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ID returns the session's public identifier.
func (sess *Session) ID() string {
	return sess.id
}

// Key returns the session key.
func (sess *Session) Key() domain.SessionKey {
	return sess.key
}

// Snapshot returns a copy of the history, safe to read while the session
// keeps changing.
func (sess *Session) Snapshot() []domain.Turn {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]domain.Turn, len(sess.history))
	copy(out, sess.history)
	return out
}

// LastTouched returns the last-activity timestamp.
func (sess *Session) LastTouched() time.Time {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.lastTouched
}

func (sess *Session) touch(t time.Time) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if t.After(sess.lastTouched) {
		sess.lastTouched = t
	}
}
