// Package history keeps the process-local, bounded, per-session
// conversation log that the escalation evaluator and personalizer read.
package history

import (
	"sync"
	"time"

	"github.com/soyeahso/deskflow/internal/domain"
)

// DefaultMaxSize bounds a session's history when no size is configured.
const DefaultMaxSize = 20

// session holds one session's turns. Each session carries its own lock
// so turns for different sessions never contend with each other.
type session struct {
	mu         sync.Mutex
	turns      []domain.ConversationTurn
	lastActive time.Time
}

// Store is an in-memory conversation history keyed by session ID.
// Sessions are created lazily on first append and evicted oldest-first
// (FIFO) once they exceed the configured size.
type Store struct {
	maxSize int

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewStore creates a history store. maxSize <= 0 selects DefaultMaxSize.
func NewStore(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{
		maxSize:  maxSize,
		sessions: make(map[string]*session),
	}
}

// get returns the session for id, creating it if absent.
func (s *Store) get(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	sess = &session{lastActive: time.Now()}
	s.sessions[id] = sess
	return sess
}

// Append adds a turn to a session's history, evicting the oldest turn
// when the bound is exceeded.
func (s *Store) Append(sessionID string, turn domain.ConversationTurn) {
	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.append(turn, s.maxSize)
}

// AppendAndWindow appends a turn and returns the trailing n turns of the
// session in one critical section, so concurrent turns for the same
// session cannot interleave between the append and the read.
func (s *Store) AppendAndWindow(sessionID string, turn domain.ConversationTurn, n int) []domain.ConversationTurn {
	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.append(turn, s.maxSize)
	return sess.window(n)
}

// Window returns a copy of the trailing n turns for a session, oldest
// first. A missing session yields nil.
func (s *Store) Window(sessionID string, n int) []domain.ConversationTurn {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.window(n)
}

// Len returns the number of turns currently held for a session.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.turns)
}

// Sessions returns the IDs of all live sessions.
func (s *Store) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// ExpireIdle drops sessions that have not been touched within maxIdle
// and returns how many were removed. The count bound alone never frees
// session keys, so long-lived processes run this on a ticker.
func (s *Store) ExpireIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastActive.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// append adds a turn under the session lock, truncating FIFO.
func (sess *session) append(turn domain.ConversationTurn, maxSize int) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	sess.turns = append(sess.turns, turn)
	if len(sess.turns) > maxSize {
		// Oldest-first eviction; copy so the backing array does not
		// pin evicted turns.
		kept := make([]domain.ConversationTurn, maxSize)
		copy(kept, sess.turns[len(sess.turns)-maxSize:])
		sess.turns = kept
	}
	sess.lastActive = time.Now()
}

// window copies the trailing n turns under the session lock.
func (sess *session) window(n int) []domain.ConversationTurn {
	if n <= 0 || n > len(sess.turns) {
		n = len(sess.turns)
	}
	out := make([]domain.ConversationTurn, n)
	copy(out, sess.turns[len(sess.turns)-n:])
	return out
}
