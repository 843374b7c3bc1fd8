// Package memory holds per-session conversational state. One Store backs
// both the conversation-store and session-registry contracts; the service
// layer consumes it through separate interfaces.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/sattva-labs/sattva/internal/domain"
)

// DefaultMaxHistory bounds a session's history when no explicit limit is
// configured. Twenty turns is ten user/assistant exchanges.
const DefaultMaxHistory = 20

type session struct {
	mu         sync.Mutex
	turns      []domain.ConversationTurn
	lastActive time.Time
}

// Store is an in-memory session store. The outer lock guards the session
// map only; each session carries its own mutex so sessions never contend
// with each other.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	maxHistory int

	now func() time.Time
}

// NewStore creates a Store bounding every session's history to maxHistory
// turns. A non-positive limit falls back to DefaultMaxHistory.
func NewStore(maxHistory int) *Store {
	return NewStoreWithClock(maxHistory, func() time.Time { return time.Now().UTC() })
}

// NewStoreWithClock is NewStore with an injectable clock. The clock
// stamps session activity, which the idle-session reaper reads.
func NewStoreWithClock(maxHistory int, now func() time.Time) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		sessions:   make(map[string]*session),
		maxHistory: maxHistory,
		now:        now,
	}
}

// session returns the state for id, creating it if absent.
func (s *Store) getOrCreate(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess = &session{lastActive: s.now()}
	s.sessions[id] = sess
	return sess
}

// Append adds one turn to the session's history, creating the session if
// it does not exist. Oldest turns are evicted first once the history
// exceeds the configured bound.
func (s *Store) Append(id string, turn domain.ConversationTurn) {
	sess := s.getOrCreate(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = append(sess.turns, turn)
	if excess := len(sess.turns) - s.maxHistory; excess > 0 {
		sess.turns = append([]domain.ConversationTurn(nil), sess.turns[excess:]...)
	}
	sess.lastActive = s.now()
}

// History returns a copy of the session's turns, oldest first. Unknown
// sessions yield an empty slice, never an error.
func (s *Store) History(id string) []domain.ConversationTurn {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return []domain.ConversationTurn{}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]domain.ConversationTurn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Clear empties the session's history but keeps the session registered,
// so "no messages yet" stays distinguishable from "never existed".
func (s *Store) Clear(id string) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = nil
	sess.lastActive = s.now()
}

// Ensure registers a session id if unseen. Idempotent.
func (s *Store) Ensure(id string) {
	s.getOrCreate(id)
}

// Touch refreshes the session's last-active timestamp.
func (s *Store) Touch(id string) {
	sess := s.getOrCreate(id)
	sess.mu.Lock()
	sess.lastActive = s.now()
	sess.mu.Unlock()
}

// List enumerates all registered sessions, ordered by id for stable
// output.
func (s *Store) List() []domain.SessionInfo {
	s.mu.RLock()
	snapshot := make(map[string]*session, len(s.sessions))
	for id, sess := range s.sessions {
		snapshot[id] = sess
	}
	s.mu.RUnlock()

	infos := make([]domain.SessionInfo, 0, len(snapshot))
	for id, sess := range snapshot {
		sess.mu.Lock()
		infos = append(infos, domain.SessionInfo{
			ID:         id,
			TurnCount:  len(sess.turns),
			LastActive: sess.lastActive,
		})
		sess.mu.Unlock()
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Delete removes the session and its history. Deleting an unknown
// session is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Exists reports whether the session id is registered.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// UpdateSession runs fn inside the session's exclusive section. fn gets a
// copy of the current history; the turns it returns are appended, with
// eviction, before the section is released, so a whole read, compose,
// generate, append chat turn is atomic per session. A non-nil error from
// fn is returned as-is and nothing is appended.
//
// The section is bound to the session object, not the id: if the session
// is deleted while fn runs, its appends die with it, and a session
// recreated under the same id is never touched. Different sessions never
// contend.
func (s *Store) UpdateSession(id string, fn func(history []domain.ConversationTurn) ([]domain.ConversationTurn, error)) error {
	sess := s.getOrCreate(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	history := make([]domain.ConversationTurn, len(sess.turns))
	copy(history, sess.turns)

	turns, err := fn(history)
	if err != nil {
		return err
	}

	for _, turn := range turns {
		sess.turns = append(sess.turns, turn)
		if excess := len(sess.turns) - s.maxHistory; excess > 0 {
			sess.turns = append([]domain.ConversationTurn(nil), sess.turns[excess:]...)
		}
	}
	if len(turns) > 0 {
		sess.lastActive = s.now()
	}
	return nil
}
