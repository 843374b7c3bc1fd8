package service

import (
	"github.com/google/uuid"

	"github.com/sattva-labs/sattva/internal/domain"
)

// SessionStore is the registry-facing view of session state. All
// operations are in-process and fast; none block.
type SessionStore interface {
	Ensure(id string)
	History(id string) []domain.ConversationTurn
	Clear(id string)
	Delete(id string)
	List() []domain.SessionInfo
}

// SessionManager exposes session introspection to the routing layer and
// the list/delete seam the TTL reaper builds on.
type SessionManager struct {
	store SessionStore
	newID func() string
}

// NewSessionManager creates a SessionManager instance.
func NewSessionManager(store SessionStore) *SessionManager {
	return &SessionManager{store: store, newID: uuid.NewString}
}

// Create registers a fresh session and returns its generated id.
func (m *SessionManager) Create() string {
	id := m.newID()
	m.store.Ensure(id)
	return id
}

// List enumerates all known sessions.
func (m *SessionManager) List() []domain.SessionInfo {
	return m.store.List()
}

// History returns the session's bounded history, oldest first. Unknown
// sessions yield an empty history, not an error.
func (m *SessionManager) History(id string) []domain.ConversationTurn {
	return m.store.History(id)
}

// Clear empties the session's history without unregistering it.
func (m *SessionManager) Clear(id string) {
	m.store.Clear(id)
}

// Delete removes the session entirely. Unknown ids are a no-op.
func (m *SessionManager) Delete(id string) {
	m.store.Delete(id)
}
