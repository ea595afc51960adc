package service

import (
	"sync"

	"github.com/fieldline/fieldline/pkg/annotate"
)

// SessionManager keeps one decoration set per open document editing session.
// Sessions are created lazily and live until the document is deleted.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*annotate.DecorationSet
}

var (
	globalSessions *SessionManager
	sessionsOnce   sync.Once
)

// GetSessionManager returns the global session manager
func GetSessionManager() *SessionManager {
	sessionsOnce.Do(func() {
		globalSessions = &SessionManager{
			sessions: make(map[string]*annotate.DecorationSet),
		}
	})
	return globalSessions
}

// Session returns the decoration set for a document, creating it on first use
func (m *SessionManager) Session(documentID string) *annotate.DecorationSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sessions[documentID]
	if !ok {
		set = annotate.NewDecorationSet(nil)
		m.sessions[documentID] = set
	}
	return set
}

// Drop removes a document's session (document delete cascade)
func (m *SessionManager) Drop(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, documentID)
}
