package memory

import (
	"sync"

	"flux-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.ArenaSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.ArenaSession),
	}
}

func (s *SessionStore) GetOrCreate(quizID, masterID string) *app.ArenaSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[quizID]; ok {
		return session
	}
	session := app.NewArenaSession(quizID, masterID)
	s.sessions[quizID] = session
	return session
}

func (s *SessionStore) Get(quizID string) (*app.ArenaSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[quizID]
	return session, ok
}

func (s *SessionStore) Delete(quizID string) {
	s.mu.Lock()
	delete(s.sessions, quizID)
	s.mu.Unlock()
}

func (s *SessionStore) DeleteIfEmpty(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[quizID]
	if !ok {
		return
	}
	if session.IsEmpty() {
		delete(s.sessions, quizID)
	}
}
