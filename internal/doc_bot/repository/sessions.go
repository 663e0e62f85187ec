package repository

import (
	"sync"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/models"
)

// Sessions is the in-memory store of in-flight dialogue sessions keyed by
// chat ID. It is intentionally not persisted: a restart silently resets every
// dialogue to idle.
type Sessions struct {
	buffer map[int64]*models.Session
	mu     *sync.RWMutex
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{
		buffer: make(map[int64]*models.Session),
		mu:     &sync.RWMutex{},
	}
}

// Get returns the session of the chat, if one is active.
func (s *Sessions) Get(chatID int64) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.buffer[chatID]
	return session, ok
}

// Set stores or replaces the session of its chat.
func (s *Sessions) Set(session *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer[session.ChatID] = session
}

// Delete removes the session of the chat. Deleting an absent session is a no-op.
func (s *Sessions) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buffer, chatID)
}
