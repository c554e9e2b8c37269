package usecases

import (
	"sync"

	"github.com/abelzeko/water-quality-bot/internal/entities"
)

// Session carries the state of one user's interaction: the last reading they
// entered and its assessment. It replaces process-wide "last input" variables.
type Session struct {
	ID             int64
	LastReading    *entities.Reading
	LastAssessment *entities.Assessment
	Evaluations    int
}

// NewSession creates an empty session
func NewSession(id int64) *Session {
	return &Session{ID: id}
}

func (s *Session) remember(a entities.Assessment) {
	reading := a.Reading
	s.LastReading = &reading
	s.LastAssessment = &a
	s.Evaluations++
}

// Sessions hands out one Session per chat
type Sessions struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewSessions creates an empty session registry
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]*Session)}
}

// Get returns the session for id, creating it on first use
func (s *Sessions) Get(id int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = NewSession(id)
		s.sessions[id] = sess
	}
	return sess
}
