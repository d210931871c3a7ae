package store

import (
	"sort"
	"sync"

	"github.com/quizzz-live/backend/internal/quiz"
)

// Store is the process-memory home of every quiz and its participant
// set. The mutex only protects map structure and field access; the
// read-modify-write atomicity of a whole engine operation comes from the
// per-quiz room loop above it. Entries live for the process lifetime.
type Store struct {
	mu           sync.RWMutex
	quizzes      map[string]*quiz.Quiz
	participants map[string]map[string]*quiz.Participant
}

func New() *Store {
	return &Store{
		quizzes:      make(map[string]*quiz.Quiz),
		participants: make(map[string]map[string]*quiz.Participant),
	}
}

// PutQuiz registers a quiz with an empty participant set.
func (s *Store) PutQuiz(q *quiz.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = q
	s.participants[q.ID] = make(map[string]*quiz.Participant)
}

// GetQuiz returns a deep copy of the quiz.
func (s *Store) GetQuiz(id string) (quiz.Quiz, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return quiz.Quiz{}, false
	}
	return q.Clone(), true
}

// UpdateQuiz runs fn on the quiz under the write lock. Returns false if
// the quiz is unknown.
func (s *Store) UpdateQuiz(id string, fn func(*quiz.Quiz)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return false
	}
	fn(q)
	return true
}

// FindByCode returns a deep copy of the quiz with the given join code,
// regardless of status.
func (s *Store) FindByCode(code string) (quiz.Quiz, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.Code == code {
			return q.Clone(), true
		}
	}
	return quiz.Quiz{}, false
}

// CodeInUse reports whether any quiz already owns the code.
func (s *Store) CodeInUse(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.Code == code {
			return true
		}
	}
	return false
}

// AddParticipant registers a participant, assigning its arrival
// sequence. Returns false if the quiz is unknown.
func (s *Store) AddParticipant(quizID string, p *quiz.Participant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.participants[quizID]
	if !ok {
		return false
	}
	// Participants are never removed, so the map size is a monotonic
	// arrival counter.
	p.JoinSeq = len(m)
	m[p.ID] = p
	return true
}

// GetParticipant returns a deep copy of one participant.
func (s *Store) GetParticipant(quizID, participantID string) (quiz.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[quizID][participantID]
	if !ok {
		return quiz.Participant{}, false
	}
	return p.Clone(), true
}

// UpdateParticipant runs fn on the participant under the write lock.
func (s *Store) UpdateParticipant(quizID, participantID string, fn func(*quiz.Participant)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[quizID][participantID]
	if !ok {
		return false
	}
	fn(p)
	return true
}

// Snapshot assembles the broadcast payload: a deep copy of the quiz plus
// its participants in arrival order.
func (s *Store) Snapshot(quizID string) (quiz.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return quiz.Snapshot{}, false
	}

	list := make([]quiz.Participant, 0, len(s.participants[quizID]))
	for _, p := range s.participants[quizID] {
		list = append(list, p.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].JoinSeq < list[j].JoinSeq })

	return quiz.Snapshot{Quiz: q.Clone(), Participants: list}, true
}
