package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quizzz-live/backend/internal/code"
	"github.com/quizzz-live/backend/internal/quiz"
	"github.com/quizzz-live/backend/internal/store"
)

var ErrQuizNotFound = errors.New("quiz not found")
var ErrParticipantNotFound = errors.New("participant not found")

type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// Points awarded for a correct answer. Flat: no partial credit, no speed
// bonus.
const PointsPerCorrect = 10

// DefaultAnswerWindow is how long each question accepts answers after
// the host starts it or moves to it.
const DefaultAnswerWindow = 45 * time.Second

const maxNameLength = 32

// Engine applies host and participant commands to the store. It is not
// itself synchronized: every operation touching one quiz must be issued
// from that quiz's room loop. Operations that can't apply return a false
// changed flag rather than an error; errors are reserved for lookup
// failures the caller reports back.
type Engine struct {
	store  *store.Store
	window time.Duration

	now   func() time.Time
	newID func() string
}

func New(st *store.Store, window time.Duration) *Engine {
	if window <= 0 {
		window = DefaultAnswerWindow
	}
	return &Engine{
		store:  st,
		window: window,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// CreateQuiz allocates a quiz in the lobby state and returns its id and
// join code. Question ids are assigned where the host didn't provide
// one. Question content is not validated here; StartQuiz refuses to
// start an empty quiz.
func (e *Engine) CreateQuiz(title string, questions []quiz.Question) (quizID, joinCode string) {
	quizID = e.newID()

	for {
		joinCode = code.Generate()
		if !e.store.CodeInUse(joinCode) {
			break
		}
	}

	qs := make([]quiz.Question, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			q.ID = e.newID()
		}
		qs[i] = q
	}

	e.store.PutQuiz(&quiz.Quiz{
		ID:                   quizID,
		Code:                 joinCode,
		Title:                title,
		Questions:            qs,
		Status:               quiz.StatusLobby,
		CurrentQuestionIndex: quiz.NoQuestion,
	})
	return quizID, joinCode
}

// Quiz returns a copy of the quiz record.
func (e *Engine) Quiz(quizID string) (quiz.Quiz, error) {
	q, ok := e.store.GetQuiz(quizID)
	if !ok {
		return quiz.Quiz{}, ErrQuizNotFound
	}
	return q, nil
}

// FindJoinable resolves a join code to a quiz that is still accepting
// participants (anything not finished).
func (e *Engine) FindJoinable(joinCode string) (quiz.Quiz, error) {
	q, ok := e.store.FindByCode(joinCode)
	if !ok || q.Status == quiz.StatusFinished {
		return quiz.Quiz{}, ErrQuizNotFound
	}
	return q, nil
}

// StartQuiz moves a lobby quiz with at least one question to
// in-progress at question 0 with a fresh answer window. Anything else is
// a no-op.
func (e *Engine) StartQuiz(quizID string) (changed bool) {
	e.store.UpdateQuiz(quizID, func(q *quiz.Quiz) {
		if q.Status != quiz.StatusLobby || len(q.Questions) == 0 {
			return
		}
		q.Status = quiz.StatusInProgress
		q.CurrentQuestionIndex = 0
		q.CurrentQuestionEndsAt = e.deadline()
		changed = true
	})
	return changed
}

// AdvanceQuestion walks the question index by one in either direction,
// bounded by the question list. Every move, including prev, opens a
// fresh answer window: answers are keyed per question id and survive a
// revisit, so re-entering a question only re-opens it for those who
// never answered.
func (e *Engine) AdvanceQuestion(quizID string, dir Direction) (changed bool) {
	e.store.UpdateQuiz(quizID, func(q *quiz.Quiz) {
		if q.Status != quiz.StatusInProgress {
			return
		}
		switch dir {
		case Next:
			if q.CurrentQuestionIndex >= len(q.Questions)-1 {
				return
			}
			q.CurrentQuestionIndex++
		case Prev:
			if q.CurrentQuestionIndex <= 0 {
				return
			}
			q.CurrentQuestionIndex--
		default:
			return
		}
		q.CurrentQuestionEndsAt = e.deadline()
		changed = true
	})
	return changed
}

// EndQuiz finishes the quiz from any status, clearing the deadline. The
// host may cancel straight from the lobby. No transition leaves
// finished; re-ending a finished quiz counts as unchanged.
func (e *Engine) EndQuiz(quizID string) (changed bool) {
	e.store.UpdateQuiz(quizID, func(q *quiz.Quiz) {
		if q.Status == quiz.StatusFinished {
			return
		}
		q.Status = quiz.StatusFinished
		q.CurrentQuestionEndsAt = nil
		changed = true
	})
	return changed
}

// Join registers a new participant on a quiz that hasn't finished. The
// status is re-checked here because code resolution and registration are
// separate steps and the host can end the quiz in between.
func (e *Engine) Join(quizID, clientID, name string) (quiz.Participant, error) {
	q, ok := e.store.GetQuiz(quizID)
	if !ok || q.Status == quiz.StatusFinished {
		return quiz.Participant{}, ErrQuizNotFound
	}

	p := &quiz.Participant{
		ID:       e.newID(),
		ClientID: clientID,
		Name:     trimName(name),
		Answers:  make(map[string]int),
	}
	if !e.store.AddParticipant(quizID, p) {
		return quiz.Participant{}, ErrQuizNotFound
	}
	return p.Clone(), nil
}

// Rejoin rebinds an existing participant to a new connection. Scores
// and answer history are untouched, so nothing is broadcast for it.
func (e *Engine) Rejoin(quizID, participantID, clientID string) error {
	if _, ok := e.store.GetQuiz(quizID); !ok {
		return ErrQuizNotFound
	}
	ok := e.store.UpdateParticipant(quizID, participantID, func(p *quiz.Participant) {
		p.ClientID = clientID
	})
	if !ok {
		return ErrParticipantNotFound
	}
	return nil
}

// SubmitAnswer records a participant's option for the current question
// and awards points if it is correct. Silently a no-op when the quiz
// isn't mid-question, the window has closed, the question id isn't the
// live one, the participant is unknown, or the participant already
// answered this question. The deadline is compared against the clock
// here, at submission time, so an answer racing the host's advance is
// resolved by the question-id and deadline checks rather than by
// arrival order.
func (e *Engine) SubmitAnswer(quizID, participantID, questionID string, optionIndex int) (changed bool) {
	q, ok := e.store.GetQuiz(quizID)
	if !ok || q.Status != quiz.StatusInProgress {
		return false
	}
	if q.CurrentQuestionEndsAt != nil && e.now().UnixMilli() > *q.CurrentQuestionEndsAt {
		return false
	}

	current, ok := q.CurrentQuestion()
	if !ok || current.ID != questionID {
		return false
	}

	e.store.UpdateParticipant(quizID, participantID, func(p *quiz.Participant) {
		if _, answered := p.Answers[questionID]; answered {
			return
		}
		p.Answers[questionID] = optionIndex
		if optionIndex == current.CorrectIndex {
			p.Score += PointsPerCorrect
		}
		changed = true
	})
	return changed
}

// Snapshot assembles the broadcast payload for a quiz.
func (e *Engine) Snapshot(quizID string) (quiz.Snapshot, error) {
	snap, ok := e.store.Snapshot(quizID)
	if !ok {
		return quiz.Snapshot{}, ErrQuizNotFound
	}
	return snap, nil
}

func (e *Engine) deadline() *int64 {
	ends := e.now().Add(e.window).UnixMilli()
	return &ends
}

func trimName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return name
}
