package types

import "github.com/quizzz-live/backend/internal/quiz"

// ClientMessage is every client→server command, discriminated by Type.
// Fields a given command doesn't use stay zero.
type ClientMessage struct {
	Type          string          `json:"type"`
	Title         string          `json:"title,omitempty"`
	Questions     []quiz.Question `json:"questions,omitempty"`
	QuizID        string          `json:"quizId,omitempty"`
	Code          string          `json:"code,omitempty"`
	Name          string          `json:"name,omitempty"`
	ParticipantID string          `json:"participantId,omitempty"`
	QuestionID    string          `json:"questionId,omitempty"`
	OptionIndex   int             `json:"optionIndex"`
}

// Client→server command names.
const (
	CmdHostCreateQuiz    = "host:createQuiz"
	CmdHostJoinQuiz      = "host:joinQuiz"
	CmdHostStartQuiz     = "host:startQuiz"
	CmdHostNextQuestion  = "host:nextQuestion"
	CmdHostPrevQuestion  = "host:prevQuestion"
	CmdHostEndQuiz       = "host:endQuiz"
	CmdParticipantJoin   = "participant:join"
	CmdParticipantRejoin = "participant:rejoin"
	CmdParticipantAnswer = "participant:answer"
)

// ServerMessage is every server→client frame: either the quiz:state
// broadcast or the acknowledgement of a command that carries one.
type ServerMessage struct {
	Type          string         `json:"type"`          // "quiz:state" | "ack" | "error"
	Cmd           string         `json:"cmd,omitempty"` // command being acknowledged
	Version       int            `json:"version,omitempty"`
	QuizID        string         `json:"quizId,omitempty"`
	Code          string         `json:"code,omitempty"`
	ParticipantID string         `json:"participantId,omitempty"`
	State         *quiz.Snapshot `json:"state,omitempty"`
	Error         string         `json:"error,omitempty"`
}

const (
	EventQuizState = "quiz:state"
	EventAck       = "ack"
	EventError     = "error"
)
