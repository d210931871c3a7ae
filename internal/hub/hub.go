package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/quizzz-live/backend/internal/engine"
	"github.com/quizzz-live/backend/internal/quiz"
	"github.com/quizzz-live/backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

// CreateQuiz allocates a quiz, its join code, and the room that owns it.
type CreateQuiz struct {
	Title     string
	Questions []quiz.Question
	Reply     chan CreateResult
}

type CreateResult struct {
	QuizID string
	Code   string
	Room   *room.Room
}

// GetRoom resolves a quiz id to its room. Reply may be nil.
type GetRoom struct {
	QuizID string
	Reply  chan *room.Room
}

// LookupCode resolves a join code to a room, skipping finished quizzes.
type LookupCode struct {
	Code  string
	Reply chan LookupResult
}

type LookupResult struct {
	QuizID string
	Room   *room.Room
	Err    error
}

type ShutdownHub struct{}

func (CreateQuiz) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (LookupCode) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub is the session registry: one room per quiz, created here and
// never evicted during the process lifetime. Creation and lookup
// serialize through the hub loop so code-collision checks and room
// allocation can't race.
type Hub struct {
	inbox  chan HubMsg
	eng    *engine.Engine
	rooms  map[string]*room.Room
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, eng *engine.Engine, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		eng:    eng,
		rooms:  make(map[string]*room.Room),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateQuiz:
				quizID, joinCode := h.eng.CreateQuiz(msg.Title, msg.Questions)
				rm := room.New(h.ctx, quizID, h.eng, h.log)
				h.rooms[quizID] = rm
				h.log.Info("quiz created",
					zap.String("quiz_id", quizID),
					zap.String("code", joinCode),
					zap.Int("questions", len(msg.Questions)),
				)
				msg.Reply <- CreateResult{QuizID: quizID, Code: joinCode, Room: rm}

			case GetRoom:
				msg.Reply <- h.rooms[msg.QuizID] // May be nil

			case LookupCode:
				q, err := h.eng.FindJoinable(msg.Code)
				if err != nil {
					msg.Reply <- LookupResult{Err: err}
					break
				}
				msg.Reply <- LookupResult{QuizID: q.ID, Room: h.rooms[q.ID]}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}
