package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizzz-live/backend/internal/engine"
	"github.com/quizzz-live/backend/internal/hub"
	"github.com/quizzz-live/backend/internal/quiz"
	"github.com/quizzz-live/backend/internal/room"
	"github.com/quizzz-live/backend/internal/types"
)

const writeTimeout = 3 * time.Second

// Caller-visible rejection strings; clients display these verbatim.
const (
	errQuizNotFound       = "Quiz not found."
	errQuizGone           = "Quiz not found or already finished."
	errParticipantMissing = "Participant not found."
)

// Handler is the connection gateway: it decodes client commands, routes
// them to the hub and room actors, writes acknowledgements back on the
// same connection, and relays room snapshots through a writer goroutine
// per subscription. Commands that fail a state-machine precondition get
// no reply at all; the next snapshot is the client's answer.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Browser clients are served from another origin in dev.
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			id:      uuid.NewString(),
			conn:    conn,
			connCtx: r.Context(),
			hub:     h,
			log:     log,
		}
		defer c.teardown()

		// Reader loop. All dispatching happens here, so client fields
		// need no locking.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Clean close, going-away, or a broken pipe all end the
				// same way; teardown happens in the defer.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				c.write(r.Context(), types.ServerMessage{Type: types.EventError, Error: "bad json"})
				continue
			}

			c.dispatch(r.Context(), cm)
		}
	}
}

type client struct {
	id      string
	conn    *websocket.Conn
	connCtx context.Context
	hub     *hub.Hub
	log     *zap.Logger

	// room the connection is currently subscribed to, if any, and the
	// cancel func of that subscription's writer goroutine
	current      *room.Room
	cancelWriter context.CancelFunc
}

func (c *client) dispatch(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case types.CmdHostCreateQuiz:
		reply := make(chan hub.CreateResult, 1)
		c.hub.Inbox() <- hub.CreateQuiz{Title: cm.Title, Questions: cm.Questions, Reply: reply}
		res := <-reply

		// The creating connection is subscribed right away, like a host
		// that joined its own quiz.
		c.subscribe(res.Room, nil)
		c.write(ctx, types.ServerMessage{
			Type:   types.EventAck,
			Cmd:    cm.Type,
			QuizID: res.QuizID,
			Code:   res.Code,
		})

	case types.CmdHostJoinQuiz:
		rm := c.getRoom(cm.QuizID)
		if rm == nil {
			c.write(ctx, types.ServerMessage{Type: types.EventAck, Cmd: cm.Type, Error: errQuizNotFound})
			return
		}
		reply := make(chan quiz.Snapshot, 1)
		c.subscribe(rm, reply)
		snap := <-reply
		c.write(ctx, types.ServerMessage{Type: types.EventAck, Cmd: cm.Type, State: &snap})

	case types.CmdHostStartQuiz:
		c.hostCommand(cm.QuizID, room.CmdStart)

	case types.CmdHostNextQuestion:
		c.hostCommand(cm.QuizID, room.CmdNext)

	case types.CmdHostPrevQuestion:
		c.hostCommand(cm.QuizID, room.CmdPrev)

	case types.CmdHostEndQuiz:
		c.hostCommand(cm.QuizID, room.CmdEnd)

	case types.CmdParticipantJoin:
		lookup := make(chan hub.LookupResult, 1)
		c.hub.Inbox() <- hub.LookupCode{Code: cm.Code, Reply: lookup}
		res := <-lookup
		if res.Err != nil || res.Room == nil {
			c.write(ctx, types.ServerMessage{Type: types.EventAck, Cmd: cm.Type, Error: errQuizGone})
			return
		}

		c.leaveCurrent()
		reply := make(chan room.JoinResult, 1)
		res.Room.Inbox() <- room.Join{ClientID: c.id, Name: cm.Name, Outbox: c.newOutbox(), Reply: reply}
		joined := <-reply
		if joined.Err != nil {
			c.write(ctx, types.ServerMessage{Type: types.EventAck, Cmd: cm.Type, Error: errQuizGone})
			return
		}
		c.current = res.Room
		c.write(ctx, types.ServerMessage{
			Type:          types.EventAck,
			Cmd:           cm.Type,
			QuizID:        res.QuizID,
			ParticipantID: joined.Participant.ID,
		})

	case types.CmdParticipantRejoin:
		rm := c.getRoom(cm.QuizID)
		if rm == nil {
			c.write(ctx, types.ServerMessage{Type: types.EventAck, Cmd: cm.Type, Error: errQuizNotFound})
			return
		}

		c.leaveCurrent()
		reply := make(chan room.RejoinResult, 1)
		rm.Inbox() <- room.Rejoin{ClientID: c.id, ParticipantID: cm.ParticipantID, Outbox: c.newOutbox(), Reply: reply}
		res := <-reply
		if res.Err != nil {
			msg := errQuizNotFound
			if errors.Is(res.Err, engine.ErrParticipantNotFound) {
				msg = errParticipantMissing
			}
			c.write(ctx, types.ServerMessage{Type: types.EventAck, Cmd: cm.Type, Error: msg})
			return
		}
		c.current = rm
		c.write(ctx, types.ServerMessage{Type: types.EventAck, Cmd: cm.Type, State: &res.Snapshot})

	case types.CmdParticipantAnswer:
		rm := c.getRoom(cm.QuizID)
		if rm == nil {
			return // silent, like every other policy rejection
		}
		rm.Inbox() <- room.Answer{
			ParticipantID: cm.ParticipantID,
			QuestionID:    cm.QuestionID,
			OptionIndex:   cm.OptionIndex,
		}

	default:
		c.write(ctx, types.ServerMessage{Type: types.EventError, Error: "unknown type"})
	}
}

func (c *client) hostCommand(quizID string, kind room.HostCmd) {
	rm := c.getRoom(quizID)
	if rm == nil {
		return
	}
	rm.Inbox() <- room.HostCommand{Kind: kind}
}

func (c *client) getRoom(quizID string) *room.Room {
	reply := make(chan *room.Room, 1)
	c.hub.Inbox() <- hub.GetRoom{QuizID: quizID, Reply: reply}
	return <-reply
}

// subscribe points the connection at rm, leaving any previous room
// first. A connection follows at most one quiz at a time.
func (c *client) subscribe(rm *room.Room, reply chan quiz.Snapshot) {
	c.leaveCurrent()
	rm.Inbox() <- room.Subscribe{ClientID: c.id, Outbox: c.newOutbox(), Reply: reply}
	c.current = rm
}

// newOutbox allocates the subscription's snapshot channel and starts its
// writer goroutine. A fresh channel per subscription means a channel the
// room closed can never be handed to another room.
func (c *client) newOutbox() chan room.Update {
	out := make(chan room.Update, 8)
	ctx, cancel := context.WithCancel(c.connCtx)
	c.cancelWriter = cancel

	go func() {
		for {
			select {
			case update, ok := <-out:
				if !ok {
					// The room dropped us as too slow, or shut down.
					// Close the connection and let the client rejoin.
					c.conn.Close(websocket.StatusNormalClosure, "room closed")
					return
				}
				c.write(ctx, types.ServerMessage{
					Type:    types.EventQuizState,
					Version: update.Version,
					State:   &update.State,
				})
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (c *client) leaveCurrent() {
	if c.cancelWriter != nil {
		c.cancelWriter()
		c.cancelWriter = nil
	}
	if c.current == nil {
		return
	}
	c.current.Inbox() <- room.Unsubscribe{ClientID: c.id}
	c.current = nil
}

func (c *client) teardown() {
	c.leaveCurrent()
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(wctx, websocket.MessageText, payload); err != nil {
		c.log.Debug("ws write failed", zap.String("client_id", c.id), zap.Error(err))
	}
}
