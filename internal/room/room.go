package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/quizzz-live/backend/internal/engine"
	"github.com/quizzz-live/backend/internal/quiz"
)

type Msg interface{ isRoomMsg() }

// Subscribe registers a connection's outbox with the broadcast group.
// The current snapshot is pushed immediately so a late subscriber is
// consistent without waiting for the next mutation. Reply, when set,
// also receives that snapshot for the subscriber's acknowledgement.
type Subscribe struct {
	ClientID string
	Outbox   chan Update
	Reply    chan quiz.Snapshot
}

func (Subscribe) isRoomMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isRoomMsg() {}

// HostCommand carries one of the host's lifecycle commands. Commands
// that violate a state-machine precondition are dropped without a
// broadcast.
type HostCommand struct {
	Kind HostCmd
}

func (HostCommand) isRoomMsg() {}

type HostCmd string

const (
	CmdStart HostCmd = "start"
	CmdNext  HostCmd = "next"
	CmdPrev  HostCmd = "prev"
	CmdEnd   HostCmd = "end"
)

// Join registers a brand-new participant and subscribes their
// connection.
type Join struct {
	ClientID string
	Name     string
	Outbox   chan Update
	Reply    chan JoinResult
}

func (Join) isRoomMsg() {}

type JoinResult struct {
	Participant quiz.Participant
	Err         error
}

// Rejoin rebinds a returning participant's connection and re-subscribes
// it. Nothing changes for anyone else, so no broadcast is triggered.
type Rejoin struct {
	ClientID      string
	ParticipantID string
	Outbox        chan Update
	Reply         chan RejoinResult
}

func (Rejoin) isRoomMsg() {}

type RejoinResult struct {
	Snapshot quiz.Snapshot
	Err      error
}

type Answer struct {
	ParticipantID string
	QuestionID    string
	OptionIndex   int
}

func (Answer) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// Update is one broadcast delivery: a full snapshot plus a version
// counter so clients can discard reordered deliveries.
type Update struct {
	Version int
	State   quiz.Snapshot
}

// View reflects internal state for tests without data races.
type View struct {
	Version    int
	NumClients int
	State      quiz.Snapshot
}

// Room serializes every command against one quiz through a single loop,
// so concurrent host and participant commands never interleave their
// read-modify-write. Cross-quiz commands run in parallel in other
// rooms.
type Room struct {
	quizID  string
	eng     *engine.Engine
	inbox   chan Msg
	clients map[string]chan Update
	version int
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, quizID string, eng *engine.Engine, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		quizID:  quizID,
		eng:     eng,
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Update),
		log:     log.With(zap.String("quiz_id", quizID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

// Inbox is where the gateway (and tests) send room messages.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Subscribe:
				r.subscribe(msg.ClientID, msg.Outbox, msg.Reply)

			case Unsubscribe:
				delete(r.clients, msg.ClientID)

			case HostCommand:
				if r.applyHost(msg.Kind) {
					r.broadcast()
				}

			case Join:
				p, err := r.eng.Join(r.quizID, msg.ClientID, msg.Name)
				if err != nil {
					msg.Reply <- JoinResult{Err: err}
					break
				}
				r.clients[msg.ClientID] = msg.Outbox
				msg.Reply <- JoinResult{Participant: p}
				r.broadcast()

			case Rejoin:
				err := r.eng.Rejoin(r.quizID, msg.ParticipantID, msg.ClientID)
				if err != nil {
					msg.Reply <- RejoinResult{Err: err}
					break
				}
				r.clients[msg.ClientID] = msg.Outbox
				snap, _ := r.eng.Snapshot(r.quizID)
				msg.Reply <- RejoinResult{Snapshot: snap}

			case Answer:
				if r.eng.SubmitAnswer(r.quizID, msg.ParticipantID, msg.QuestionID, msg.OptionIndex) {
					r.broadcast()
				}

			case GetState:
				snap, _ := r.eng.Snapshot(r.quizID)
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					State:      snap,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) subscribe(clientID string, outbox chan Update, reply chan quiz.Snapshot) {
	snap, err := r.eng.Snapshot(r.quizID)
	if err != nil {
		// Rooms only exist for quizzes in the store; reply anyway so
		// the subscriber never blocks.
		r.log.Warn("subscribe on missing quiz", zap.Error(err))
		if reply != nil {
			reply <- quiz.Snapshot{}
		}
		return
	}
	r.clients[clientID] = outbox
	outbox <- Update{Version: r.version, State: snap}
	if reply != nil {
		reply <- snap
	}
}

func (r *Room) applyHost(kind HostCmd) bool {
	switch kind {
	case CmdStart:
		return r.eng.StartQuiz(r.quizID)
	case CmdNext:
		return r.eng.AdvanceQuestion(r.quizID, engine.Next)
	case CmdPrev:
		return r.eng.AdvanceQuestion(r.quizID, engine.Prev)
	case CmdEnd:
		return r.eng.EndQuiz(r.quizID)
	default:
		return false
	}
}

func (r *Room) broadcast() {
	snap, err := r.eng.Snapshot(r.quizID)
	if err != nil {
		return
	}
	r.version++
	update := Update{Version: r.version, State: snap}

	for id, ch := range r.clients {
		select {
		case ch <- update:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(r.clients, id)
			r.log.Debug("dropped slow client", zap.String("client_id", id))
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch) // Tell client no more snapshots
		delete(r.clients, id)
	}
	r.cancel()
}
