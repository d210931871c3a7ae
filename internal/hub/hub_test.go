package hub

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quizzz-live/backend/internal/engine"
	"github.com/quizzz-live/backend/internal/quiz"
	"github.com/quizzz-live/backend/internal/room"
	"github.com/quizzz-live/backend/internal/store"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	st := store.New()
	eng := engine.New(st, engine.DefaultAnswerWindow)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return New(ctx, eng, zap.NewNop())
}

func createQuiz(t *testing.T, h *Hub) CreateResult {
	t.Helper()
	reply := make(chan CreateResult, 1)
	h.Inbox() <- CreateQuiz{
		Title:     "Demo",
		Questions: []quiz.Question{{ID: "q1", Text: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1}},
		Reply:     reply,
	}
	select {
	case res := <-reply:
		return res
	case <-time.After(time.Second):
		t.Fatalf("timed out creating quiz")
		return CreateResult{} // unreachable
	}
}

func TestHub_CreateThenGet_SameRoom(t *testing.T) {
	h := newTestHub(t)

	created := createQuiz(t, h)
	if created.QuizID == "" || len(created.Code) != 6 || created.Room == nil {
		t.Fatalf("unexpected create result: %+v", created)
	}

	reply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{QuizID: created.QuizID, Reply: reply}
	if got := <-reply; got != created.Room {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_GetRoom_UnknownIsNil(t *testing.T) {
	h := newTestHub(t)

	reply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{QuizID: "missing", Reply: reply}
	if got := <-reply; got != nil {
		t.Fatalf("expected nil room, got %+v", got)
	}
}

func TestHub_LookupCode(t *testing.T) {
	h := newTestHub(t)
	created := createQuiz(t, h)

	reply := make(chan LookupResult, 1)
	h.Inbox() <- LookupCode{Code: created.Code, Reply: reply}
	res := <-reply
	if res.Err != nil || res.QuizID != created.QuizID || res.Room != created.Room {
		t.Fatalf("unexpected lookup result: %+v", res)
	}

	h.Inbox() <- LookupCode{Code: "NOPE42", Reply: reply}
	if res := <-reply; res.Err == nil {
		t.Fatalf("expected lookup failure for unknown code")
	}
}

func TestHub_LookupCode_SkipsFinishedQuiz(t *testing.T) {
	h := newTestHub(t)
	created := createQuiz(t, h)

	created.Room.Inbox() <- room.HostCommand{Kind: room.CmdEnd}

	// The end command is applied by the room loop; poll until visible.
	deadline := time.After(time.Second)
	for {
		reply := make(chan LookupResult, 1)
		h.Inbox() <- LookupCode{Code: created.Code, Reply: reply}
		res := <-reply
		if res.Err != nil {
			return // finished quiz no longer joinable
		}
		select {
		case <-deadline:
			t.Fatalf("finished quiz still resolvable by code")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
