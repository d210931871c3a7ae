package room

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quizzz-live/backend/internal/engine"
	"github.com/quizzz-live/backend/internal/quiz"
	"github.com/quizzz-live/backend/internal/store"
)

// helper: receive one update with a timeout so tests never hang
func recvUpdate(t *testing.T, ch <-chan Update, within time.Duration) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return u
	case <-time.After(within):
		t.Fatalf("timed out waiting for update")
		return Update{} // unreachable
	}
}

func recvNoUpdate(t *testing.T, ch <-chan Update, within time.Duration) {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			// channel closed → no further updates possible
			return
		}
		t.Fatalf("expected no update within %v, but got: %+v", within, u)
	case <-time.After(within):
		// good: no update
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func newTestRoom(t *testing.T, questions []quiz.Question) (*Room, *engine.Engine, string) {
	t.Helper()
	st := store.New()
	eng := engine.New(st, engine.DefaultAnswerWindow)
	quizID, _ := eng.CreateQuiz("Demo", questions)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return New(ctx, quizID, eng, zap.NewNop()), eng, quizID
}

func demoQuestions() []quiz.Question {
	return []quiz.Question{
		{ID: "q1", Text: "2+2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1},
		{ID: "q2", Text: "3+3?", Options: []string{"5", "6"}, CorrectIndex: 1},
	}
}

func TestRoom_SubscribeDeliversCurrentSnapshot(t *testing.T) {
	r, _, quizID := newTestRoom(t, demoQuestions())

	out := make(chan Update, 2)
	reply := make(chan quiz.Snapshot, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", Outbox: out, Reply: reply}

	first := recvUpdate(t, out, 100*time.Millisecond)
	if first.Version != 0 {
		t.Fatalf("after subscribe: want version=0, got %d", first.Version)
	}
	if first.State.Quiz.ID != quizID || first.State.Quiz.Status != quiz.StatusLobby {
		t.Fatalf("unexpected snapshot: %+v", first.State.Quiz)
	}

	snap := <-reply
	if snap.Quiz.ID != quizID {
		t.Fatalf("reply snapshot mismatch: %+v", snap.Quiz)
	}
}

func TestRoom_StartBroadcasts(t *testing.T) {
	r, _, _ := newTestRoom(t, demoQuestions())

	out := make(chan Update, 4)
	r.Inbox() <- Subscribe{ClientID: "c1", Outbox: out}
	_ = recvUpdate(t, out, 100*time.Millisecond) // drain subscribe snapshot

	r.Inbox() <- HostCommand{Kind: CmdStart}

	next := recvUpdate(t, out, 100*time.Millisecond)
	if next.Version != 1 {
		t.Fatalf("after start: want version=1, got %d", next.Version)
	}
	if next.State.Quiz.Status != quiz.StatusInProgress || next.State.Quiz.CurrentQuestionIndex != 0 {
		t.Fatalf("after start: unexpected state %+v", next.State.Quiz)
	}

	// starting again violates the lobby precondition: no broadcast
	r.Inbox() <- HostCommand{Kind: CmdStart}
	recvNoUpdate(t, out, 100*time.Millisecond)
}

func TestRoom_NextAtLastIndexIsSilent(t *testing.T) {
	r, _, _ := newTestRoom(t, demoQuestions())

	out := make(chan Update, 8)
	r.Inbox() <- Subscribe{ClientID: "c1", Outbox: out}
	_ = recvUpdate(t, out, 100*time.Millisecond)

	r.Inbox() <- HostCommand{Kind: CmdStart}
	_ = recvUpdate(t, out, 100*time.Millisecond)
	r.Inbox() <- HostCommand{Kind: CmdNext}
	last := recvUpdate(t, out, 100*time.Millisecond)
	if last.State.Quiz.CurrentQuestionIndex != 1 {
		t.Fatalf("want index 1, got %d", last.State.Quiz.CurrentQuestionIndex)
	}

	// already at the last question
	r.Inbox() <- HostCommand{Kind: CmdNext}
	recvNoUpdate(t, out, 100*time.Millisecond)
}

func TestRoom_JoinRegistersAndBroadcasts(t *testing.T) {
	r, _, _ := newTestRoom(t, demoQuestions())

	hostOut := make(chan Update, 4)
	r.Inbox() <- Subscribe{ClientID: "host", Outbox: hostOut}
	_ = recvUpdate(t, hostOut, 100*time.Millisecond)

	adaOut := make(chan Update, 4)
	reply := make(chan JoinResult, 1)
	r.Inbox() <- Join{ClientID: "conn-a", Name: "Ada", Outbox: adaOut, Reply: reply}

	res := <-reply
	if res.Err != nil {
		t.Fatalf("unexpected err: %v", res.Err)
	}
	if res.Participant.Name != "Ada" || res.Participant.ID == "" {
		t.Fatalf("unexpected participant: %+v", res.Participant)
	}

	// both the host and Ada see the roster change
	hostView := recvUpdate(t, hostOut, 100*time.Millisecond)
	if len(hostView.State.Participants) != 1 || hostView.State.Participants[0].Name != "Ada" {
		t.Fatalf("host snapshot missing Ada: %+v", hostView.State.Participants)
	}
	adaView := recvUpdate(t, adaOut, 100*time.Millisecond)
	if len(adaView.State.Participants) != 1 {
		t.Fatalf("Ada's snapshot missing herself: %+v", adaView.State.Participants)
	}
}

func TestRoom_AnswerBroadcastsOnlyWhenApplied(t *testing.T) {
	r, _, _ := newTestRoom(t, demoQuestions())

	out := make(chan Update, 8)
	reply := make(chan JoinResult, 1)
	r.Inbox() <- Join{ClientID: "conn-a", Name: "Ada", Outbox: out, Reply: reply}
	res := <-reply
	_ = recvUpdate(t, out, 100*time.Millisecond) // join broadcast

	r.Inbox() <- HostCommand{Kind: CmdStart}
	_ = recvUpdate(t, out, 100*time.Millisecond)

	r.Inbox() <- Answer{ParticipantID: res.Participant.ID, QuestionID: "q1", OptionIndex: 1}
	scored := recvUpdate(t, out, 100*time.Millisecond)
	if scored.State.Participants[0].Score != engine.PointsPerCorrect {
		t.Fatalf("want score %d, got %d", engine.PointsPerCorrect, scored.State.Participants[0].Score)
	}

	// duplicate submission: silent, no broadcast
	r.Inbox() <- Answer{ParticipantID: res.Participant.ID, QuestionID: "q1", OptionIndex: 0}
	recvNoUpdate(t, out, 100*time.Millisecond)

	// stale question id: silent, no broadcast
	r.Inbox() <- Answer{ParticipantID: res.Participant.ID, QuestionID: "nope", OptionIndex: 0}
	recvNoUpdate(t, out, 100*time.Millisecond)
}

func TestRoom_RejoinRepliesWithoutBroadcast(t *testing.T) {
	r, _, _ := newTestRoom(t, demoQuestions())

	adaOut := make(chan Update, 4)
	joinReply := make(chan JoinResult, 1)
	r.Inbox() <- Join{ClientID: "conn-a", Name: "Ada", Outbox: adaOut, Reply: joinReply}
	joined := <-joinReply
	_ = recvUpdate(t, adaOut, 100*time.Millisecond)

	hostOut := make(chan Update, 4)
	r.Inbox() <- Subscribe{ClientID: "host", Outbox: hostOut}
	_ = recvUpdate(t, hostOut, 100*time.Millisecond)

	newConn := make(chan Update, 4)
	reply := make(chan RejoinResult, 1)
	r.Inbox() <- Rejoin{ClientID: "conn-a2", ParticipantID: joined.Participant.ID, Outbox: newConn, Reply: reply}

	res := <-reply
	if res.Err != nil {
		t.Fatalf("unexpected err: %v", res.Err)
	}
	if len(res.Snapshot.Participants) != 1 || res.Snapshot.Participants[0].ClientID != "conn-a2" {
		t.Fatalf("rejoin snapshot not rebound: %+v", res.Snapshot.Participants)
	}

	// nothing changed for anyone else
	recvNoUpdate(t, hostOut, 100*time.Millisecond)
}

func TestRoom_RejoinUnknownParticipant(t *testing.T) {
	r, _, _ := newTestRoom(t, demoQuestions())

	out := make(chan Update, 4)
	reply := make(chan RejoinResult, 1)
	r.Inbox() <- Rejoin{ClientID: "conn-x", ParticipantID: "ghost", Outbox: out, Reply: reply}

	res := <-reply
	if res.Err == nil {
		t.Fatalf("expected an error for unknown participant")
	}
}

func TestRoom_DropSlowClient(t *testing.T) {
	r, _, _ := newTestRoom(t, demoQuestions())

	out := make(chan Update, 1)
	r.Inbox() <- Subscribe{ClientID: "c1", Outbox: out}
	// outbox now full with the subscribe snapshot; the next broadcast
	// can't be delivered and the client gets dropped

	r.Inbox() <- HostCommand{Kind: CmdStart}

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)

	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestRoom_ShutdownClosesOutboxes(t *testing.T) {
	r, _, _ := newTestRoom(t, demoQuestions())

	out := make(chan Update, 4)
	r.Inbox() <- Subscribe{ClientID: "c1", Outbox: out}
	_ = recvUpdate(t, out, 100*time.Millisecond)

	r.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox, got an update")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("outbox not closed after shutdown")
	}
}
