package quiz

import "sort"

type Status string

const (
	StatusLobby      Status = "lobby"
	StatusInProgress Status = "in-progress"
	StatusFinished   Status = "finished"
)

// NoQuestion is the current-question index while a quiz is not in progress.
const NoQuestion = -1

type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

type Quiz struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	Status    Status     `json:"status"`

	CurrentQuestionIndex int `json:"currentQuestionIndex"`

	// Epoch milliseconds; nil whenever no question is accepting answers.
	CurrentQuestionEndsAt *int64 `json:"currentQuestionEndsAt"`
}

type Participant struct {
	ID       string         `json:"id"`
	ClientID string         `json:"clientId"`
	Name     string         `json:"name"`
	Score    int            `json:"score"`
	Answers  map[string]int `json:"answers"`

	// Monotonic per-quiz join sequence; snapshots list participants in
	// arrival order.
	JoinSeq int `json:"-"`
}

// Snapshot is the full state pushed to every room subscriber on each
// successful mutation. Clients replace, never patch.
type Snapshot struct {
	Quiz         Quiz          `json:"quiz"`
	Participants []Participant `json:"participants"`
}

// CurrentQuestion returns the live question, or false while the quiz is
// not in progress.
func (q *Quiz) CurrentQuestion() (Question, bool) {
	if q.Status != StatusInProgress {
		return Question{}, false
	}
	if q.CurrentQuestionIndex < 0 || q.CurrentQuestionIndex >= len(q.Questions) {
		return Question{}, false
	}
	return q.Questions[q.CurrentQuestionIndex], true
}

// Clone deep-copies the quiz so snapshots can be marshaled outside the
// store lock.
func (q *Quiz) Clone() Quiz {
	out := *q
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Options = append([]string(nil), qq.Options...)
		out.Questions[i] = qq
	}
	if q.CurrentQuestionEndsAt != nil {
		ends := *q.CurrentQuestionEndsAt
		out.CurrentQuestionEndsAt = &ends
	}
	return out
}

// Clone deep-copies the participant, including the answer map.
func (p *Participant) Clone() Participant {
	out := *p
	out.Answers = make(map[string]int, len(p.Answers))
	for k, v := range p.Answers {
		out.Answers[k] = v
	}
	return out
}

type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
}

// Leaderboard orders participants by score descending, breaking ties by
// arrival order.
func Leaderboard(participants []Participant) []LeaderboardEntry {
	sorted := append([]Participant(nil), participants...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].JoinSeq < sorted[j].JoinSeq
	})

	entries := make([]LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = LeaderboardEntry{ParticipantID: p.ID, Name: p.Name, Score: p.Score}
	}
	return entries
}
