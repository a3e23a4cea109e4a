package domain

import "time"

// QuestionType distinguishes how an answer is matched against the key.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionTrueFalse QuestionType = "tf"
	QuestionShort     QuestionType = "short"
)

const (
	// DefaultTimeLimitSec applies when a question carries no time limit.
	DefaultTimeLimitSec = 30
	MinTimeLimitSec     = 5
	MaxTimeLimitSec     = 120
)

// Option represents a possible answer for an MCQ question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models a single quiz question. For MCQ the answer key holds the
// correct option ID; for true/false it holds "TRUE" or "FALSE"; for short
// answers it holds the expected text.
type Question struct {
	ID           string       `json:"id"`
	Type         QuestionType `json:"type"`
	Prompt       string       `json:"prompt"`
	Options      []Option     `json:"options,omitempty"`
	Answer       string       `json:"answer"`
	Points       int          `json:"points"` // defaults to 1 if zero
	TimeLimitSec int          `json:"timeLimitSec"`
}

// TimeLimit returns the question countdown clamped to the allowed range.
func (q Question) TimeLimit() time.Duration {
	sec := q.TimeLimitSec
	if sec == 0 {
		sec = DefaultTimeLimitSec
	}
	if sec < MinTimeLimitSec {
		sec = MinTimeLimitSec
	}
	if sec > MaxTimeLimitSec {
		sec = MaxTimeLimitSec
	}
	return time.Duration(sec) * time.Second
}

// PointsOrDefault returns the question's point value, never zero.
func (q Question) PointsOrDefault() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Subject   string     `json:"subject"`
	OwnerID   string     `json:"ownerId"`
	Questions []Question `json:"questions"`
}

// TotalPossible sums the point values of all questions.
func (q Quiz) TotalPossible() int {
	total := 0
	for _, question := range q.Questions {
		total += question.PointsOrDefault()
	}
	return total
}

// AttemptState is the lifecycle of a solo attempt.
type AttemptState string

const (
	AttemptNotStarted AttemptState = "NOT_STARTED"
	AttemptInProgress AttemptState = "IN_PROGRESS"
	AttemptComplete   AttemptState = "COMPLETE"
)

// AnswerSubmission carries one answer from a client. QuestionIndex is the
// position the client believes it is answering; submissions for any other
// question are rejected.
type AnswerSubmission struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

const (
	ModeSolo  = "solo"
	ModeArena = "live_arena"
)

// Result is the read-only summary produced when an attempt or arena run
// reaches its terminal state.
type Result struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quizId"`
	QuizTitle      string    `json:"quizTitle"`
	UserID         string    `json:"userId"`
	DisplayName    string    `json:"displayName"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	TotalPossible  int       `json:"totalPossible"`
	Percentage     float64   `json:"percentage"`
	Mode           string    `json:"mode"`
	ElapsedMS      int64     `json:"elapsedMs"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Participant represents an arena player and their accumulated score.
type Participant struct {
	UserID      string
	DisplayName string
	Score       int
	LastUpdated time.Time
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard for an arena session.
type Leaderboard struct {
	QuizID    string             `json:"quizId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// QuestionView is a question stripped of its answer key, safe to send to
// players.
type QuestionView struct {
	Index        int          `json:"index"`
	Total        int          `json:"total"`
	Type         QuestionType `json:"type"`
	Prompt       string       `json:"prompt"`
	Options      []Option     `json:"options,omitempty"`
	Points       int          `json:"points"`
	TimeLimitSec int          `json:"timeLimitSec"`
}

// ViewOf builds the player-facing view of question idx of the quiz.
func ViewOf(quiz Quiz, idx int) QuestionView {
	q := quiz.Questions[idx]
	return QuestionView{
		Index:        idx,
		Total:        len(quiz.Questions),
		Type:         q.Type,
		Prompt:       q.Prompt,
		Options:      q.Options,
		Points:       q.PointsOrDefault(),
		TimeLimitSec: int(q.TimeLimit() / time.Second),
	}
}
