package app

import (
	"sync"
	"time"

	"flux-quiz-service/internal/domain"
)

// Attempt is the solo quiz session controller: one player walking linearly
// through a fixed question sequence with a countdown per question.
//
// Lifecycle: NOT_STARTED -> IN_PROGRESS -> COMPLETE. Position only moves
// forward, one question per submission or expiry, and never past the
// question count. Once complete no further submissions are accepted.
type Attempt struct {
	ID          string
	QuizID      string
	UserID      string
	DisplayName string

	mu         sync.Mutex
	quiz       domain.Quiz
	state      domain.AttemptState
	pos        int
	score      int
	correct    int
	startedAt  time.Time
	finishedAt time.Time
	deadline   time.Time
	gen        int // bumped on every question transition; stale timers no-op
	now        func() time.Time
}

func newAttempt(id string, quiz domain.Quiz, userID, displayName string, now func() time.Time) *Attempt {
	return &Attempt{
		ID:          id,
		QuizID:      quiz.ID,
		UserID:      userID,
		DisplayName: displayName,
		quiz:        quiz,
		state:       domain.AttemptNotStarted,
		now:         now,
	}
}

// advance captures the outcome of a submission or expiry.
type advance struct {
	Correct   bool
	Awarded   int
	Score     int
	Position  int
	Completed bool
	NextGen   int
	NextLimit time.Duration
}

// start transitions to IN_PROGRESS and arms the countdown for question 0.
// A quiz with no questions completes immediately.
func (a *Attempt) start() (gen int, limit time.Duration, completed bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != domain.AttemptNotStarted {
		return 0, 0, false, domain.ErrInvalidState
	}
	a.state = domain.AttemptInProgress
	a.pos = 0
	a.score = 0
	a.correct = 0
	a.startedAt = a.now()

	if len(a.quiz.Questions) == 0 {
		a.completeLocked()
		return a.gen, 0, true, nil
	}
	limit = a.quiz.Questions[0].TimeLimit()
	a.deadline = a.startedAt.Add(limit)
	return a.gen, limit, false, nil
}

// submit scores the answer for the current question and advances. Answers
// arriving after the deadline (timer raced the submission) score nothing but
// still consume the question.
func (a *Attempt) submit(sub domain.AnswerSubmission) (advance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != domain.AttemptInProgress {
		return advance{}, domain.ErrInvalidState
	}
	if sub.QuestionIndex != a.pos {
		return advance{}, domain.ErrQuestionNotFound
	}

	question := a.quiz.Questions[a.pos]
	correct, awarded := false, 0
	if a.now().Before(a.deadline) {
		correct, awarded = question.Score(sub.Answer)
	}
	if correct {
		a.score += awarded
		a.correct++
	}
	return a.advanceLocked(correct, awarded), nil
}

// expire advances past an unanswered question whose countdown ran out. A
// stale generation means the question was already consumed; nothing happens.
func (a *Attempt) expire(gen int) (advance, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != domain.AttemptInProgress || gen != a.gen {
		return advance{}, false
	}
	return a.advanceLocked(false, 0), true
}

func (a *Attempt) advanceLocked(correct bool, awarded int) advance {
	a.pos++
	a.gen++
	adv := advance{
		Correct:  correct,
		Awarded:  awarded,
		Score:    a.score,
		Position: a.pos,
		NextGen:  a.gen,
	}
	if a.pos == len(a.quiz.Questions) {
		a.completeLocked()
		adv.Completed = true
		return adv
	}
	limit := a.quiz.Questions[a.pos].TimeLimit()
	a.deadline = a.now().Add(limit)
	adv.NextLimit = limit
	return adv
}

func (a *Attempt) completeLocked() {
	a.state = domain.AttemptComplete
	a.finishedAt = a.now()
	a.deadline = time.Time{}
	a.gen++
}

// result returns the terminal summary; before completion it fails.
func (a *Attempt) result() (domain.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != domain.AttemptComplete {
		return domain.Result{}, domain.ErrInvalidState
	}
	total := a.quiz.TotalPossible()
	percentage := 0.0
	if total > 0 {
		percentage = float64(a.score) / float64(total) * 100
	}
	return domain.Result{
		ID:             a.ID,
		QuizID:         a.quiz.ID,
		QuizTitle:      a.quiz.Title,
		UserID:         a.UserID,
		DisplayName:    a.DisplayName,
		Score:          a.score,
		CorrectAnswers: a.correct,
		TotalQuestions: len(a.quiz.Questions),
		TotalPossible:  total,
		Percentage:     percentage,
		Mode:           domain.ModeSolo,
		ElapsedMS:      a.finishedAt.Sub(a.startedAt).Milliseconds(),
		CompletedAt:    a.finishedAt,
	}, nil
}

// AttemptSnapshot is the transport-facing view of an attempt.
type AttemptSnapshot struct {
	ID           string               `json:"id"`
	QuizID       string               `json:"quizId"`
	State        domain.AttemptState  `json:"state"`
	Position     int                  `json:"position"`
	Score        int                  `json:"score"`
	Question     *domain.QuestionView `json:"question,omitempty"`
	RemainingSec int                  `json:"remainingSec"`
}

func (a *Attempt) snapshot() AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := AttemptSnapshot{
		ID:       a.ID,
		QuizID:   a.quiz.ID,
		State:    a.state,
		Position: a.pos,
		Score:    a.score,
	}
	if a.state == domain.AttemptInProgress && a.pos < len(a.quiz.Questions) {
		view := domain.ViewOf(a.quiz, a.pos)
		snap.Question = &view
		if remaining := a.deadline.Sub(a.now()); remaining > 0 {
			snap.RemainingSec = int(remaining / time.Second)
		}
	}
	return snap
}
