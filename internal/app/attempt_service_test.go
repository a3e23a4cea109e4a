package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"flux-quiz-service/internal/domain"
)

type staticQuizzes map[string]domain.Quiz

func (q staticQuizzes) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	quiz, ok := q[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

type capturingResults struct {
	mu    sync.Mutex
	saved []domain.Result
}

func (r *capturingResults) SaveResult(_ context.Context, result domain.Result) error {
	r.mu.Lock()
	r.saved = append(r.saved, result)
	r.mu.Unlock()
	return nil
}

func (r *capturingResults) QuizStandings(context.Context, string) ([]domain.Result, error) {
	return nil, nil
}

func (r *capturingResults) TopPlayers(context.Context, int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

func (r *capturingResults) all() []domain.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Result(nil), r.saved...)
}

type capturingEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *capturingEvents) Publish(_ context.Context, eventType string, _ any) error {
	e.mu.Lock()
	e.events = append(e.events, eventType)
	e.mu.Unlock()
	return nil
}

func newTestAttemptService() (*AttemptService, *capturingResults, *capturingEvents) {
	results := &capturingResults{}
	events := &capturingEvents{}
	service := NewAttemptService(staticQuizzes{"quiz-1": threeQuestionQuiz()}, results, events)
	return service, results, events
}

func TestAttemptServiceFullRun(t *testing.T) {
	ctx := context.Background()
	service, results, events := newTestAttemptService()

	snap, err := service.Start(ctx, "quiz-1", "u1", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.Question == nil || snap.Question.Index != 0 {
		t.Fatalf("expected first question in snapshot, got %+v", snap)
	}

	if _, err := service.Result(ctx, snap.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state before completion, got %v", err)
	}

	answers := []string{"o2", "TRUE", "mars"}
	var outcome SubmitOutcome
	for i, ans := range answers {
		outcome, err = service.Submit(ctx, snap.ID, domain.AnswerSubmission{QuestionIndex: i, Answer: ans})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if !outcome.Completed || outcome.Score != 3 {
		t.Fatalf("expected completed run with score 3, got %+v", outcome)
	}

	result, err := service.Result(ctx, snap.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.CorrectAnswers != 3 || result.TotalPossible != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}

	saved := results.all()
	if len(saved) != 1 || saved[0].Mode != domain.ModeSolo {
		t.Fatalf("expected one persisted solo result, got %+v", saved)
	}
	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.events) != 1 || events.events[0] != "attempt.completed" {
		t.Fatalf("expected attempt.completed event, got %v", events.events)
	}
}

func TestCompletedAttemptsEvicted(t *testing.T) {
	ctx := context.Background()
	service, results, _ := newTestAttemptService()
	service.retention = 0 // evict as soon as the run finalizes

	snap, err := service.Start(ctx, "quiz-1", "u1", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	answers := []string{"o2", "TRUE", "mars"}
	for i, ans := range answers {
		if _, err := service.Submit(ctx, snap.ID, domain.AnswerSubmission{QuestionIndex: i, Answer: ans}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if _, err := service.Result(ctx, snap.ID); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt evicted, got %v", err)
	}
	// The persisted result outlives the eviction.
	if len(results.all()) != 1 {
		t.Fatalf("expected persisted result, got %d", len(results.all()))
	}
}

func TestAttemptServiceUnknownQuizAndAttempt(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestAttemptService()

	if _, err := service.Start(ctx, "quiz-404", "u1", "Alice"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if _, err := service.Submit(ctx, "missing", domain.AnswerSubmission{}); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}
	if _, err := service.Result(ctx, "missing"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}
}

func TestAttemptServiceExpiryCompletesRun(t *testing.T) {
	ctx := context.Background()
	service, results, _ := newTestAttemptService()

	snap, err := service.Start(ctx, "quiz-1", "u1", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	attempt, ok := service.get(snap.ID)
	if !ok {
		t.Fatalf("attempt missing")
	}

	// Drive the countdown callbacks directly instead of waiting them out.
	for i := 0; i < 3; i++ {
		attempt.mu.Lock()
		gen := attempt.gen
		attempt.mu.Unlock()
		service.onExpire(attempt, gen)
	}

	result, err := service.Result(ctx, snap.ID)
	if err != nil {
		t.Fatalf("result after expiries: %v", err)
	}
	if result.Score != 0 || result.CorrectAnswers != 0 {
		t.Fatalf("expected zero score, got %+v", result)
	}
	if len(results.all()) != 1 {
		t.Fatalf("expected persisted result")
	}

	// A straggling timer callback after completion changes nothing.
	service.onExpire(attempt, 0)
	if len(results.all()) != 1 {
		t.Fatalf("stale expiry must not persist again")
	}
}
