package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"flux-quiz-service/internal/domain"
)

// completedAttemptRetention is how long a finished attempt stays readable
// in memory. The persisted result outlives the eviction.
const completedAttemptRetention = time.Hour

// AttemptService runs solo attempts: it loads quiz content, drives the
// per-question countdowns, and persists the result when an attempt
// completes.
type AttemptService struct {
	quizzes   QuizRepository
	results   ResultStore
	events    EventPublisher
	now       func() time.Time
	retention time.Duration

	mu       sync.RWMutex
	attempts map[string]*Attempt
	timers   map[string]*time.Timer
}

func NewAttemptService(quizzes QuizRepository, results ResultStore, events EventPublisher) *AttemptService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AttemptService{
		quizzes:   quizzes,
		results:   results,
		events:    events,
		now:       time.Now,
		retention: completedAttemptRetention,
		attempts:  make(map[string]*Attempt),
		timers:    make(map[string]*time.Timer),
	}
}

// Start creates an attempt for the quiz and begins the run at question 0.
func (s *AttemptService) Start(ctx context.Context, quizID, userID, displayName string) (AttemptSnapshot, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return AttemptSnapshot{}, err
	}

	attempt := newAttempt(uuid.NewString(), quiz, userID, displayName, s.now)
	gen, limit, completed, err := attempt.start()
	if err != nil {
		return AttemptSnapshot{}, err
	}

	s.mu.Lock()
	s.attempts[attempt.ID] = attempt
	s.mu.Unlock()

	if completed {
		s.finalize(ctx, attempt)
	} else {
		s.armTimer(attempt, gen, limit)
	}
	return attempt.snapshot(), nil
}

// SubmitOutcome reports what a submission did and what comes next.
type SubmitOutcome struct {
	Correct   bool                 `json:"correct"`
	Awarded   int                  `json:"awarded"`
	Score     int                  `json:"score"`
	Position  int                  `json:"position"`
	Completed bool                 `json:"completed"`
	Question  *domain.QuestionView `json:"question,omitempty"`
}

// Submit records an answer for the attempt's current question.
func (s *AttemptService) Submit(ctx context.Context, attemptID string, sub domain.AnswerSubmission) (SubmitOutcome, error) {
	attempt, ok := s.get(attemptID)
	if !ok {
		return SubmitOutcome{}, domain.ErrAttemptNotFound
	}

	adv, err := attempt.submit(sub)
	if err != nil {
		return SubmitOutcome{}, err
	}

	outcome := SubmitOutcome{
		Correct:   adv.Correct,
		Awarded:   adv.Awarded,
		Score:     adv.Score,
		Position:  adv.Position,
		Completed: adv.Completed,
	}
	if adv.Completed {
		s.finalize(ctx, attempt)
		return outcome, nil
	}
	view := domain.ViewOf(attempt.quiz, adv.Position)
	outcome.Question = &view
	s.armTimer(attempt, adv.NextGen, adv.NextLimit)
	return outcome, nil
}

// Result returns the terminal summary for a completed attempt.
func (s *AttemptService) Result(_ context.Context, attemptID string) (domain.Result, error) {
	attempt, ok := s.get(attemptID)
	if !ok {
		return domain.Result{}, domain.ErrAttemptNotFound
	}
	return attempt.result()
}

// Snapshot returns the current state of an attempt.
func (s *AttemptService) Snapshot(attemptID string) (AttemptSnapshot, error) {
	attempt, ok := s.get(attemptID)
	if !ok {
		return AttemptSnapshot{}, domain.ErrAttemptNotFound
	}
	return attempt.snapshot(), nil
}

func (s *AttemptService) get(attemptID string) (*Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	return attempt, ok
}

func (s *AttemptService) armTimer(attempt *Attempt, gen int, limit time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[attempt.ID]; ok {
		timer.Stop()
	}
	s.timers[attempt.ID] = time.AfterFunc(limit, func() {
		s.onExpire(attempt, gen)
	})
}

func (s *AttemptService) onExpire(attempt *Attempt, gen int) {
	adv, fired := attempt.expire(gen)
	if !fired {
		return
	}
	if adv.Completed {
		s.finalize(context.Background(), attempt)
		return
	}
	s.armTimer(attempt, adv.NextGen, adv.NextLimit)
}

func (s *AttemptService) finalize(ctx context.Context, attempt *Attempt) {
	s.mu.Lock()
	if timer, ok := s.timers[attempt.ID]; ok {
		timer.Stop()
		delete(s.timers, attempt.ID)
	}
	s.mu.Unlock()

	result, err := attempt.result()
	if err != nil {
		return
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		log.Printf("save result for attempt %s: %v", attempt.ID, err)
	}
	if err := s.events.Publish(ctx, "attempt.completed", result); err != nil {
		log.Printf("publish attempt.completed for %s: %v", attempt.ID, err)
	}

	s.evictAfter(attempt.ID)
}

// evictAfter drops a completed attempt from memory once clients have had a
// chance to read the result, keeping the attempt map bounded.
func (s *AttemptService) evictAfter(attemptID string) {
	if s.retention <= 0 {
		s.evict(attemptID)
		return
	}
	time.AfterFunc(s.retention, func() {
		s.evict(attemptID)
	})
}

func (s *AttemptService) evict(attemptID string) {
	s.mu.Lock()
	delete(s.attempts, attemptID)
	delete(s.timers, attemptID)
	s.mu.Unlock()
}
