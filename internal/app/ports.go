package app

import (
	"context"

	"flux-quiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizStore persists quiz content.
type QuizStore interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
}

// QuizCache drops cached quiz content after writes.
type QuizCache interface {
	Invalidate(ctx context.Context, quizID string) error
}

// SessionRepository abstracts how arena sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(quizID, masterID string) *ArenaSession
	Get(quizID string) (*ArenaSession, bool)
	Delete(quizID string)
	DeleteIfEmpty(quizID string)
}

// ResultStore persists terminal results and serves standings queries.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.Result) error
	QuizStandings(ctx context.Context, quizID string) ([]domain.Result, error)
	TopPlayers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// EventPublisher emits completion events to interested services.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// NopPublisher discards events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
