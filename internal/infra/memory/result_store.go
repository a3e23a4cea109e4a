package memory

import (
	"context"
	"sort"
	"sync"

	"flux-quiz-service/internal/domain"
)

// ResultStore keeps results in memory, useful for tests and demo mode.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	return nil
}

// QuizStandings returns all results for a quiz, highest score first.
func (s *ResultStore) QuizStandings(_ context.Context, quizID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	standings := make([]domain.Result, 0)
	for _, result := range s.results {
		if result.QuizID == quizID {
			standings = append(standings, result)
		}
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].CompletedAt.Before(standings[j].CompletedAt)
	})
	return standings, nil
}

// TopPlayers aggregates scores per player across all quizzes.
func (s *ResultStore) TopPlayers(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]*domain.LeaderboardEntry)
	for _, result := range s.results {
		entry, ok := totals[result.UserID]
		if !ok {
			entry = &domain.LeaderboardEntry{UserID: result.UserID, DisplayName: result.DisplayName}
			totals[result.UserID] = entry
		}
		entry.Score += result.Score
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for _, entry := range totals {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
