package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"flux-quiz-service/internal/domain"
)

// ResultStore persists terminal results and serves the standings queries.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO results
		   (id, quiz_id, quiz_title, user_id, display_name, score,
		    correct_answers, total_questions, total_possible, percentage,
		    mode, elapsed_ms, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		result.ID, result.QuizID, result.QuizTitle, result.UserID,
		result.DisplayName, result.Score, result.CorrectAnswers,
		result.TotalQuestions, result.TotalPossible, result.Percentage,
		result.Mode, result.ElapsedMS, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// QuizStandings returns all results for a quiz, highest score first, earlier
// completion breaking ties.
func (s *ResultStore) QuizStandings(ctx context.Context, quizID string) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, quiz_title, user_id, display_name, score,
		        correct_answers, total_questions, total_possible, percentage,
		        mode, elapsed_ms, completed_at
		   FROM results
		  WHERE quiz_id=$1
		  ORDER BY score DESC, completed_at ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("quiz standings: %w", err)
	}
	defer rows.Close()

	var standings []domain.Result
	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.ID, &r.QuizID, &r.QuizTitle, &r.UserID,
			&r.DisplayName, &r.Score, &r.CorrectAnswers, &r.TotalQuestions,
			&r.TotalPossible, &r.Percentage, &r.Mode, &r.ElapsedMS,
			&r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		standings = append(standings, r)
	}
	return standings, rows.Err()
}

// TopPlayers aggregates total score per player across all quizzes.
func (s *ResultStore) TopPlayers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, MAX(display_name), SUM(score) AS total
		   FROM results
		  GROUP BY user_id
		  ORDER BY total DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top players: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.DisplayName, &entry.Score); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
