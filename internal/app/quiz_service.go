package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"flux-quiz-service/internal/domain"
)

// QuizService manages quiz content. Writes go to the store and drop the
// cached copy so both play modes see fresh content on the next load.
type QuizService struct {
	store QuizStore
	cache QuizCache
}

func NewQuizService(store QuizStore, cache QuizCache) *QuizService {
	return &QuizService{store: store, cache: cache}
}

// Create persists a new quiz, assigning an ID when none is given.
func (s *QuizService) Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quiz.ID)
	return quiz, nil
}

// Update overwrites a quiz document.
func (s *QuizService) Update(ctx context.Context, quiz domain.Quiz) error {
	if err := validateQuiz(quiz); err != nil {
		return err
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	s.invalidate(ctx, quiz.ID)
	return nil
}

// Delete removes a quiz and its cached copy.
func (s *QuizService) Delete(ctx context.Context, quizID string) error {
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, quizID); err != nil {
		log.Printf("invalidate quiz %s: %v", quizID, err)
	}
}

func validateQuiz(quiz domain.Quiz) error {
	if strings.TrimSpace(quiz.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidQuiz)
	}
	for i, q := range quiz.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("%w: question %d has no prompt", domain.ErrInvalidQuiz, i)
		}
		switch q.Type {
		case domain.QuestionMCQ:
			if len(q.Options) < 2 || len(q.Options) > 4 {
				return fmt.Errorf("%w: question %d needs 2 to 4 options", domain.ErrInvalidQuiz, i)
			}
			found := false
			for _, opt := range q.Options {
				if opt.ID == q.Answer {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%w: question %d answer key names no option", domain.ErrInvalidQuiz, i)
			}
		case domain.QuestionTrueFalse:
			if !strings.EqualFold(q.Answer, "TRUE") && !strings.EqualFold(q.Answer, "FALSE") {
				return fmt.Errorf("%w: question %d answer must be TRUE or FALSE", domain.ErrInvalidQuiz, i)
			}
		case domain.QuestionShort:
			if strings.TrimSpace(q.Answer) == "" {
				return fmt.Errorf("%w: question %d has no answer key", domain.ErrInvalidQuiz, i)
			}
		default:
			return fmt.Errorf("%w: question %d has unknown type %q", domain.ErrInvalidQuiz, i, q.Type)
		}
	}
	return nil
}
