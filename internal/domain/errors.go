package domain

import "errors"

var (
	// ErrInvalidState is returned when an operation is invoked outside the
	// attempt or arena state it is valid in.
	ErrInvalidState = errors.New("operation not valid in current state")
	// ErrSessionNotFound is returned when an arena session has not been initialized.
	ErrSessionNotFound = errors.New("arena session not found")
	// ErrAttemptNotFound is returned for an unknown attempt ID.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in arena")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz is returned when quiz content fails validation on save.
	ErrInvalidQuiz = errors.New("quiz content is invalid")
	// ErrQuestionNotFound indicates a submitted question index is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNotMaster is returned when a non-master issues a master-only command.
	ErrNotMaster = errors.New("only the quiz master may do that")
)
