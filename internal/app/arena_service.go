package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"flux-quiz-service/internal/domain"
)

// ArenaTiming controls the pacing of a live run. QuestionTime overrides the
// per-question limit when set; tests use it to keep runs short.
type ArenaTiming struct {
	StartDelay   time.Duration
	QuestionGap  time.Duration
	QuestionTime func(domain.Question) time.Duration
}

// DefaultArenaTiming matches the pacing players expect: a short pause for
// everyone to load the quiz page, then a brief gap between questions.
func DefaultArenaTiming() ArenaTiming {
	return ArenaTiming{
		StartDelay:  3 * time.Second,
		QuestionGap: 2 * time.Second,
	}
}

// ArenaService contains the live arena use cases: lobby membership, the
// master-driven question loop, scoring, and result persistence at the end of
// a run.
type ArenaService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	results  ResultStore
	events   EventPublisher
	timing   ArenaTiming
}

func NewArenaService(sessions SessionRepository, quizzes QuizRepository, results ResultStore, events EventPublisher) *ArenaService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ArenaService{
		sessions: sessions,
		quizzes:  quizzes,
		results:  results,
		events:   events,
		timing:   DefaultArenaTiming(),
	}
}

// SetTiming replaces the run pacing; call before any run starts.
func (s *ArenaService) SetTiming(timing ArenaTiming) {
	s.timing = timing
}

// Join registers or refreshes a player in a quiz lobby. The quiz owner is
// the session master.
func (s *ArenaService) Join(ctx context.Context, quizID, userID, displayName string) (JoinInfo, error) {
	// Players cannot join unknown quizzes.
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return JoinInfo{}, err
	}

	session := s.sessions.GetOrCreate(quizID, quiz.OwnerID)
	return session.join(userID, displayName), nil
}

// Leave removes a player from the lobby. An idle lobby is dropped; a running
// session stays alive so the player can rejoin with their score intact.
func (s *ArenaService) Leave(_ context.Context, quizID, userID string) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return
	}
	session.leave(userID)
	if session.IsEmpty() && !session.isStarted() {
		s.sessions.DeleteIfEmpty(quizID)
	}
}

// Kick lets the master remove a player from the session entirely.
func (s *ArenaService) Kick(_ context.Context, quizID, byUserID, targetUserID string) error {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.kick(byUserID, targetUserID)
}

// Start kicks off the live run. Only the master may start, and only once.
func (s *ArenaService) Start(ctx context.Context, quizID, userID string) error {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if err := session.markStarted(userID); err != nil {
		return err
	}

	session.broadcast(ArenaEvent{Type: EventQuizStarted, Payload: map[string]string{
		"quizId":  quizID,
		"message": "Quiz is starting!",
	}})
	go s.run(session, quiz)
	return nil
}

// Submit scores an answer for the live question.
func (s *ArenaService) Submit(ctx context.Context, quizID, userID string, sub domain.AnswerSubmission) (ScoreUpdate, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return ScoreUpdate{}, domain.ErrSessionNotFound
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return ScoreUpdate{}, err
	}
	return session.submit(userID, sub, quiz)
}

// Subscribe returns a channel of arena events for one player's connection.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ArenaService) Subscribe(_ context.Context, quizID, userID string) (<-chan ArenaEvent, func(), error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe(userID)
	return ch, cancel, nil
}

// Leaderboard returns the current arena standings.
func (s *ArenaService) Leaderboard(_ context.Context, quizID string) (domain.Leaderboard, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.Leaderboard{}, domain.ErrSessionNotFound
	}
	return session.leaderboard(), nil
}

type timeUpPayload struct {
	Index         int                 `json:"index"`
	CorrectAnswer string              `json:"correctAnswer"`
	QuestionType  domain.QuestionType `json:"questionType"`
}

// run walks the question list, broadcasting each question and its reveal on
// the question's own countdown.
func (s *ArenaService) run(session *ArenaSession, quiz domain.Quiz) {
	if !s.wait(session, s.timing.StartDelay) {
		return
	}
	last := len(quiz.Questions) - 1
	for idx, question := range quiz.Questions {
		session.setCurrent(idx)
		session.broadcast(ArenaEvent{Type: EventQuestion, Payload: domain.ViewOf(quiz, idx)})

		if !s.wait(session, s.questionTime(question)) {
			return
		}
		// Once the key is revealed the question takes no more answers.
		session.closeQuestion()
		session.broadcast(ArenaEvent{Type: EventTimeUp, Payload: timeUpPayload{
			Index:         idx,
			CorrectAnswer: question.Answer,
			QuestionType:  question.Type,
		}})
		if idx < last && !s.wait(session, s.timing.QuestionGap) {
			return
		}
	}
	s.finishRun(session, quiz)
}

func (s *ArenaService) questionTime(q domain.Question) time.Duration {
	if s.timing.QuestionTime != nil {
		return s.timing.QuestionTime(q)
	}
	return q.TimeLimit()
}

// wait sleeps for d unless the session is torn down first.
func (s *ArenaService) wait(session *ArenaSession, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-session.stopped():
		return false
	}
}

func (s *ArenaService) finishRun(session *ArenaSession, quiz domain.Quiz) {
	elapsed := session.elapsed()
	snapshots := session.finish()

	session.broadcast(ArenaEvent{Type: EventQuizEnded, Payload: map[string]string{"quizId": quiz.ID}})

	ctx := context.Background()
	now := time.Now()
	total := quiz.TotalPossible()
	saved := 0
	for _, snap := range snapshots {
		percentage := 0.0
		if total > 0 {
			percentage = float64(snap.Score) / float64(total) * 100
		}
		result := domain.Result{
			ID:             uuid.NewString(),
			QuizID:         quiz.ID,
			QuizTitle:      quiz.Title,
			UserID:         snap.UserID,
			DisplayName:    snap.DisplayName,
			Score:          snap.Score,
			CorrectAnswers: snap.Correct,
			TotalQuestions: len(quiz.Questions),
			TotalPossible:  total,
			Percentage:     percentage,
			Mode:           domain.ModeArena,
			ElapsedMS:      elapsed.Milliseconds(),
			CompletedAt:    now,
		}
		if err := s.results.SaveResult(ctx, result); err != nil {
			log.Printf("save arena result for %s in quiz %s: %v", snap.UserID, quiz.ID, err)
			continue
		}
		saved++
	}
	log.Printf("arena run for quiz %s ended, %d results saved", quiz.ID, saved)

	if err := s.events.Publish(ctx, "arena.completed", domain.Leaderboard{
		QuizID:    quiz.ID,
		Entries:   entriesOf(snapshots),
		UpdatedAt: now,
	}); err != nil {
		log.Printf("publish arena.completed for quiz %s: %v", quiz.ID, err)
	}

	s.sessions.Delete(quiz.ID)
}

func entriesOf(snapshots []scoreSnapshot) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(snapshots))
	for _, snap := range snapshots {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      snap.UserID,
			DisplayName: snap.DisplayName,
			Score:       snap.Score,
		})
	}
	return entries
}
