package app

import (
	"sort"
	"sync"
	"time"

	"flux-quiz-service/internal/domain"
)

// Arena event types, mirrored on the wire.
const (
	EventJoined       = "joined"
	EventPlayerList   = "player_list"
	EventPlayerKicked = "player_kicked"
	EventKicked       = "kicked"
	EventQuizStarted  = "quiz_started"
	EventQuestion     = "question"
	EventTimeUp       = "time_up"
	EventScore        = "score"
	EventLeaderboard  = "leaderboard"
	EventQuizEnded    = "quiz_ended"
)

// ArenaEvent is one fan-out message to arena subscribers. A non-empty target
// restricts delivery to that user's subscriptions.
type ArenaEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	target  string
}

// PlayerRef identifies a lobby member.
type PlayerRef struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// JoinInfo is what a joining player learns about the session.
type JoinInfo struct {
	QuizID   string `json:"quizId"`
	IsRejoin bool   `json:"isRejoin"`
	Started  bool   `json:"quizStarted"`
	Score    int    `json:"currentScore"`
}

// playerScore outlives lobby presence so a disconnected player keeps their
// score on rejoin.
type playerScore struct {
	displayName string
	score       int
	correct     int
	answered    map[int]bool
	lastUpdated time.Time
}

// ArenaSession is the live state of one quiz run: lobby membership, scores,
// the broadcast fan-out, and the master-driven question cursor.
type ArenaSession struct {
	quizID    string
	masterID  string
	createdAt time.Time
	now       func() time.Time

	mu          sync.RWMutex
	players     map[string]string // userID -> display name, presence only
	scores      map[string]*playerScore
	started     bool
	ended       bool
	startedAt   time.Time
	current     int
	stop        chan struct{}
	subscribers map[chan ArenaEvent]string
}

func NewArenaSession(quizID, masterID string) *ArenaSession {
	return NewArenaSessionWithClock(quizID, masterID, time.Now)
}

// NewArenaSessionWithClock allows deterministic timestamps in tests.
func NewArenaSessionWithClock(quizID, masterID string, now func() time.Time) *ArenaSession {
	return &ArenaSession{
		quizID:      quizID,
		masterID:    masterID,
		createdAt:   now(),
		now:         now,
		players:     make(map[string]string),
		scores:      make(map[string]*playerScore),
		stop:        make(chan struct{}),
		subscribers: make(map[chan ArenaEvent]string),
	}
}

// MasterID reports which user may start the run and kick players.
func (s *ArenaSession) MasterID() string {
	return s.masterID
}

func (s *ArenaSession) join(userID, displayName string) JoinInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, rejoin := s.scores[userID]
	s.players[userID] = displayName
	if rejoin {
		s.scores[userID].displayName = displayName
	} else {
		s.scores[userID] = &playerScore{
			displayName: displayName,
			answered:    make(map[int]bool),
			lastUpdated: s.now(),
		}
	}

	info := JoinInfo{
		QuizID:   s.quizID,
		IsRejoin: rejoin,
		Started:  s.started,
		Score:    s.scores[userID].score,
	}
	s.broadcastLocked(ArenaEvent{Type: EventPlayerList, Payload: s.playerListLocked()})
	return info
}

func (s *ArenaSession) leave(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[userID]; !ok {
		return
	}
	delete(s.players, userID)
	s.broadcastLocked(ArenaEvent{Type: EventPlayerList, Payload: s.playerListLocked()})
}

func (s *ArenaSession) kick(byUserID, targetUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byUserID != s.masterID {
		return domain.ErrNotMaster
	}
	name, ok := s.players[targetUserID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.players, targetUserID)
	delete(s.scores, targetUserID)

	s.broadcastLocked(ArenaEvent{
		Type:    EventKicked,
		Payload: map[string]string{"message": "You have been removed from this quiz"},
		target:  targetUserID,
	})
	s.broadcastLocked(ArenaEvent{Type: EventPlayerKicked, Payload: PlayerRef{UserID: targetUserID, DisplayName: name}})
	s.broadcastLocked(ArenaEvent{Type: EventPlayerList, Payload: s.playerListLocked()})
	return nil
}

// markStarted flips the session into its running state. Only the master may
// start, and only once.
func (s *ArenaSession) markStarted(byUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byUserID != s.masterID {
		return domain.ErrNotMaster
	}
	if s.started || s.ended {
		return domain.ErrInvalidState
	}
	s.started = true
	s.startedAt = s.now()
	// No question is open until the run loop broadcasts one.
	s.current = -1
	return nil
}

func (s *ArenaSession) setCurrent(idx int) {
	s.mu.Lock()
	s.current = idx
	s.mu.Unlock()
}

// closeQuestion rejects further answers until the next question is
// broadcast. Called once the answer key has been revealed.
func (s *ArenaSession) closeQuestion() {
	s.mu.Lock()
	s.current = -1
	s.mu.Unlock()
}

// ScoreUpdate is the private acknowledgement sent to a submitting player.
type ScoreUpdate struct {
	UserID       string `json:"userId"`
	Score        int    `json:"score"`
	Correct      bool   `json:"correct"`
	PointsEarned int    `json:"pointsEarned"`
}

// submit scores an answer against the live question. Each player gets one
// submission per question; answers for any other index are rejected.
func (s *ArenaSession) submit(userID string, sub domain.AnswerSubmission, quiz domain.Quiz) (ScoreUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.ended {
		return ScoreUpdate{}, domain.ErrInvalidState
	}
	state, ok := s.scores[userID]
	if !ok {
		return ScoreUpdate{}, domain.ErrParticipantNotFound
	}
	if sub.QuestionIndex != s.current || sub.QuestionIndex >= len(quiz.Questions) {
		return ScoreUpdate{}, domain.ErrQuestionNotFound
	}
	if state.answered[sub.QuestionIndex] {
		return ScoreUpdate{}, domain.ErrInvalidState
	}
	state.answered[sub.QuestionIndex] = true

	correct, awarded := quiz.Questions[sub.QuestionIndex].Score(sub.Answer)
	if correct {
		state.score += awarded
		state.correct++
	}
	state.lastUpdated = s.now()

	update := ScoreUpdate{
		UserID:       userID,
		Score:        state.score,
		Correct:      correct,
		PointsEarned: awarded,
	}
	s.broadcastLocked(ArenaEvent{Type: EventScore, Payload: update, target: userID})
	s.broadcastLocked(ArenaEvent{Type: EventLeaderboard, Payload: s.leaderboardLocked()})
	return update, nil
}

// scoreSnapshot is one player's final tally, handed to the service for
// result persistence.
type scoreSnapshot struct {
	UserID      string
	DisplayName string
	Score       int
	Correct     int
}

// finish closes the run and returns the final tallies. Idempotent.
func (s *ArenaSession) finish() []scoreSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil
	}
	s.ended = true
	s.started = false
	close(s.stop)

	snapshots := make([]scoreSnapshot, 0, len(s.scores))
	for userID, state := range s.scores {
		snapshots = append(snapshots, scoreSnapshot{
			UserID:      userID,
			DisplayName: state.displayName,
			Score:       state.score,
			Correct:     state.correct,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].Score != snapshots[j].Score {
			return snapshots[i].Score > snapshots[j].Score
		}
		return snapshots[i].DisplayName < snapshots[j].DisplayName
	})
	return snapshots
}

func (s *ArenaSession) elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return s.now().Sub(s.startedAt)
}

func (s *ArenaSession) stopped() <-chan struct{} {
	return s.stop
}

func (s *ArenaSession) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players) == 0
}

// IsEmpty reports whether the lobby has no connected players.
func (s *ArenaSession) IsEmpty() bool {
	return s.isEmpty()
}

func (s *ArenaSession) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *ArenaSession) subscribe(userID string) (<-chan ArenaEvent, func()) {
	ch := make(chan ArenaEvent, 16)

	s.mu.Lock()
	s.subscribers[ch] = userID
	initial := ArenaEvent{Type: EventPlayerList, Payload: s.playerListLocked()}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *ArenaSession) broadcast(ev ArenaEvent) {
	s.mu.Lock()
	s.broadcastLocked(ev)
	s.mu.Unlock()
}

func (s *ArenaSession) broadcastLocked(ev ArenaEvent) {
	for ch, userID := range s.subscribers {
		if ev.target != "" && ev.target != userID {
			continue
		}
		select {
		case ch <- ev:
		default:
			// Drop the oldest update rather than letting a slow client
			// block the broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *ArenaSession) playerListLocked() []PlayerRef {
	players := make([]PlayerRef, 0, len(s.players))
	for userID, name := range s.players {
		players = append(players, PlayerRef{UserID: userID, DisplayName: name})
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].DisplayName < players[j].DisplayName
	})
	return players
}

// leaderboard returns the current top-10 standings.
func (s *ArenaSession) leaderboard() domain.Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

func (s *ArenaSession) leaderboardLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(s.scores))
	for userID, state := range s.scores {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      userID,
			DisplayName: state.displayName,
			Score:       state.score,
		})
	}

	// Score desc, tie-break by who reached the score earlier, then name.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		si := s.scores[entries[i].UserID]
		sj := s.scores[entries[j].UserID]
		if si != nil && sj != nil && !si.lastUpdated.Equal(sj.lastUpdated) {
			return si.lastUpdated.Before(sj.lastUpdated)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	if len(entries) > 10 {
		entries = entries[:10]
	}
	return domain.Leaderboard{
		QuizID:    s.quizID,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}
