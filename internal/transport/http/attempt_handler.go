package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"flux-quiz-service/internal/app"
	"flux-quiz-service/internal/domain"
)

// AttemptHandler exposes the solo attempt flow and the standings queries
// over JSON HTTP.
type AttemptHandler struct {
	attempts *app.AttemptService
	results  app.ResultStore
}

func NewAttemptHandler(attempts *app.AttemptService, results app.ResultStore) *AttemptHandler {
	return &AttemptHandler{attempts: attempts, results: results}
}

// Register mounts the attempt routes on the mux.
func (h *AttemptHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /attempts", h.startAttempt)
	mux.HandleFunc("GET /attempts/{id}", h.getAttempt)
	mux.HandleFunc("POST /attempts/{id}/answer", h.submitAnswer)
	mux.HandleFunc("GET /attempts/{id}/result", h.getResult)
	mux.HandleFunc("GET /quizzes/{id}/standings", h.getStandings)
	mux.HandleFunc("GET /leaderboard", h.getLeaderboard)
}

type startAttemptRequest struct {
	QuizID      string `json:"quizId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

func (h *AttemptHandler) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuizID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "quizId and userId are required")
		return
	}

	snap, err := h.attempts.Start(r.Context(), req.QuizID, req.UserID, req.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *AttemptHandler) getAttempt(w http.ResponseWriter, r *http.Request) {
	snap, err := h.attempts.Snapshot(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *AttemptHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var sub domain.AnswerSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.attempts.Submit(r.Context(), r.PathValue("id"), sub)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *AttemptHandler) getResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.attempts.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AttemptHandler) getStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.results.QuizStandings(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if standings == nil {
		standings = []domain.Result{}
	}
	writeJSON(w, http.StatusOK, standings)
}

func (h *AttemptHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.results.TopPlayers(r.Context(), 10)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrInvalidQuiz):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotMaster):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
