package http

import (
	"encoding/json"
	"net/http"

	"flux-quiz-service/internal/app"
	"flux-quiz-service/internal/domain"
)

// QuizHandler exposes quiz management over JSON HTTP.
type QuizHandler struct {
	quizzes *app.QuizService
}

func NewQuizHandler(quizzes *app.QuizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// Register mounts the quiz management routes on the mux.
func (h *QuizHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("PUT /quizzes/{id}", h.updateQuiz)
	mux.HandleFunc("DELETE /quizzes/{id}", h.deleteQuiz)
}

func (h *QuizHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.quizzes.Create(r.Context(), quiz)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *QuizHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	quiz.ID = r.PathValue("id")

	if err := h.quizzes.Update(r.Context(), quiz); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.quizzes.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
