package domain

import "strings"

// Matches reports whether the given answer satisfies the question's key.
// True/false answers compare case-insensitively, MCQ answers must name the
// correct option ID exactly, and short answers compare lowercased.
func (q Question) Matches(answer string) bool {
	key := strings.TrimSpace(q.Answer)
	got := strings.TrimSpace(answer)
	switch q.Type {
	case QuestionTrueFalse:
		return strings.EqualFold(key, got)
	case QuestionShort:
		return strings.ToLower(got) == strings.ToLower(key)
	default: // mcq
		return key == got && key != ""
	}
}

// Score returns the points awarded for the answer, zero when it misses.
func (q Question) Score(answer string) (correct bool, points int) {
	if !q.Matches(answer) {
		return false, 0
	}
	return true, q.PointsOrDefault()
}
