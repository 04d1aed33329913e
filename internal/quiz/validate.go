package quiz

import (
	"intake-backend/internal/models"
)

// ValidAnswer reports whether answer still points at an existing option of
// its question.
func ValidAnswer(questions []models.Question, answer models.Answer) bool {
	if answer.QuestionIndex < 0 || answer.QuestionIndex >= len(questions) {
		return false
	}
	if answer.SelectedOption == nil || !answer.SelectedOption.Value.IsDefined() {
		return false
	}
	for _, option := range questions[answer.QuestionIndex].Options {
		if option.Value.Equal(answer.SelectedOption.Value) {
			return true
		}
	}
	return false
}

// ValidateAnswers checks every answer against the current question set.
func ValidateAnswers(questions []models.Question, answers []models.Answer) bool {
	for _, answer := range answers {
		if !ValidAnswer(questions, answer) {
			return false
		}
	}
	return true
}

// NeedsReset is the guard run when the quiz is opened. Question data may have
// changed since the state was saved, so a completed quiz whose answers no
// longer line up with the questions is discarded. answersIntact is the flag
// returned by Initialize.
func NeedsReset(state models.QuizState, answersIntact bool) bool {
	if !answersIntact {
		return true
	}
	if !state.IsCompleted {
		return false
	}
	if len(state.Answers) == 0 && len(state.Questions) > 0 {
		return true
	}
	return !ValidateAnswers(state.Questions, state.Answers)
}
