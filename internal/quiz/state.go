// Package quiz holds the intake questionnaire state machine: the reducer that
// drives progression, rejection and completion, and the initializer that
// reconciles persisted snapshots with the canonical question set.
//
// Every function here is pure. Slices held by a QuizState are never mutated in
// place, so states can be shared between goroutines once produced.
package quiz

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"intake-backend/internal/models"
)

//go:embed quiz_data.json
var fallbackJSON []byte

// FallbackData returns a fresh copy of the bundled questionnaire.
func FallbackData() models.QuizData {
	data, err := ParseQuizData(fallbackJSON)
	if err != nil {
		panic(fmt.Sprintf("bundled quiz data is invalid: %v", err))
	}
	return data
}

// ParseQuizData decodes a questionnaire document.
func ParseQuizData(raw []byte) (models.QuizData, error) {
	var data models.QuizData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.QuizData{}, fmt.Errorf("failed to parse quiz data: %w", err)
	}
	if data.Questions == nil {
		return models.QuizData{}, fmt.Errorf("quiz data has no questions field")
	}
	return data, nil
}

// DefaultState returns the canonical starting state for the given questions.
// A nil question set falls back to the bundled questionnaire.
func DefaultState(questions []models.Question) models.QuizState {
	if questions == nil {
		questions = FallbackData().Questions
	}
	return models.QuizState{
		Questions:            questions,
		CurrentQuestionIndex: 0,
		Answers:              []models.Answer{},
	}
}

// Progress counts answered questions.
func Progress(state models.QuizState) models.Progress {
	return models.Progress{Answered: len(state.Answers), Total: len(state.Questions)}
}

// FindAnswer returns the answer recorded for questionIndex.
func FindAnswer(state models.QuizState, questionIndex int) (models.Answer, bool) {
	for _, answer := range state.Answers {
		if answer.QuestionIndex == questionIndex {
			return answer, true
		}
	}
	return models.Answer{}, false
}

// CurrentQuestion returns the question under the cursor, if in range.
func CurrentQuestion(state models.QuizState) (models.Question, bool) {
	idx := state.CurrentQuestionIndex
	if idx < 0 || idx >= len(state.Questions) {
		return models.Question{}, false
	}
	return state.Questions[idx], true
}

func lastIndex(state models.QuizState) int {
	return len(state.Questions) - 1
}

// CloneState returns a copy of state that shares no slices or pointers with it.
func CloneState(state models.QuizState) models.QuizState {
	out := state
	if state.Questions != nil {
		out.Questions = make([]models.Question, len(state.Questions))
		for i, q := range state.Questions {
			q.Options = append([]models.Option(nil), q.Options...)
			out.Questions[i] = q
		}
	}
	if state.Answers != nil {
		out.Answers = make([]models.Answer, len(state.Answers))
		for i, a := range state.Answers {
			if a.SelectedOption != nil {
				opt := *a.SelectedOption
				a.SelectedOption = &opt
			}
			out.Answers[i] = a
		}
	}
	return out
}
