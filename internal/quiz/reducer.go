package quiz

import (
	"intake-backend/internal/models"
)

// Action is the closed set of transitions accepted by Reduce.
type Action interface {
	isAction()
}

type OpenQuiz struct{}

type CloseQuiz struct{}

type AnswerQuestion struct {
	QuestionIndex int
	Option        models.Option
}

type NextQuestion struct{}

type PreviousQuestion struct{}

type ResetQuiz struct{}

func (OpenQuiz) isAction()         {}
func (CloseQuiz) isAction()        {}
func (AnswerQuestion) isAction()   {}
func (NextQuestion) isAction()     {}
func (PreviousQuestion) isAction() {}
func (ResetQuiz) isAction()        {}

// Reduce applies an action to the quiz state.
func Reduce(state models.QuizState, action Action) models.QuizState {
	switch a := action.(type) {
	case OpenQuiz:
		state.IsOpen = true
		return state
	case CloseQuiz:
		state.IsOpen = false
		return state
	case AnswerQuestion:
		return answerQuestion(state, a)
	case NextQuestion:
		if state.CurrentQuestionIndex < lastIndex(state) {
			state.CurrentQuestionIndex++
		}
		return state
	case PreviousQuestion:
		state.CurrentQuestionIndex = max(state.CurrentQuestionIndex-1, 0)
		return state
	case ResetQuiz:
		return DefaultState(state.Questions)
	default:
		return state
	}
}

// answerQuestion records the answer for exactly one index. Answers for other
// indices, including later ones, are kept as they are.
func answerQuestion(state models.QuizState, a AnswerQuestion) models.QuizState {
	if a.QuestionIndex < 0 || a.QuestionIndex > lastIndex(state) {
		return state
	}

	option := a.Option
	answers := make([]models.Answer, 0, len(state.Answers)+1)
	for _, answer := range state.Answers {
		if answer.QuestionIndex != a.QuestionIndex {
			answers = append(answers, answer)
		}
	}
	answers = append(answers, models.Answer{
		QuestionIndex:  a.QuestionIndex,
		SelectedValue:  option.Value,
		SelectedOption: &option,
	})

	state.Answers = answers
	state.IsRejected = hasRejection(answers)
	if state.IsRejected {
		state.IsCompleted = true
		return state
	}

	state.IsCompleted = allAnswered(state.Questions, answers)
	if a.QuestionIndex < lastIndex(state) {
		state.CurrentQuestionIndex = a.QuestionIndex + 1
	} else {
		state.CurrentQuestionIndex = lastIndex(state)
	}
	return state
}

func hasRejection(answers []models.Answer) bool {
	for _, answer := range answers {
		if answer.SelectedOption != nil && answer.SelectedOption.IsRejection {
			return true
		}
	}
	return false
}

func allAnswered(questions []models.Question, answers []models.Answer) bool {
	answered := make(map[int]struct{}, len(answers))
	for _, answer := range answers {
		answered[answer.QuestionIndex] = struct{}{}
	}
	for i := range questions {
		if _, ok := answered[i]; !ok {
			return false
		}
	}
	return true
}
