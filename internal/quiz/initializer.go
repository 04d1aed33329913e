package quiz

import (
	"bytes"
	"encoding/json"

	"intake-backend/internal/models"
)

// Initialize reconciles freshly fetched questions with a persisted snapshot.
// Both arguments are optional. The merge is lenient; answer integrity is
// checked later by NeedsReset when the quiz is opened.
//
// The returned bool is false when the snapshot carried answers that are not a
// list, or when a completed snapshot had answer entries that could not be
// decoded. The caller must then reset on open. Undecodable entries of an
// unfinished quiz are dropped and the rest of the progress is kept.
func Initialize(fresh *models.QuizData, snapshot *models.Snapshot) (models.QuizState, bool) {
	var freshQuestions []models.Question
	if fresh != nil {
		freshQuestions = fresh.Questions
	}

	if snapshot == nil {
		state := DefaultState(freshQuestions)
		state.IsOpen = false
		return state, true
	}

	questions := freshQuestions
	if questions == nil {
		questions = snapshot.Questions
	}
	state := DefaultState(questions)

	index := 0
	if snapshot.CurrentQuestionIndex != nil {
		index = *snapshot.CurrentQuestionIndex
	}
	state.CurrentQuestionIndex = clampIndex(index, len(state.Questions))

	answers, dropped, intact := DecodeAnswers(snapshot.Answers)
	if dropped > 0 && snapshot.IsCompleted {
		intact = false
	}
	state.Answers = answers
	state.IsCompleted = snapshot.IsCompleted
	state.IsRejected = snapshot.IsRejected
	state.IsOpen = false
	return state, intact
}

// DecodeAnswers decodes a persisted answer list. Absent or null input is an
// empty list. Anything that is not a JSON array reports false. Elements that
// fail to decode are skipped and counted in dropped.
func DecodeAnswers(raw json.RawMessage) (answers []models.Answer, dropped int, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []models.Answer{}, 0, true
	}
	if raw[0] != '[' {
		return []models.Answer{}, 0, false
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return []models.Answer{}, 0, false
	}
	answers = make([]models.Answer, 0, len(elements))
	for _, element := range elements {
		var answer models.Answer
		if err := json.Unmarshal(element, &answer); err != nil {
			dropped++
			continue
		}
		answers = append(answers, answer)
	}
	return answers, dropped, true
}

// EncodeSnapshot builds the durable subset of state.
func EncodeSnapshot(state models.QuizState) (models.Snapshot, error) {
	answers := state.Answers
	if answers == nil {
		answers = []models.Answer{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return models.Snapshot{}, err
	}
	index := state.CurrentQuestionIndex
	return models.Snapshot{
		Questions:            state.Questions,
		CurrentQuestionIndex: &index,
		Answers:              raw,
		IsCompleted:          state.IsCompleted,
		IsRejected:           state.IsRejected,
	}, nil
}

func clampIndex(index, count int) int {
	if count == 0 || index < 0 {
		return 0
	}
	return min(index, count-1)
}
