package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type valueKind uint8

const (
	valueUndefined valueKind = iota
	valueString
	valueBool
)

// OptionValue is the value carried by a quiz option: either a string or a bool.
// The zero value is undefined and marshals to null.
type OptionValue struct {
	kind valueKind
	str  string
	b    bool
}

func StringValue(s string) OptionValue { return OptionValue{kind: valueString, str: s} }

func BoolValue(b bool) OptionValue { return OptionValue{kind: valueBool, b: b} }

// IsDefined reports whether the value was set.
func (v OptionValue) IsDefined() bool { return v.kind != valueUndefined }

// Equal compares kind and value, so "true" and true are different values.
func (v OptionValue) Equal(other OptionValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case valueString:
		return v.str == other.str
	case valueBool:
		return v.b == other.b
	default:
		return true
	}
}

// Bool returns the boolean value and whether the value is a bool.
func (v OptionValue) Bool() (bool, bool) { return v.b, v.kind == valueBool }

func (v OptionValue) String() string {
	switch v.kind {
	case valueString:
		return v.str
	case valueBool:
		return strconv.FormatBool(v.b)
	default:
		return "<undefined>"
	}
}

func (v OptionValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueString:
		return json.Marshal(v.str)
	case valueBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

func (v *OptionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = OptionValue{}
	case bytes.Equal(data, []byte("true")):
		*v = BoolValue(true)
	case bytes.Equal(data, []byte("false")):
		*v = BoolValue(false)
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	default:
		return fmt.Errorf("option value must be a string or a boolean, got %s", data)
	}
	return nil
}

// Option is one answer choice. Display may embed an image tag; that only
// matters to renderers.
type Option struct {
	Display     string      `json:"display"`
	Value       OptionValue `json:"value"`
	IsRejection bool        `json:"isRejection"`
}

// Question is identified only by its position in the questionnaire.
// Inserting or reordering questions invalidates every persisted answer.
type Question struct {
	Text    string   `json:"question"`
	Kind    string   `json:"type"` // "ChoiceType"
	Options []Option `json:"options"`
}

type Answer struct {
	QuestionIndex  int         `json:"questionIndex"`
	SelectedValue  OptionValue `json:"selectedValue"`
	SelectedOption *Option     `json:"selectedOption"`
}

type QuizState struct {
	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Answers              []Answer   `json:"answers"`
	IsOpen               bool       `json:"isOpen"`
	IsCompleted          bool       `json:"isCompleted"`
	IsRejected           bool       `json:"isRejected"`
}

// QuizData is the questionnaire document served by the remote source.
type QuizData struct {
	Questions []Question `json:"questions"`
}

// Snapshot is the durable subset of QuizState. IsOpen is never persisted.
// Answers stays raw so a snapshot with a malformed answer list can still be
// loaded and rejected later instead of failing the whole decode.
type Snapshot struct {
	Questions            []Question      `json:"questions"`
	CurrentQuestionIndex *int            `json:"currentQuestionIndex,omitempty"`
	Answers              json.RawMessage `json:"answers,omitempty"`
	IsCompleted          bool            `json:"isCompleted"`
	IsRejected           bool            `json:"isRejected"`
}

type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

type AnswerRequest struct {
	QuestionIndex *int `json:"question_index"`
	OptionIndex   *int `json:"option_index"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token,omitempty"`
	State     QuizState `json:"state"`
	Progress  Progress  `json:"progress"`
}
