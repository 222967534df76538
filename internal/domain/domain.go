package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// UsernameKey is the name of the persisted slot holding the current username.
const UsernameKey = "Quiz_username"

// ServerEvent is one of Lobby, Question, Ranking or Finished.
type ServerEvent interface {
	serverEvent()
}

// Lobby lists the users waiting for the quiz to start.
type Lobby struct {
	Users []string `json:"users"`
}

// Question is the currently open question. Title is unique among open questions
// and is sent back as the correlation key of an answer.
type Question struct {
	ID    int
	Total int
	Title string
	// Image is an optional URL, empty when the question has no image.
	Image string
	Type  QuestionType
}

// Ranking keeps the server-given order; the position of an entry is its rank.
type Ranking struct {
	Scores   []Score         `json:"scores"`
	MaxScore decimal.Decimal `json:"max_score"`
}

// Score is one ranking entry, sent on the wire as [name, points] or [name, label, points].
type Score struct {
	Name   string
	Label  string
	Points decimal.Decimal
}

// Finished is sent when there are no more questions.
type Finished struct{}

func (Lobby) serverEvent()    {}
func (Question) serverEvent() {}
func (Ranking) serverEvent()  {}
func (Finished) serverEvent() {}

func (s *Score) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("score: %w", err)
	}

	var points json.RawMessage
	switch len(parts) {
	case 2:
		points = parts[1]
	case 3:
		if err := json.Unmarshal(parts[1], &s.Label); err != nil {
			return fmt.Errorf("score label: %w", err)
		}
		points = parts[2]
	default:
		return fmt.Errorf("score: expected 2 or 3 elements, got %d", len(parts))
	}

	if err := json.Unmarshal(parts[0], &s.Name); err != nil {
		return fmt.Errorf("score name: %w", err)
	}
	if err := json.Unmarshal(points, &s.Points); err != nil {
		return fmt.Errorf("score points: %w", err)
	}

	return nil
}

// QuestionType is one of MultiChoice, MultiOption, Open or UnknownQuestionType.
type QuestionType interface {
	questionType()
}

// MultiChoice accepts exactly one of the options.
type MultiChoice struct {
	Options []string
}

// MultiOption accepts any non-empty subset of the options.
type MultiOption struct {
	Options []string
}

// Open accepts free text.
type Open struct{}

// UnknownQuestionType keeps a question type this client cannot render.
type UnknownQuestionType struct {
	Raw json.RawMessage
}

func (MultiChoice) questionType()         {}
func (MultiOption) questionType()         {}
func (Open) questionType()                {}
func (UnknownQuestionType) questionType() {}

// Answer is submitted to the server for the question with the given title.
type Answer struct {
	User     string      `json:"user"`
	Question string      `json:"question"`
	Answer   AnswerValue `json:"answer"`
}

// AnswerValue is one of MultiChoiceAnswer, MultiOptionAnswer or OpenAnswer.
type AnswerValue interface {
	json.Marshaler
	answerValue()
}

// MultiChoiceAnswer is the 0-based index of the chosen option.
type MultiChoiceAnswer int

// MultiOptionAnswer holds the toggled option indices in display order.
type MultiOptionAnswer []int

// OpenAnswer is the free text answer.
type OpenAnswer string

func (MultiChoiceAnswer) answerValue() {}
func (MultiOptionAnswer) answerValue() {}
func (OpenAnswer) answerValue()        {}

func (a MultiChoiceAnswer) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{"MultiChoice": int(a)})
}

func (a MultiOptionAnswer) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]int{"MultiOption": []int(a)})
}

func (a OpenAnswer) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Open": string(a)})
}
