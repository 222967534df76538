package answer

import (
	stderrors "errors"
	"fmt"

	"github.com/victornm/equiz-client/internal/domain"
)

var (
	ErrUnknownQuestionType = stderrors.New("unknown question type")
	ErrNoSuchControl       = stderrors.New("no such control on this question")
)

// Form is the input surface built for one question.
type Form interface {
	// Question is the title of the question the form answers.
	Question() string
	// Answer returns the answer to submit, or false when nothing submittable is entered.
	Answer() (domain.AnswerValue, bool)
}

// NewForm builds the form matching the question type.
func NewForm(q domain.Question) (Form, error) {
	switch t := q.Type.(type) {
	case domain.MultiChoice:
		return &ChoiceForm{title: q.Title, options: t.Options, selected: -1}, nil
	case domain.MultiOption:
		return &OptionForm{title: q.Title, options: t.Options, toggled: make([]bool, len(t.Options))}, nil
	case domain.Open:
		return &OpenForm{title: q.Title}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownQuestionType, q.Type)
	}
}

// ChoiceForm holds one exclusive choice per option.
type ChoiceForm struct {
	title    string
	options  []string
	selected int
}

func (f *ChoiceForm) Question() string  { return f.title }
func (f *ChoiceForm) Options() []string { return f.options }

// Choose selects option i and deselects any other.
func (f *ChoiceForm) Choose(i int) error {
	if i < 0 || i >= len(f.options) {
		return fmt.Errorf("%w: option %d of %d", ErrNoSuchControl, i, len(f.options))
	}

	f.selected = i
	return nil
}

func (f *ChoiceForm) Selected() (int, bool) {
	return f.selected, f.selected >= 0
}

func (f *ChoiceForm) Answer() (domain.AnswerValue, bool) {
	i, ok := f.Selected()
	if !ok {
		return nil, false
	}

	return domain.MultiChoiceAnswer(i), true
}

// OptionForm holds one independent toggle per option.
type OptionForm struct {
	title   string
	options []string
	toggled []bool
}

func (f *OptionForm) Question() string  { return f.title }
func (f *OptionForm) Options() []string { return f.options }

func (f *OptionForm) Toggle(i int) error {
	if i < 0 || i >= len(f.options) {
		return fmt.Errorf("%w: option %d of %d", ErrNoSuchControl, i, len(f.options))
	}

	f.toggled[i] = !f.toggled[i]
	return nil
}

func (f *OptionForm) Toggled(i int) bool {
	return i >= 0 && i < len(f.toggled) && f.toggled[i]
}

func (f *OptionForm) Answer() (domain.AnswerValue, bool) {
	var indices domain.MultiOptionAnswer
	for i, on := range f.toggled {
		if on {
			indices = append(indices, i)
		}
	}

	if len(indices) == 0 {
		return nil, false
	}

	return indices, true
}

// OpenForm holds one free text input keyed by the question title.
type OpenForm struct {
	title string
	text  string
}

func (f *OpenForm) Question() string { return f.title }
func (f *OpenForm) Key() string      { return f.title }
func (f *OpenForm) Text() string     { return f.text }

func (f *OpenForm) Write(text string) {
	f.text = text
}

func (f *OpenForm) Answer() (domain.AnswerValue, bool) {
	if f.text == "" {
		return nil, false
	}

	return domain.OpenAnswer(f.text), true
}
