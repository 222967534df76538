package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrInvalidEvent = errors.New("invalid event")
)

const (
	tagLobby       = "Lobby"
	tagQuestion    = "Question"
	tagRanking     = "Ranking"
	tagFinished    = "Finished"
	tagMultiChoice = "MultiChoice"
	tagMultiOption = "MultiOption"
	tagOpen        = "Open"
)

// DecodeServerEvent decodes a pushed payload. Tags are matched in the order
// Lobby, Question, Ranking, Finished; a payload carrying several tags decodes
// to the first one present.
func DecodeServerEvent(payload []byte) (ServerEvent, error) {
	var sentinel string
	if err := json.Unmarshal(payload, &sentinel); err == nil {
		if sentinel == tagFinished {
			return Finished{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, payload)
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(payload, &tagged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if raw, ok := lookup(tagged, tagLobby); ok {
		var l Lobby
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("%w: lobby: %v", ErrInvalidEvent, err)
		}
		if l.Users == nil {
			l.Users = []string{}
		}
		return l, nil
	}

	if raw, ok := lookup(tagged, tagQuestion); ok {
		return decodeQuestion(raw)
	}

	if raw, ok := lookup(tagged, tagRanking); ok {
		var r Ranking
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("%w: ranking: %v", ErrInvalidEvent, err)
		}
		return r, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, payload)
}

func decodeQuestion(raw json.RawMessage) (Question, error) {
	var wire struct {
		ID           int             `json:"id"`
		Total        int             `json:"total"`
		Title        string          `json:"title"`
		Image        *string         `json:"image"`
		QuestionType json.RawMessage `json:"question_type"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Question{}, fmt.Errorf("%w: question: %v", ErrInvalidEvent, err)
	}

	if wire.Total < 1 || wire.ID < 0 || wire.ID >= wire.Total {
		return Question{}, fmt.Errorf("%w: question %q: id=%d total=%d", ErrInvalidEvent, wire.Title, wire.ID, wire.Total)
	}

	q := Question{
		ID:    wire.ID,
		Total: wire.Total,
		Title: wire.Title,
		Type:  decodeQuestionType(wire.QuestionType),
	}
	if wire.Image != nil {
		q.Image = *wire.Image
	}

	return q, nil
}

func decodeQuestionType(raw json.RawMessage) QuestionType {
	var sentinel string
	if err := json.Unmarshal(raw, &sentinel); err == nil {
		if sentinel == tagOpen {
			return Open{}
		}
		return UnknownQuestionType{Raw: raw}
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return UnknownQuestionType{Raw: raw}
	}

	if opts, ok := lookup(tagged, tagMultiChoice); ok {
		var options []string
		if err := json.Unmarshal(opts, &options); err == nil {
			return MultiChoice{Options: options}
		}
	}

	if opts, ok := lookup(tagged, tagMultiOption); ok {
		var options []string
		if err := json.Unmarshal(opts, &options); err == nil {
			return MultiOption{Options: options}
		}
	}

	return UnknownQuestionType{Raw: raw}
}

// lookup treats a tag with a null value as absent.
func lookup(tagged map[string]json.RawMessage, tag string) (json.RawMessage, bool) {
	raw, ok := tagged[tag]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}

	return raw, true
}
