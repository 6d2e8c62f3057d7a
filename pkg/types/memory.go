package types

import "time"

// Content is the payload of a message exchanged with the host agent
// framework, and the shape handed to action callbacks.
type Content struct {
	// Text is the human-readable part shown in the conversation.
	Text string `json:"text,omitempty"`

	// Actions lists action names the message triggered, if any.
	Actions []string `json:"actions,omitempty"`

	// Content holds structured data for machines (results, error fields).
	Content map[string]any `json:"content,omitempty"`
}

// Memory is one stored conversation message.
type Memory struct {
	// ID uniquely identifies the message.
	ID string

	// EntityID identifies who sent the message.
	EntityID string

	// RoomID identifies the conversation the message belongs to.
	RoomID string

	// Content is the message body.
	Content Content

	// CreatedAt is when the message was stored.
	CreatedAt time.Time
}

// State is the conversation state the host composes before dispatching an
// action. Content carries the structured parameters the host extracted for
// the action (for example {"url": "https://example.com"}).
type State struct {
	// Text is the composed context for the current turn.
	Text string

	// Values holds arbitrary host values.
	Values map[string]any

	// Content holds the extracted action parameters.
	Content map[string]any
}

// NewTextMemory creates a memory holding plain text.
func NewTextMemory(entityID, text string) *Memory {
	return &Memory{
		EntityID:  entityID,
		Content:   Content{Text: text},
		CreatedAt: time.Now(),
	}
}

// NewState creates a state carrying the given action parameters.
func NewState(content map[string]any) *State {
	if content == nil {
		content = make(map[string]any)
	}
	return &State{
		Values:  make(map[string]any),
		Content: content,
	}
}

// WithValue sets a host value and returns the state for chaining.
func (s *State) WithValue(key string, value any) *State {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = value
	return s
}
