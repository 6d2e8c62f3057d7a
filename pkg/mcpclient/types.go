package mcpclient

import (
	"context"
	"strings"
)

// State is the lifecycle state of a session.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionInfo is a snapshot of the client's session.
type SessionInfo struct {
	// ID is assigned by the server; empty until ready.
	ID    string
	State State
	// ResumptionToken is the id of the last stream event received, if
	// the transport streams events with ids.
	ResumptionToken string
}

// Image is binary image content returned by a tool.
type Image struct {
	Data     []byte
	MIMEType string
}

// Result is the normalized payload of a successful tool call.
type Result struct {
	// Text holds all text content blocks joined by newlines.
	Text string
	// Images holds image content blocks in order.
	Images []Image
	// Structured holds structured content, if the server sent any.
	Structured any
}

// Invoker calls a named remote tool.
type Invoker interface {
	Invoke(ctx context.Context, tool string, args map[string]any) (*Result, error)
}

func joinText(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
