package types

import "context"

// Runtime is the slice of the host agent runtime that actions may consult.
// Services are injected into actions at construction, never looked up here.
type Runtime interface {
	// AgentID identifies the running agent.
	AgentID() string

	// Setting returns a host setting by key.
	Setting(key string) (string, bool)
}

// HandlerCallback receives the caller-visible outcome of an action. The
// returned error is the host's delivery error and does not change the
// action's result.
type HandlerCallback func(Content) error

// Handler runs an action. It reports success as a bool and never panics or
// returns errors to the host; failures are delivered through cb.
type Handler func(ctx context.Context, rt Runtime, msg *Memory, state *State, opts map[string]any, cb HandlerCallback) bool

// Validator decides whether an action applies to a message.
type Validator func(ctx context.Context, rt Runtime, msg *Memory, state *State) bool

// ActionExample is one turn of an example conversation for an action.
type ActionExample struct {
	Name    string
	Content Content
}

// Action describes an action the host can dispatch.
type Action struct {
	// Name is the dispatch key (e.g. "NAVIGATE").
	Name string

	// Similes are alternative names the host may match.
	Similes []string

	// Description tells the host model what the action does.
	Description string

	// Examples are example conversations, one slice per conversation.
	Examples [][]ActionExample

	Validate Validator
	Handler  Handler
}

// ServiceType identifies a service kind.
type ServiceType string

// Service is a long-lived component whose lifecycle the host manages.
type Service interface {
	// ServiceType returns the service kind.
	ServiceType() ServiceType

	// Start acquires the service's resources.
	Start(ctx context.Context) error

	// Stop releases the service's resources.
	Stop(ctx context.Context) error
}

// Plugin bundles actions and services for registration with a host.
type Plugin struct {
	Name        string
	Description string
	Actions     []Action
	Services    []Service
}

// Action returns the action registered under name or one of its similes.
func (p *Plugin) Action(name string) (Action, bool) {
	for _, a := range p.Actions {
		if a.Name == name {
			return a, true
		}
		for _, s := range a.Similes {
			if s == name {
				return a, true
			}
		}
	}
	return Action{}, false
}

// StaticRuntime is a Runtime backed by a fixed settings map.
type StaticRuntime struct {
	ID       string
	Settings map[string]string
}

// AgentID returns the configured agent id.
func (r StaticRuntime) AgentID() string { return r.ID }

// Setting returns a value from Settings.
func (r StaticRuntime) Setting(key string) (string, bool) {
	v, ok := r.Settings[key]
	return v, ok
}
