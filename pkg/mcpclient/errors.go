package mcpclient

import "fmt"

// ConnectionError reports a failed connect or handshake.
type ConnectionError struct {
	Transport string
	Endpoint  string
	Err       error
}

func (e *ConnectionError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("mcpclient: %s connection failed: %v", e.Transport, e.Err)
	}
	return fmt.Sprintf("mcpclient: %s connection to %s failed: %v", e.Transport, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotInitializedError is returned by Invoke when the session is not ready.
type NotInitializedError struct {
	State State
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("mcpclient: session not initialized (state %s)", e.State)
}

// ToolInvocationError reports a tool call that failed, either because the
// server flagged the result as an error or because the transport broke
// mid-call.
type ToolInvocationError struct {
	Tool    string
	Message string
	// Code is a machine-readable code when the server supplied one.
	Code string
	Err  error
}

func (e *ToolInvocationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool %s failed [%s]: %s", e.Tool, e.Code, e.Message)
	}
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }
