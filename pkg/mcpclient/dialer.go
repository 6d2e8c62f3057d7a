package mcpclient

import "context"

// Conn is one live session to an automation server.
type Conn interface {
	// ID returns the server-assigned session id.
	ID() string

	// CallTool invokes a tool once. Failures are returned as
	// *ToolInvocationError or as a transport error.
	CallTool(ctx context.Context, tool string, args map[string]any) (*Result, error)

	// Close terminates the session remotely and releases local resources.
	// Local resources are released even when an error is returned.
	Close(ctx context.Context) error
}

// Dialer opens sessions for one wire mechanism.
type Dialer interface {
	// Dial connects and completes the handshake.
	Dial(ctx context.Context) (Conn, error)

	// Transport names the wire mechanism, for errors and logs.
	Transport() string

	// Endpoint describes where Dial connects to.
	Endpoint() string
}

// resumable is implemented by connections that track a stream resumption
// cursor.
type resumable interface {
	ResumptionToken() string
}
