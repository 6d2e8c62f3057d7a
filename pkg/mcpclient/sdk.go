package mcpclient

import (
	"context"
	"net/http"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	clientName    = "forge-playwright"
	clientVersion = "0.1.0"
)

// HTTPOptions tunes the HTTP based SDK transports.
type HTTPOptions struct {
	// HTTPClient is copied and its transport wrapped; nil uses a private
	// clone of http.DefaultTransport.
	HTTPClient *http.Client

	// MaxRetries bounds stream reconnects on the streamable transport.
	// Zero keeps the SDK default; negative disables reconnects.
	MaxRetries int
}

// SDKDialer connects through a transport from the MCP Go SDK.
type SDKDialer struct {
	transport    string
	endpoint     string
	newTransport func() (mcp.Transport, *sessionObserver)
}

// NewStreamableDialer dials the streamable HTTP transport at endpoint
// (usually <server>/mcp).
func NewStreamableDialer(endpoint string, opts *HTTPOptions) *SDKDialer {
	if opts == nil {
		opts = &HTTPOptions{}
	}
	return &SDKDialer{
		transport: "streamable",
		endpoint:  endpoint,
		newTransport: func() (mcp.Transport, *sessionObserver) {
			hc, obs := observedClient(opts.HTTPClient)
			return &mcp.StreamableClientTransport{
				Endpoint:   endpoint,
				HTTPClient: hc,
				MaxRetries: opts.MaxRetries,
			}, obs
		},
	}
}

// NewSSEDialer dials the SSE transport at endpoint (usually <server>/sse).
func NewSSEDialer(endpoint string, opts *HTTPOptions) *SDKDialer {
	if opts == nil {
		opts = &HTTPOptions{}
	}
	return &SDKDialer{
		transport: "sse",
		endpoint:  endpoint,
		newTransport: func() (mcp.Transport, *sessionObserver) {
			hc, obs := observedClient(opts.HTTPClient)
			return &mcp.SSEClientTransport{
				Endpoint:   endpoint,
				HTTPClient: hc,
			}, obs
		},
	}
}

// NewCommandDialer starts the server as a subprocess on every Dial and
// talks to it over stdio. env entries use KEY=VALUE form; nil inherits the
// parent environment.
func NewCommandDialer(command string, args []string, env []string) *SDKDialer {
	return &SDKDialer{
		transport: "stdio",
		endpoint:  strings.TrimSpace(command + " " + strings.Join(args, " ")),
		newTransport: func() (mcp.Transport, *sessionObserver) {
			cmd := exec.Command(command, args...) // nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command -- command comes from operator configuration
			if len(env) > 0 {
				cmd.Env = env
			}
			return &mcp.CommandTransport{Command: cmd}, nil
		},
	}
}

// NewTransportDialer wraps an arbitrary SDK transport factory, such as one
// side of mcp.NewInMemoryTransports.
func NewTransportDialer(name string, factory func() mcp.Transport) *SDKDialer {
	return &SDKDialer{
		transport: name,
		newTransport: func() (mcp.Transport, *sessionObserver) {
			return factory(), nil
		},
	}
}

// Transport names the wire mechanism.
func (d *SDKDialer) Transport() string { return d.transport }

// Endpoint returns the dial target.
func (d *SDKDialer) Endpoint() string { return d.endpoint }

// Dial connects and runs the MCP initialize handshake.
func (d *SDKDialer) Dial(ctx context.Context) (Conn, error) {
	transport, obs := d.newTransport()

	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		if obs != nil {
			obs.closeIdle()
		}
		return nil, err
	}

	debugLog.Debugf("%s session %q connected to %s", d.transport, session.ID(), d.endpoint)
	return &sdkConn{session: session, observer: obs}, nil
}

type sdkConn struct {
	session  *mcp.ClientSession
	observer *sessionObserver
}

func (c *sdkConn) ID() string {
	if id := c.session.ID(); id != "" {
		return id
	}
	if c.observer != nil {
		return c.observer.SessionID()
	}
	return ""
}

func (c *sdkConn) ResumptionToken() string {
	if c.observer == nil {
		return ""
	}
	return c.observer.ResumptionToken()
}

func (c *sdkConn) CallTool(ctx context.Context, tool string, args map[string]any) (*Result, error) {
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return nil, &ToolInvocationError{Tool: tool, Message: err.Error(), Err: err}
	}
	return normalizeResult(tool, res)
}

// Close ends the SDK session. The SDK call takes no context; ctx is unused.
func (c *sdkConn) Close(_ context.Context) error {
	err := c.session.Close()
	if c.observer != nil {
		c.observer.closeIdle()
	}
	return err
}

// normalizeResult converts an SDK result into a Result, or a
// ToolInvocationError when the server flagged it as failed.
func normalizeResult(tool string, res *mcp.CallToolResult) (*Result, error) {
	if res == nil {
		return nil, &ToolInvocationError{Tool: tool, Message: "empty response"}
	}

	var texts []string
	var images []Image
	for _, content := range res.Content {
		switch c := content.(type) {
		case *mcp.TextContent:
			texts = append(texts, c.Text)
		case *mcp.ImageContent:
			images = append(images, Image{Data: c.Data, MIMEType: c.MIMEType})
		}
	}

	if res.IsError {
		msg := joinText(texts)
		if msg == "" {
			msg = "remote tool reported an error"
		}
		return nil, &ToolInvocationError{Tool: tool, Message: msg, Code: errorCode(res.StructuredContent)}
	}

	return &Result{Text: joinText(texts), Images: images, Structured: res.StructuredContent}, nil
}

func errorCode(structured any) string {
	m, ok := structured.(map[string]any)
	if !ok {
		return ""
	}
	code, _ := m["code"].(string)
	return code
}
