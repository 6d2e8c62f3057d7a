package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/forge-playwright/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("mcpclient")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize mcpclient logger, using stderr fallback: %v", err)
	}
}

// Option configures a Client.
type Option func(*Client)

// WithCallTimeout bounds every Invoke. Zero leaves the caller's context as
// the only deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.callTimeout = d
	}
}

// Client owns a single session to an automation server.
//
// mu orders the lifecycle: Invoke holds the read lock for the whole call,
// Initialize and Close hold the write lock. An Invoke that arrives while
// Close is running waits for it and then fails with NotInitializedError.
type Client struct {
	dialer      Dialer
	callTimeout time.Duration

	mu sync.RWMutex

	// infoMu guards state and conn for snapshots taken while a lifecycle
	// transition holds mu.
	infoMu sync.Mutex
	state  State
	conn   Conn
}

// New creates an uninitialized client that connects through d.
func New(d Dialer, opts ...Option) *Client {
	c := &Client{dialer: d, state: StateUninitialized}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize connects and completes the handshake. It is a no-op when the
// session is already ready. On failure the previous state is restored and a
// *ConnectionError is returned.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, _ := c.snapshot()
	if prev == StateReady {
		return nil
	}

	c.setState(StateConnecting, nil)
	debugLog.Infof("connecting via %s to %s", c.dialer.Transport(), c.dialer.Endpoint())

	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		c.setState(prev, nil)
		debugLog.Errorf("connect via %s failed: %v", c.dialer.Transport(), err)
		return &ConnectionError{Transport: c.dialer.Transport(), Endpoint: c.dialer.Endpoint(), Err: err}
	}

	c.setState(StateReady, conn)
	debugLog.Infof("session %q ready", conn.ID())
	return nil
}

// Invoke calls a remote tool once. It never retries: a failed call is
// reported as *ToolInvocationError and left to the caller.
func (c *Client) Invoke(ctx context.Context, tool string, args map[string]any) (*Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, conn := c.snapshot()
	if state != StateReady || conn == nil {
		return nil, &NotInitializedError{State: state}
	}

	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	debugLog.Debugf("invoke %s", tool)
	res, err := conn.CallTool(ctx, tool, args)
	if err != nil {
		var tie *ToolInvocationError
		if !errors.As(err, &tie) {
			err = &ToolInvocationError{Tool: tool, Message: err.Error(), Err: err}
		}
		debugLog.Warnf("invoke %s failed: %v", tool, err)
		return nil, err
	}
	return res, nil
}

// Close ends the session. The client is closed and its local resources are
// released whether or not the remote side acknowledged; a termination error
// is logged and returned afterwards. Closing a closed or never-initialized
// client is a no-op.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, conn := c.snapshot()
	if state == StateClosed {
		return nil
	}
	c.setState(StateClosed, nil)
	if conn == nil {
		return nil
	}

	id := conn.ID()
	if err := conn.Close(ctx); err != nil {
		debugLog.Warnf("session %q terminated with error: %v", id, err)
		return fmt.Errorf("mcpclient: close session %q: %w", id, err)
	}
	debugLog.Infof("session %q closed", id)
	return nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	state, _ := c.snapshot()
	return state
}

// Session returns a snapshot of the session.
func (c *Client) Session() SessionInfo {
	state, conn := c.snapshot()
	info := SessionInfo{State: state}
	if conn != nil {
		info.ID = conn.ID()
		if r, ok := conn.(resumable); ok {
			info.ResumptionToken = r.ResumptionToken()
		}
	}
	return info
}

// Transport names the wire mechanism the client was built with.
func (c *Client) Transport() string {
	return c.dialer.Transport()
}

func (c *Client) snapshot() (State, Conn) {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	return c.state, c.conn
}

func (c *Client) setState(state State, conn Conn) {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	c.state = state
	c.conn = conn
}
