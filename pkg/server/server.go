// Package server is a browser automation server. It serves the browser
// tools over MCP (streamable HTTP, SSE or stdio) and over the HTTP session
// API described in pkg/restapi.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/entrhq/forge-playwright/pkg/browser"
	"github.com/entrhq/forge-playwright/pkg/logging"
	"github.com/entrhq/forge-playwright/pkg/restapi"
	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("server")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize server logger, using stderr fallback: %v", err)
	}
}

const (
	defaultName             = "forge-playwright"
	defaultVersion          = "0.1.0"
	defaultMaxContentLength = 100000
)

// Options configures a Server.
type Options struct {
	// Name and Version identify the server in the MCP handshake.
	Name    string
	Version string

	// MaxContentLength caps get-page-content output.
	MaxContentLength int
}

// Server owns the browser drivers behind the tools. MCP clients share one
// driver; every session of the HTTP session API gets its own.
type Server struct {
	factory browser.Factory
	shared  browser.Driver
	tools   map[string]Tool
	names   []string
	mcp     *mcp.Server
	router  *mux.Router

	mu       sync.Mutex
	sessions map[string]browser.Driver
	closed   bool
}

// New creates a server whose drivers come from factory.
func New(factory browser.Factory, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = defaultName
	}
	if opts.Version == "" {
		opts.Version = defaultVersion
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = defaultMaxContentLength
	}

	s := &Server{
		factory:  factory,
		shared:   factory(),
		tools:    make(map[string]Tool),
		sessions: make(map[string]browser.Driver),
	}
	for _, t := range tools(opts.MaxContentLength) {
		s.tools[t.Name] = t
		s.names = append(s.names, t.Name)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil)
	for _, name := range s.names {
		s.registerMCPTool(s.tools[name])
	}

	s.router = s.routes()
	return s
}

// ToolNames returns the names of the served tools in registration order.
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.names...)
}

// MCPServer returns the MCP server backed by the shared driver.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Handler returns the HTTP handler serving /mcp, /sse, the session API and
// /healthz.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RunStdio serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	getServer := func(*http.Request) *mcp.Server { return s.mcp }
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(getServer, nil))
	r.Handle("/sse", mcp.NewSSEHandler(getServer, nil))

	r.HandleFunc(restapi.SessionsPath, s.createSession).Methods(http.MethodPost)
	r.HandleFunc(restapi.SessionsPath+"/{id}", s.deleteSession).Methods(http.MethodDelete)
	r.HandleFunc(restapi.SessionsPath+"/{id}/{tool}", s.callSessionTool).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	return r
}

// Call runs the named tool against d.
func (s *Server) Call(ctx context.Context, d browser.Driver, name string, args map[string]any) (*Output, error) {
	t, ok := s.tools[name]
	if !ok {
		return nil, &ToolError{Code: CodeUnknownTool, Message: fmt.Sprintf("unknown tool %q", name)}
	}
	if args == nil {
		args = map[string]any{}
	}

	out, err := t.run(ctx, d, args)
	if err != nil {
		debugLog.Warnf("tool %s failed: %v", name, err)
		return nil, asToolError(err)
	}
	debugLog.Debugf("tool %s ok", name)
	return out, nil
}

// Sessions returns the ids of open API sessions, sorted.
func (s *Server) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every driver. Calling Close more than once is a no-op.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	drivers := make([]browser.Driver, 0, len(s.sessions)+1)
	for id, d := range s.sessions {
		drivers = append(drivers, d)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	drivers = append(drivers, s.shared)
	var errs []error
	for _, d := range drivers {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
