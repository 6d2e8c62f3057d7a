package mcpclient

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
)

const (
	headerSessionID   = "Mcp-Session-Id"
	headerLastEventID = "Last-Event-ID"

	// maxIDLine bounds the buffered prefix of an event stream line.
	maxIDLine = 256
)

// sessionObserver wraps an HTTP transport and records the MCP session id
// and the id of the last stream event received, which is the cursor a
// resumed stream continues from. It never alters traffic.
type sessionObserver struct {
	next http.RoundTripper

	mu          sync.Mutex
	sessionID   string
	lastEventID string
}

func newSessionObserver(next http.RoundTripper) *sessionObserver {
	if next == nil {
		// own the pool so closeIdle only affects this session
		next = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &sessionObserver{next: next}
}

func (o *sessionObserver) RoundTrip(req *http.Request) (*http.Response, error) {
	if id := req.Header.Get(headerLastEventID); id != "" {
		o.setLastEventID(id)
	}

	resp, err := o.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if id := resp.Header.Get(headerSessionID); id != "" {
		o.mu.Lock()
		o.sessionID = id
		o.mu.Unlock()
	}
	if strings.HasPrefix(strings.ToLower(resp.Header.Get("Content-Type")), "text/event-stream") {
		resp.Body = &eventStream{ReadCloser: resp.Body, obs: o}
	}
	return resp, nil
}

func (o *sessionObserver) setLastEventID(id string) {
	o.mu.Lock()
	o.lastEventID = id
	o.mu.Unlock()
}

// eventStream passes an SSE body through unchanged while recording the
// value of every "id:" field.
type eventStream struct {
	io.ReadCloser
	obs *sessionObserver

	line     []byte
	overflow bool
}

func (s *eventStream) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	s.scan(p[:n])
	return n, err
}

func (s *eventStream) scan(b []byte) {
	for len(b) > 0 {
		i := bytes.IndexAny(b, "\r\n")
		if i < 0 {
			s.buffer(b)
			return
		}
		s.buffer(b[:i])
		if !s.overflow {
			s.field(s.line)
		}
		s.line = s.line[:0]
		s.overflow = false
		b = b[i+1:]
	}
}

func (s *eventStream) buffer(b []byte) {
	if room := maxIDLine - len(s.line); len(b) > room {
		b = b[:room]
		s.overflow = true
	}
	s.line = append(s.line, b...)
}

func (s *eventStream) field(line []byte) {
	value, ok := bytes.CutPrefix(line, []byte("id:"))
	if !ok {
		return
	}
	value = bytes.TrimPrefix(value, []byte(" "))
	if len(value) == 0 || bytes.IndexByte(value, 0) >= 0 {
		return
	}
	s.obs.setLastEventID(string(value))
}

func (o *sessionObserver) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

func (o *sessionObserver) ResumptionToken() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastEventID
}

// closeIdle drops pooled connections held by the wrapped transport.
func (o *sessionObserver) closeIdle() {
	type idleCloser interface{ CloseIdleConnections() }
	if c, ok := o.next.(idleCloser); ok {
		c.CloseIdleConnections()
	}
}

// observedClient returns a copy of base (or a new client) whose transport is
// wrapped by a fresh observer.
func observedClient(base *http.Client) (*http.Client, *sessionObserver) {
	var hc http.Client
	if base != nil {
		hc = *base
	}
	obs := newSessionObserver(hc.Transport)
	hc.Transport = obs
	return &hc, obs
}
