package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/entrhq/forge-playwright/pkg/restapi"
)

// maxResponseBytes caps REST response bodies; screenshots dominate.
const maxResponseBytes = 32 << 20

// RESTDialer speaks the HTTP session API: a session is created with
// POST /session, tools are posted to /session/{id}/{tool}, and the session
// is deleted on close.
type RESTDialer struct {
	baseURL    string
	launch     restapi.CreateSessionRequest
	httpClient *http.Client
}

// NewRESTDialer creates a dialer for the session API rooted at baseURL.
// launch is sent as the session creation body; hc may be nil.
func NewRESTDialer(baseURL string, launch LaunchOptions, hc *http.Client) *RESTDialer {
	return &RESTDialer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		launch:     launch.request(),
		httpClient: hc,
	}
}

// Transport names the wire mechanism.
func (d *RESTDialer) Transport() string { return "rest" }

// Endpoint returns the API root.
func (d *RESTDialer) Endpoint() string { return d.baseURL }

// Dial creates a remote session.
func (d *RESTDialer) Dial(ctx context.Context) (Conn, error) {
	hc, obs := observedClient(d.httpClient)
	conn := &restConn{baseURL: d.baseURL, http: hc, observer: obs}

	var created restapi.CreateSessionResponse
	status, err := conn.do(ctx, http.MethodPost, restapi.SessionsPath, d.launch, &created)
	if err != nil {
		obs.closeIdle()
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		obs.closeIdle()
		return nil, fmt.Errorf("create session: unexpected status %d", status)
	}
	if created.SessionID == "" {
		obs.closeIdle()
		return nil, errors.New("create session: response carried no sessionId")
	}

	conn.id = created.SessionID
	debugLog.Debugf("rest session %q created at %s", conn.id, d.baseURL)
	return conn, nil
}

type restConn struct {
	baseURL  string
	id       string
	http     *http.Client
	observer *sessionObserver
}

func (c *restConn) ID() string { return c.id }

func (c *restConn) CallTool(ctx context.Context, tool string, args map[string]any) (*Result, error) {
	if args == nil {
		args = map[string]any{}
	}

	var resp restapi.ToolResponse
	path := restapi.ToolPath(url.PathEscape(c.id), url.PathEscape(tool))
	status, err := c.do(ctx, http.MethodPost, path, args, &resp)
	if err != nil {
		return nil, &ToolInvocationError{Tool: tool, Message: err.Error(), Err: err}
	}

	if !resp.Success || status >= http.StatusBadRequest {
		msg := resp.Error
		if msg == "" {
			msg = fmt.Sprintf("server returned status %d", status)
		}
		return nil, &ToolInvocationError{Tool: tool, Message: msg, Code: resp.Code}
	}

	images := make([]Image, 0, len(resp.Images))
	for _, img := range resp.Images {
		images = append(images, Image{Data: img.Data, MIMEType: img.MIMEType})
	}
	return &Result{Text: resp.Text, Images: images, Structured: resp.Data}, nil
}

// Close deletes the remote session. The connection pool is released even
// when the delete fails.
func (c *restConn) Close(ctx context.Context) error {
	defer c.observer.closeIdle()

	status, err := c.do(ctx, http.MethodDelete, restapi.SessionPath(url.PathEscape(c.id)), nil, nil)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", c.id, err)
	}
	if status >= http.StatusBadRequest && status != http.StatusNotFound {
		return fmt.Errorf("delete session %s: unexpected status %d", c.id, status)
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out when the
// body is non-empty. It returns the HTTP status.
func (c *restConn) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
		}
	}
	return resp.StatusCode, nil
}
