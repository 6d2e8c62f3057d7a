package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/entrhq/forge-playwright/pkg/browser"
	"github.com/entrhq/forge-playwright/pkg/browser/browsertest"
	"github.com/entrhq/forge-playwright/pkg/restapi"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const examplePage = `<html><head><title>Example</title><script>track()</script></head>
<body><h1>Example Domain</h1><p>For <a href="/more" onclick="x()">docs</a>.</p></body></html>`

func newTestServer(t *testing.T) (*Server, *browsertest.Pool) {
	t.Helper()
	pool := &browsertest.Pool{Setup: func(d *browsertest.Driver) {
		d.Pages["https://example.com"] = examplePage
	}}
	s := New(pool.Factory(), Options{})
	t.Cleanup(func() { _ = s.Close() })
	return s, pool
}

func TestToolNames(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, []string{
		"start-browser", "navigate", "click", "CLICK", "type", "select",
		"screenshot", "get-screenshot", "get-page-content",
		"wait-for-selector", "evaluate",
	}, s.ToolNames())
}

func TestCall(t *testing.T) {
	ctx := context.Background()

	t.Run("start-browser applies options", func(t *testing.T) {
		s, _ := newTestServer(t)
		d := browsertest.New()

		out, err := s.Call(ctx, d, "start-browser", map[string]any{
			"browserType": "Firefox",
			"headless":    false,
			"viewport":    map[string]any{"width": float64(800), "height": float64(600)},
		})
		require.NoError(t, err)

		launched := d.Launched()
		require.NotNil(t, launched)
		assert.Equal(t, "firefox", launched.BrowserType)
		assert.False(t, launched.Headless)
		assert.Equal(t, browser.Viewport{Width: 800, Height: 600}, launched.Viewport)
		assert.Equal(t, "Browser started: firefox (headed, 800x600)", out.Text)
	})

	t.Run("start-browser rejects bad options", func(t *testing.T) {
		s, _ := newTestServer(t)
		for _, args := range []map[string]any{
			{"browserType": "lynx"},
			{"headless": "yes"},
			{"viewport": map[string]any{"width": 10}},
		} {
			_, err := s.Call(ctx, browsertest.New(), "start-browser", args)
			var te *ToolError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, CodeInvalidArgument, te.Code)
		}
	})

	t.Run("navigate", func(t *testing.T) {
		s, _ := newTestServer(t)
		d := browsertest.New()

		out, err := s.Call(ctx, d, "navigate", map[string]any{"url": "https://example.com"})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", out.Data["url"])
		assert.Equal(t, "https://example.com", d.URL())
	})

	t.Run("missing selector", func(t *testing.T) {
		s, _ := newTestServer(t)
		d := browsertest.New()

		_, err := s.Call(ctx, d, "CLICK", map[string]any{})
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, CodeInvalidArgument, te.Code)
		assert.Equal(t, "selector is required", te.Message)
		assert.Empty(t, d.Calls())
	})

	t.Run("type and select", func(t *testing.T) {
		s, _ := newTestServer(t)
		d := browsertest.New()

		_, err := s.Call(ctx, d, "type", map[string]any{"selector": "#q", "text": ""})
		require.NoError(t, err)
		out, err := s.Call(ctx, d, "select", map[string]any{"selector": "#lang", "value": "go"})
		require.NoError(t, err)
		assert.Equal(t, "go", d.Value("#lang"))
		assert.Equal(t, []string{"go"}, out.Data["selected"])
	})

	t.Run("screenshot aliases", func(t *testing.T) {
		s, _ := newTestServer(t)
		for _, name := range []string{"screenshot", "get-screenshot"} {
			out, err := s.Call(ctx, browsertest.New(), name, map[string]any{"fullPage": true})
			require.NoError(t, err)
			require.Len(t, out.Images, 1)
			assert.Equal(t, browsertest.PNG, out.Images[0].Data)
			assert.Equal(t, "image/png", out.Images[0].MIMEType)
		}
	})

	t.Run("browser failure", func(t *testing.T) {
		s, _ := newTestServer(t)
		d := browsertest.New()
		d.Fail["click"] = errors.New("element not visible")

		_, err := s.Call(ctx, d, "click", map[string]any{"selector": "#hidden"})
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, CodeBrowser, te.Code)
		assert.Equal(t, "click: element not visible", te.Message)
	})

	t.Run("wait-for-selector", func(t *testing.T) {
		s, _ := newTestServer(t)
		d := browsertest.New()

		out, err := s.Call(ctx, d, "wait-for-selector", map[string]any{"selector": "#results", "timeout": float64(500)})
		require.NoError(t, err)
		assert.Equal(t, "#results is visible", out.Text)
		assert.Equal(t, []browsertest.Call{{Op: "wait", Args: []string{"#results", "visible"}}}, d.Calls())

		_, err = s.Call(ctx, d, "wait-for-selector", map[string]any{"selector": "#x", "state": "shiny"})
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, CodeInvalidArgument, te.Code)
	})

	t.Run("evaluate", func(t *testing.T) {
		s, _ := newTestServer(t)
		d := browsertest.New()
		d.Eval["document.title"] = "Example"

		out, err := s.Call(ctx, d, "evaluate", map[string]any{"script": "document.title"})
		require.NoError(t, err)
		assert.Equal(t, `"Example"`, out.Text)
		assert.Equal(t, "Example", out.Data["result"])

		d.Fail["evaluate"] = errors.New("ReferenceError: nope is not defined")
		_, err = s.Call(ctx, d, "evaluate", map[string]any{"script": "nope"})
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "evaluate: ReferenceError: nope is not defined", te.Message)
	})

	t.Run("unknown tool", func(t *testing.T) {
		s, _ := newTestServer(t)
		_, err := s.Call(ctx, browsertest.New(), "hover", nil)
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, CodeUnknownTool, te.Code)
	})
}

func TestPageContent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)
	d := browsertest.New()
	d.Pages["https://example.com"] = examplePage
	_, err := s.Call(ctx, d, "navigate", map[string]any{"url": "https://example.com"})
	require.NoError(t, err)

	html, err := s.Call(ctx, d, "get-page-content", nil)
	require.NoError(t, err)
	assert.Contains(t, html.Text, "<h1>Example Domain")
	assert.Contains(t, html.Text, `href="/more"`)
	assert.NotContains(t, html.Text, "track()")
	assert.NotContains(t, html.Text, "onclick")
	assert.Equal(t, "Example", html.Data["title"])

	text, err := s.Call(ctx, d, "get-page-content", map[string]any{"format": "text"})
	require.NoError(t, err)
	assert.Equal(t, "Example Domain\nFor docs.", text.Text)

	short, err := s.Call(ctx, d, "get-page-content", map[string]any{"format": "text", "maxLength": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, true, short.Data["truncated"])

	_, err = s.Call(ctx, d, "get-page-content", map[string]any{"format": "pdf"})
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeInvalidArgument, te.Code)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionAPI(t *testing.T) {
	s, pool := newTestServer(t)
	h := s.Handler()

	headless := true
	rec := doJSON(t, h, http.MethodPost, "/session", restapi.CreateSessionRequest{
		BrowserType: "webkit",
		Headless:    &headless,
		Viewport:    &restapi.Viewport{Width: 1024, Height: 768},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created restapi.CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, []string{created.SessionID}, s.Sessions())

	// drivers[0] is the shared MCP driver
	drivers := pool.Drivers()
	require.Len(t, drivers, 2)
	d := drivers[1]
	assert.Equal(t, "webkit", d.Launched().BrowserType)

	rec = doJSON(t, h, http.MethodPost, restapi.ToolPath(created.SessionID, "navigate"), map[string]any{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp restapi.ToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Text, "Navigated to https://example.com")

	rec = doJSON(t, h, http.MethodPost, restapi.ToolPath(created.SessionID, "get-screenshot"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = restapi.ToolResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Images, 1)
	assert.Equal(t, browsertest.PNG, resp.Images[0].Data)

	rec = doJSON(t, h, http.MethodPost, restapi.ToolPath(created.SessionID, "type"), map[string]any{"selector": "#q"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp = restapi.ToolResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, CodeInvalidArgument, resp.Code)

	rec = doJSON(t, h, http.MethodPost, restapi.ToolPath(created.SessionID, "hover"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, restapi.SessionPath(created.SessionID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, d.Closed())
	assert.Empty(t, s.Sessions())

	rec = doJSON(t, h, http.MethodDelete, restapi.SessionPath(created.SessionID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, restapi.ToolPath(created.SessionID, "navigate"), map[string]any{"url": "https://example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp = restapi.ToolResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CodeSessionNotFound, resp.Code)
}

func TestSessionAPI_LazyLaunch(t *testing.T) {
	s, pool := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/session", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, pool.Drivers()[1].Launched())
}

func TestSessionAPI_LaunchFailure(t *testing.T) {
	pool := &browsertest.Pool{Setup: func(d *browsertest.Driver) {
		d.Fail["launch"] = errors.New("executable doesn't exist")
	}}
	s := New(pool.Factory(), Options{})
	defer s.Close()

	rec := doJSON(t, s.Handler(), http.MethodPost, "/session", restapi.CreateSessionRequest{BrowserType: "chromium"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "executable doesn't exist")
	assert.Empty(t, s.Sessions())
	assert.True(t, pool.Drivers()[1].Closed())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["sessions"])
}

func TestClose(t *testing.T) {
	pool := &browsertest.Pool{}
	s := New(pool.Factory(), Options{})
	rec := doJSON(t, s.Handler(), http.MethodPost, "/session", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	for _, d := range pool.Drivers() {
		assert.True(t, d.Closed())
	}
	rec = doJSON(t, s.Handler(), http.MethodPost, "/session", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func connectInMemory(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()

	ss, err := s.MCPServer().Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestMCP(t *testing.T) {
	ctx := context.Background()
	s, pool := newTestServer(t)
	cs := connectInMemory(t, s)

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, s.ToolNames(), names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "navigate",
		Arguments: map[string]any{"url": "https://example.com"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Navigated to https://example.com")
	assert.Equal(t, "https://example.com", pool.Drivers()[0].URL())

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "screenshot", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	img, ok := res.Content[0].(*mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, browsertest.PNG, img.Data)
}

func TestMCP_ToolErrorIsInBand(t *testing.T) {
	ctx := context.Background()
	pool := &browsertest.Pool{Setup: func(d *browsertest.Driver) {
		d.Fail["navigate"] = errors.New("net::ERR_NAME_NOT_RESOLVED")
	}}
	s := New(pool.Factory(), Options{})
	defer s.Close()
	cs := connectInMemory(t, s)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "navigate",
		Arguments: map[string]any{"url": "https://nowhere.invalid"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	text := res.Content[0].(*mcp.TextContent)
	assert.Contains(t, text.Text, "ERR_NAME_NOT_RESOLVED")
	code, _ := res.StructuredContent.(map[string]any)["code"].(string)
	assert.Equal(t, CodeBrowser, code)
}
