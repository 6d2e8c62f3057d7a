package mcpclient_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/entrhq/forge-playwright/pkg/browser/browsertest"
	"github.com/entrhq/forge-playwright/pkg/mcpclient"
	"github.com/entrhq/forge-playwright/pkg/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>Shop</title></head><body><h1>Basket</h1><p>2 items</p></body></html>`

func startServer(t *testing.T, setup func(*browsertest.Driver)) (*server.Server, *httptest.Server) {
	t.Helper()
	pool := &browsertest.Pool{Setup: func(d *browsertest.Driver) {
		d.Pages["https://shop.example.com"] = page
		if setup != nil {
			setup(d)
		}
	}}
	srv := server.New(pool.Factory(), server.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return srv, ts
}

func inMemoryDialer(srv *server.Server) mcpclient.Dialer {
	return mcpclient.NewTransportDialer("memory", func() mcp.Transport {
		serverT, clientT := mcp.NewInMemoryTransports()
		go func() {
			_, _ = srv.MCPServer().Connect(context.Background(), serverT, nil)
		}()
		return clientT
	})
}

func TestEndToEnd(t *testing.T) {
	transports := []struct {
		name   string
		dialer func(srv *server.Server, ts *httptest.Server) mcpclient.Dialer
		hasID  bool
	}{
		{
			name: "streamable",
			dialer: func(_ *server.Server, ts *httptest.Server) mcpclient.Dialer {
				return mcpclient.NewStreamableDialer(ts.URL+"/mcp", nil)
			},
			hasID: true,
		},
		{
			name: "sse",
			dialer: func(_ *server.Server, ts *httptest.Server) mcpclient.Dialer {
				return mcpclient.NewSSEDialer(ts.URL+"/sse", nil)
			},
		},
		{
			name: "rest",
			dialer: func(_ *server.Server, ts *httptest.Server) mcpclient.Dialer {
				return mcpclient.NewRESTDialer(ts.URL, mcpclient.LaunchOptions{BrowserType: "chromium", Headless: true}, nil)
			},
			hasID: true,
		},
		{
			name: "memory",
			dialer: func(srv *server.Server, _ *httptest.Server) mcpclient.Dialer {
				return inMemoryDialer(srv)
			},
		},
	}

	for _, tt := range transports {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			srv, ts := startServer(t, func(d *browsertest.Driver) {
				d.Eval["document.title"] = "Shop"
			})
			c := mcpclient.New(tt.dialer(srv, ts))

			require.NoError(t, c.Initialize(ctx))
			assert.Equal(t, mcpclient.StateReady, c.State())
			if tt.hasID {
				assert.NotEmpty(t, c.Session().ID)
			}

			b := mcpclient.NewBrowser(c, mcpclient.ToolNames{Click: "CLICK", Screenshot: "get-screenshot"})
			require.NoError(t, b.StartBrowser(ctx, mcpclient.LaunchOptions{BrowserType: "firefox", Headless: true, Width: 800, Height: 600}))
			require.NoError(t, b.Navigate(ctx, "https://shop.example.com", nil))
			require.NoError(t, b.Click(ctx, "#checkout", nil))
			require.NoError(t, b.Type(ctx, "#email", "a@b.c", nil))
			require.NoError(t, b.Select(ctx, "#country", "de", nil))

			path := filepath.Join(t.TempDir(), "shot.png")
			shot, err := b.Screenshot(ctx, path, map[string]any{"fullPage": true})
			require.NoError(t, err)
			assert.Equal(t, "image/png", shot.MIMEType)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, browsertest.PNG, data)

			content, err := b.PageContent(ctx, map[string]any{"format": "text"})
			require.NoError(t, err)
			assert.Equal(t, "Basket\n2 items", content)

			require.NoError(t, b.WaitForSelector(ctx, "#basket", time.Second, nil))
			title, err := b.Evaluate(ctx, "document.title")
			require.NoError(t, err)
			assert.Equal(t, "Shop", title)

			// a tool failure is reported, and the session stays usable
			err = b.Click(ctx, "", nil)
			var tie *mcpclient.ToolInvocationError
			require.ErrorAs(t, err, &tie)
			assert.Equal(t, server.CodeInvalidArgument, tie.Code)
			assert.Contains(t, tie.Message, "selector is required")
			require.NoError(t, b.Navigate(ctx, "https://shop.example.com", nil))

			require.NoError(t, c.Close(ctx))
			assert.Equal(t, mcpclient.StateClosed, c.State())

			_, err = c.Invoke(ctx, "navigate", map[string]any{"url": "https://shop.example.com"})
			var nie *mcpclient.NotInitializedError
			assert.ErrorAs(t, err, &nie)
		})
	}
}

func TestEndToEnd_RESTSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	srv, ts := startServer(t, nil)

	a := mcpclient.New(mcpclient.NewRESTDialer(ts.URL, mcpclient.LaunchOptions{}, nil))
	b := mcpclient.New(mcpclient.NewRESTDialer(ts.URL, mcpclient.LaunchOptions{}, nil))
	require.NoError(t, a.Initialize(ctx))
	require.NoError(t, b.Initialize(ctx))
	assert.NotEqual(t, a.Session().ID, b.Session().ID)
	assert.Len(t, srv.Sessions(), 2)

	require.NoError(t, a.Close(ctx))
	assert.Equal(t, []string{b.Session().ID}, srv.Sessions())
	require.NoError(t, b.Close(ctx))
	assert.Empty(t, srv.Sessions())
}

func TestEndToEnd_BrowserFailure(t *testing.T) {
	ctx := context.Background()
	_, ts := startServer(t, func(d *browsertest.Driver) {
		d.Fail["screenshot"] = errors.New("target page crashed")
	})

	for _, d := range []mcpclient.Dialer{
		mcpclient.NewStreamableDialer(ts.URL+"/mcp", nil),
		mcpclient.NewRESTDialer(ts.URL, mcpclient.LaunchOptions{}, nil),
	} {
		t.Run(d.Transport(), func(t *testing.T) {
			c := mcpclient.New(d)
			require.NoError(t, c.Initialize(ctx))
			defer c.Close(ctx)

			_, err := mcpclient.NewBrowser(c, mcpclient.ToolNames{}).Screenshot(ctx, filepath.Join(t.TempDir(), "x.png"), nil)

			var tie *mcpclient.ToolInvocationError
			require.ErrorAs(t, err, &tie)
			assert.Equal(t, server.CodeBrowser, tie.Code)
			assert.Contains(t, tie.Message, "target page crashed")
		})
	}
}

func TestEndToEnd_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	for _, d := range []mcpclient.Dialer{
		mcpclient.NewStreamableDialer(url+"/mcp", nil),
		mcpclient.NewRESTDialer(url, mcpclient.LaunchOptions{}, nil),
	} {
		c := mcpclient.New(d)
		err := c.Initialize(context.Background())

		var connErr *mcpclient.ConnectionError
		require.ErrorAs(t, err, &connErr, d.Transport())
		assert.Equal(t, mcpclient.StateUninitialized, c.State())
	}
}
