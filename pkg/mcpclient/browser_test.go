package mcpclient

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	tool string
	args map[string]any
}

type recordingInvoker struct {
	calls  []recordedCall
	result *Result
	err    error
}

func (r *recordingInvoker) Invoke(_ context.Context, tool string, args map[string]any) (*Result, error) {
	r.calls = append(r.calls, recordedCall{tool: tool, args: args})
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &Result{}, nil
}

func TestBrowser_ToolMapping(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func(b *Browser) error
		wantTool string
		wantArgs map[string]any
	}{
		{
			name:     "navigate",
			call:     func(b *Browser) error { return b.Navigate(ctx, "https://example.com", nil) },
			wantTool: "navigate",
			wantArgs: map[string]any{"url": "https://example.com"},
		},
		{
			name:     "click",
			call:     func(b *Browser) error { return b.Click(ctx, "#submit", nil) },
			wantTool: "click",
			wantArgs: map[string]any{"selector": "#submit"},
		},
		{
			name:     "type",
			call:     func(b *Browser) error { return b.Type(ctx, "#q", "hello", nil) },
			wantTool: "type",
			wantArgs: map[string]any{"selector": "#q", "text": "hello"},
		},
		{
			name:     "select",
			call:     func(b *Browser) error { return b.Select(ctx, "#lang", "go", nil) },
			wantTool: "select",
			wantArgs: map[string]any{"selector": "#lang", "value": "go"},
		},
		{
			name:     "wait for selector",
			call:     func(b *Browser) error { return b.WaitForSelector(ctx, "#results", 2*time.Second, nil) },
			wantTool: "wait-for-selector",
			wantArgs: map[string]any{"selector": "#results", "timeout": int64(2000)},
		},
		{
			name:     "wait for selector with server default timeout",
			call:     func(b *Browser) error { return b.WaitForSelector(ctx, "#results", 0, nil) },
			wantTool: "wait-for-selector",
			wantArgs: map[string]any{"selector": "#results"},
		},
		{
			name: "start browser",
			call: func(b *Browser) error {
				return b.StartBrowser(ctx, LaunchOptions{BrowserType: "firefox", Headless: true, Width: 800, Height: 600})
			},
			wantTool: "start-browser",
			wantArgs: map[string]any{
				"browserType": "firefox",
				"headless":    true,
				"viewport":    map[string]any{"width": 800, "height": 600},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &recordingInvoker{}
			require.NoError(t, tt.call(NewBrowser(inv, DefaultToolNames())))
			require.Len(t, inv.calls, 1)
			assert.Equal(t, tt.wantTool, inv.calls[0].tool)
			assert.Equal(t, tt.wantArgs, inv.calls[0].args)
		})
	}
}

func TestBrowser_Evaluate(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   any
	}{
		{"structured", &Result{Text: "ignored", Structured: map[string]any{"result": float64(42)}}, float64(42)},
		{"json text", &Result{Text: `{"title":"Example"}`}, map[string]any{"title": "Example"}},
		{"plain text", &Result{Text: "not json"}, "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &recordingInvoker{result: tt.result}
			got, err := NewBrowser(inv, ToolNames{Evaluate: "browser_evaluate"}).Evaluate(context.Background(), "document.title")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "browser_evaluate", inv.calls[0].tool)
			assert.Equal(t, map[string]any{"script": "document.title"}, inv.calls[0].args)
		})
	}

	inv := &recordingInvoker{err: &ToolInvocationError{Tool: "evaluate", Message: "boom"}}
	_, err := NewBrowser(inv, DefaultToolNames()).Evaluate(context.Background(), "x")
	assert.Error(t, err)
}

func TestBrowser_ExtraOptionsDoNotOverrideRequired(t *testing.T) {
	inv := &recordingInvoker{}
	b := NewBrowser(inv, DefaultToolNames())

	err := b.Navigate(context.Background(), "https://example.com", map[string]any{
		"url":       "https://evil.test",
		"waitUntil": "networkidle",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"url": "https://example.com", "waitUntil": "networkidle"}, inv.calls[0].args)
}

func TestBrowser_CustomToolNames(t *testing.T) {
	inv := &recordingInvoker{result: &Result{Images: []Image{{Data: []byte("png"), MIMEType: "image/png"}}}}
	b := NewBrowser(inv, ToolNames{Click: "CLICK", Screenshot: "get-screenshot"})

	require.NoError(t, b.Click(context.Background(), "a", nil))
	_, err := b.Screenshot(context.Background(), filepath.Join(t.TempDir(), "s.png"), nil)
	require.NoError(t, err)
	require.NoError(t, b.Navigate(context.Background(), "https://example.com", nil))

	require.Len(t, inv.calls, 3)
	assert.Equal(t, "CLICK", inv.calls[0].tool)
	assert.Equal(t, "get-screenshot", inv.calls[1].tool)
	assert.Equal(t, "navigate", inv.calls[2].tool)
}

func TestBrowser_ScreenshotWritesImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

	tests := []struct {
		name   string
		result *Result
		mime   string
	}{
		{
			name:   "image content",
			result: &Result{Images: []Image{{Data: png, MIMEType: "image/png"}}},
			mime:   "image/png",
		},
		{
			name:   "base64 text",
			result: &Result{Text: base64.StdEncoding.EncodeToString(png)},
			mime:   "image/png",
		},
		{
			name:   "data url",
			result: &Result{Text: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(png)},
			mime:   "image/jpeg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "shots", "out.png")
			b := NewBrowser(&recordingInvoker{result: tt.result}, DefaultToolNames())

			shot, err := b.Screenshot(context.Background(), path, nil)
			require.NoError(t, err)
			assert.Equal(t, path, shot.Path)
			assert.Equal(t, tt.mime, shot.MIMEType)
			assert.Equal(t, len(png), shot.Size)

			written, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, png, written)
		})
	}
}

func TestBrowser_ScreenshotWithoutImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	b := NewBrowser(&recordingInvoker{result: &Result{Text: "not an image!"}}, DefaultToolNames())

	_, err := b.Screenshot(context.Background(), path, nil)

	var tie *ToolInvocationError
	require.ErrorAs(t, err, &tie)
	assert.Equal(t, "screenshot", tie.Tool)
	assert.NoFileExists(t, path)
}

func TestBrowser_PropagatesInvokeErrors(t *testing.T) {
	inv := &recordingInvoker{err: &ToolInvocationError{Tool: "get-page-content", Message: "no page"}}
	b := NewBrowser(inv, DefaultToolNames())

	_, err := b.PageContent(context.Background(), nil)
	var tie *ToolInvocationError
	require.ErrorAs(t, err, &tie)
	assert.Equal(t, "no page", tie.Message)
}
