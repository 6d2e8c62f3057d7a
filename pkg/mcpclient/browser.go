package mcpclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/forge-playwright/pkg/restapi"
)

// ToolNames maps browser operations to remote tool names. Servers differ
// here (click vs CLICK, screenshot vs get-screenshot).
type ToolNames struct {
	StartBrowser    string
	Navigate        string
	Click           string
	Type            string
	Select          string
	Screenshot      string
	PageContent     string
	WaitForSelector string
	Evaluate        string
}

// DefaultToolNames returns the lower-case tool names.
func DefaultToolNames() ToolNames {
	return ToolNames{
		StartBrowser:    "start-browser",
		Navigate:        "navigate",
		Click:           "click",
		Type:            "type",
		Select:          "select",
		Screenshot:      "screenshot",
		PageContent:     "get-page-content",
		WaitForSelector: "wait-for-selector",
		Evaluate:        "evaluate",
	}
}

// LaunchOptions describes the browser the server should start.
type LaunchOptions struct {
	BrowserType string
	Headless    bool
	Width       int
	Height      int
}

func (o LaunchOptions) args() map[string]any {
	args := map[string]any{"headless": o.Headless}
	if o.BrowserType != "" {
		args["browserType"] = o.BrowserType
	}
	if o.Width > 0 && o.Height > 0 {
		args["viewport"] = map[string]any{"width": o.Width, "height": o.Height}
	}
	return args
}

func (o LaunchOptions) request() restapi.CreateSessionRequest {
	headless := o.Headless
	req := restapi.CreateSessionRequest{BrowserType: o.BrowserType, Headless: &headless}
	if o.Width > 0 && o.Height > 0 {
		req.Viewport = &restapi.Viewport{Width: o.Width, Height: o.Height}
	}
	return req
}

// Screenshot describes a screenshot written to disk.
type Screenshot struct {
	Path     string
	MIMEType string
	Size     int
}

// Browser exposes typed browser operations on top of an Invoker. Each
// method performs exactly one tool call.
type Browser struct {
	invoker Invoker
	names   ToolNames
}

// NewBrowser creates a Browser. Empty entries in names fall back to the
// defaults.
func NewBrowser(invoker Invoker, names ToolNames) *Browser {
	defaults := DefaultToolNames()
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&names.StartBrowser, defaults.StartBrowser)
	fill(&names.Navigate, defaults.Navigate)
	fill(&names.Click, defaults.Click)
	fill(&names.Type, defaults.Type)
	fill(&names.Select, defaults.Select)
	fill(&names.Screenshot, defaults.Screenshot)
	fill(&names.PageContent, defaults.PageContent)
	fill(&names.WaitForSelector, defaults.WaitForSelector)
	fill(&names.Evaluate, defaults.Evaluate)

	return &Browser{invoker: invoker, names: names}
}

// Names returns the tool name table in use.
func (b *Browser) Names() ToolNames {
	return b.names
}

// StartBrowser asks the server to launch a browser.
func (b *Browser) StartBrowser(ctx context.Context, opts LaunchOptions) error {
	_, err := b.invoker.Invoke(ctx, b.names.StartBrowser, opts.args())
	return err
}

// Navigate loads url in the current page.
func (b *Browser) Navigate(ctx context.Context, url string, extra map[string]any) error {
	_, err := b.invoker.Invoke(ctx, b.names.Navigate, withArgs(extra, map[string]any{"url": url}))
	return err
}

// Click clicks the element matching selector.
func (b *Browser) Click(ctx context.Context, selector string, extra map[string]any) error {
	_, err := b.invoker.Invoke(ctx, b.names.Click, withArgs(extra, map[string]any{"selector": selector}))
	return err
}

// Type types text into the element matching selector.
func (b *Browser) Type(ctx context.Context, selector, text string, extra map[string]any) error {
	_, err := b.invoker.Invoke(ctx, b.names.Type, withArgs(extra, map[string]any{"selector": selector, "text": text}))
	return err
}

// Select chooses value in the select element matching selector.
func (b *Browser) Select(ctx context.Context, selector, value string, extra map[string]any) error {
	_, err := b.invoker.Invoke(ctx, b.names.Select, withArgs(extra, map[string]any{"selector": selector, "value": value}))
	return err
}

// Screenshot captures the page and writes the image to path, creating the
// parent directory if needed.
func (b *Browser) Screenshot(ctx context.Context, path string, extra map[string]any) (*Screenshot, error) {
	tool := b.names.Screenshot
	res, err := b.invoker.Invoke(ctx, tool, withArgs(extra, nil))
	if err != nil {
		return nil, err
	}

	data, mimeType, err := imageFromResult(res)
	if err != nil {
		return nil, &ToolInvocationError{Tool: tool, Message: err.Error()}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create screenshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write screenshot: %w", err)
	}

	return &Screenshot{Path: path, MIMEType: mimeType, Size: len(data)}, nil
}

// PageContent returns the page content as reported by the server.
func (b *Browser) PageContent(ctx context.Context, extra map[string]any) (string, error) {
	res, err := b.invoker.Invoke(ctx, b.names.PageContent, withArgs(extra, nil))
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// WaitForSelector waits until an element matching selector is present.
// A zero timeout leaves the server default in place.
func (b *Browser) WaitForSelector(ctx context.Context, selector string, timeout time.Duration, extra map[string]any) error {
	args := map[string]any{"selector": selector}
	if timeout > 0 {
		args["timeout"] = timeout.Milliseconds()
	}
	_, err := b.invoker.Invoke(ctx, b.names.WaitForSelector, withArgs(extra, args))
	return err
}

// Evaluate runs script in the page and returns its result. Structured
// results are preferred; otherwise the text is decoded as JSON, and text
// that is not JSON is returned as is.
func (b *Browser) Evaluate(ctx context.Context, script string) (any, error) {
	res, err := b.invoker.Invoke(ctx, b.names.Evaluate, map[string]any{"script": script})
	if err != nil {
		return nil, err
	}
	if m, ok := res.Structured.(map[string]any); ok {
		if v, found := m["result"]; found {
			return v, nil
		}
	}
	var v any
	if err := json.Unmarshal([]byte(res.Text), &v); err == nil {
		return v, nil
	}
	return res.Text, nil
}

// withArgs merges extra options with required arguments; required wins.
func withArgs(extra, required map[string]any) map[string]any {
	args := make(map[string]any, len(extra)+len(required))
	maps.Copy(args, extra)
	maps.Copy(args, required)
	return args
}

// imageFromResult takes the first image block, falling back to base64 (or
// data URL) text for servers that return screenshots as text.
func imageFromResult(res *Result) ([]byte, string, error) {
	for _, img := range res.Images {
		if len(img.Data) > 0 {
			mimeType := img.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return img.Data, mimeType, nil
		}
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return nil, "", fmt.Errorf("response contained no image data")
	}

	mimeType := "image/png"
	if rest, ok := strings.CutPrefix(text, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("unsupported data URL in response")
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		text = payload
	}

	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, "", fmt.Errorf("response contained no image data")
	}
	return data, mimeType, nil
}
