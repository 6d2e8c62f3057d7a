package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/entrhq/forge-playwright/pkg/browser"
	"github.com/entrhq/forge-playwright/pkg/htmlclean"
	"github.com/google/jsonschema-go/jsonschema"
)

// Error codes reported with failed tool calls.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeUnknownTool     = "unknown_tool"
	CodeBrowser         = "browser_error"
	CodeSessionNotFound = "session_not_found"
)

// ToolError is a failed tool call with a machine-readable code.
type ToolError struct {
	Code    string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error { return e.Err }

func invalidArg(format string, args ...any) *ToolError {
	return &ToolError{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func browserErr(op string, err error) *ToolError {
	return &ToolError{Code: CodeBrowser, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}

// Image is binary image output of a tool.
type Image struct {
	Data     []byte
	MIMEType string
}

// Output is the successful result of a tool call.
type Output struct {
	Text   string
	Images []Image
	Data   map[string]any
}

type toolFunc func(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error)

// Tool is a browser tool served over MCP and the session API.
type Tool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	run         toolFunc
}

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

var selectorSchema = str("CSS or XPath selector of the target element")

func tools(maxContent int) []Tool {
	clickTool := Tool{
		Name:        "click",
		Description: "Click the first element matching a selector.",
		Schema:      object([]string{"selector"}, map[string]*jsonschema.Schema{"selector": selectorSchema}),
		run:         runClick,
	}
	screenshotTool := Tool{
		Name:        "screenshot",
		Description: "Capture the current page as a PNG image.",
		Schema: object(nil, map[string]*jsonschema.Schema{
			"fullPage": {Type: "boolean", Description: "Capture the full scrollable page"},
		}),
		run: runScreenshot,
	}

	upperClick := clickTool
	upperClick.Name = "CLICK"
	getScreenshot := screenshotTool
	getScreenshot.Name = "get-screenshot"

	return []Tool{
		{
			Name:        "start-browser",
			Description: "Launch a browser. Relaunches when the options differ from the running browser.",
			Schema: object(nil, map[string]*jsonschema.Schema{
				"browserType": {Type: "string", Enum: []any{"chromium", "firefox", "webkit"}},
				"headless":    {Type: "boolean"},
				"viewport": object([]string{"width", "height"}, map[string]*jsonschema.Schema{
					"width":  {Type: "integer"},
					"height": {Type: "integer"},
				}),
			}),
			run: runStartBrowser,
		},
		{
			Name:        "navigate",
			Description: "Load a URL in the current page.",
			Schema: object([]string{"url"}, map[string]*jsonschema.Schema{
				"url":       str("Absolute URL to load"),
				"waitUntil": {Type: "string", Enum: []any{"load", "domcontentloaded", "networkidle", "commit"}},
				"timeout":   {Type: "number", Description: "Navigation timeout in milliseconds"},
			}),
			run: runNavigate,
		},
		clickTool,
		upperClick,
		{
			Name:        "type",
			Description: "Replace the value of an input with text.",
			Schema: object([]string{"selector", "text"}, map[string]*jsonschema.Schema{
				"selector": selectorSchema,
				"text":     str("Text to enter"),
			}),
			run: runType,
		},
		{
			Name:        "select",
			Description: "Choose an option of a select element by value.",
			Schema: object([]string{"selector", "value"}, map[string]*jsonschema.Schema{
				"selector": selectorSchema,
				"value":    str("Option value"),
			}),
			run: runSelect,
		},
		screenshotTool,
		getScreenshot,
		{
			Name:        "get-page-content",
			Description: "Return the current page as cleaned HTML, or as plain text with format \"text\".",
			Schema: object(nil, map[string]*jsonschema.Schema{
				"format":    {Type: "string", Enum: []any{"html", "text"}},
				"maxLength": {Type: "integer", Description: "Maximum characters returned"},
			}),
			run: pageContent(maxContent),
		},
		{
			Name:        "wait-for-selector",
			Description: "Wait until an element matching a selector reaches a state.",
			Schema: object([]string{"selector"}, map[string]*jsonschema.Schema{
				"selector": selectorSchema,
				"state":    {Type: "string", Enum: []any{"attached", "detached", "visible", "hidden"}},
				"timeout":  {Type: "number", Description: "Maximum wait in milliseconds"},
			}),
			run: runWaitForSelector,
		},
		{
			Name:        "evaluate",
			Description: "Evaluate a JavaScript expression in the page and return its JSON result.",
			Schema: object([]string{"script"}, map[string]*jsonschema.Schema{
				"script": str("JavaScript expression or function body"),
			}),
			run: runEvaluate,
		},
	}
}

func runStartBrowser(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
	opts := browser.DefaultLaunchOptions()
	if v, ok := args["browserType"]; ok {
		name, _ := v.(string)
		switch strings.ToLower(name) {
		case "chromium", "firefox", "webkit":
			opts.BrowserType = strings.ToLower(name)
		default:
			return nil, invalidArg("unsupported browserType %v", v)
		}
	}
	if v, ok := args["headless"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return nil, invalidArg("headless must be a boolean")
		}
		opts.Headless = b
	}
	if v, ok := args["viewport"]; ok {
		vp, isMap := v.(map[string]any)
		if !isMap {
			return nil, invalidArg("viewport must be an object")
		}
		w, wok := intArg(vp, "width")
		h, hok := intArg(vp, "height")
		if !wok || !hok || w <= 0 || h <= 0 {
			return nil, invalidArg("viewport needs positive width and height")
		}
		opts.Viewport = browser.Viewport{Width: w, Height: h}
	}

	if err := d.Launch(ctx, opts); err != nil {
		return nil, browserErr("launch browser", err)
	}

	mode := "headless"
	if !opts.Headless {
		mode = "headed"
	}
	return &Output{
		Text: fmt.Sprintf("Browser started: %s (%s, %dx%d)", opts.BrowserType, mode, opts.Viewport.Width, opts.Viewport.Height),
		Data: map[string]any{
			"browserType": opts.BrowserType,
			"headless":    opts.Headless,
			"viewport":    map[string]any{"width": opts.Viewport.Width, "height": opts.Viewport.Height},
		},
	}, nil
}

func runNavigate(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
	url, err := requireString(args, "url")
	if err != nil {
		return nil, err
	}
	var opts browser.NavigateOptions
	opts.WaitUntil, _ = args["waitUntil"].(string)
	if t, ok := numberArg(args, "timeout"); ok {
		opts.Timeout = t
	}

	info, err := d.Navigate(ctx, url, opts)
	if err != nil {
		return nil, browserErr("navigate", err)
	}
	return &Output{
		Text: fmt.Sprintf("Navigated to %s (%s)", info.URL, info.Title),
		Data: map[string]any{"url": info.URL, "title": info.Title},
	}, nil
}

func runClick(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
	selector, err := requireString(args, "selector")
	if err != nil {
		return nil, err
	}
	if err := d.Click(ctx, selector); err != nil {
		return nil, browserErr("click", err)
	}
	return &Output{Text: "Clicked " + selector, Data: map[string]any{"selector": selector}}, nil
}

func runType(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
	selector, err := requireString(args, "selector")
	if err != nil {
		return nil, err
	}
	text, ok := args["text"].(string)
	if !ok {
		return nil, invalidArg("text must be a string")
	}
	if err := d.Type(ctx, selector, text); err != nil {
		return nil, browserErr("type", err)
	}
	return &Output{
		Text: fmt.Sprintf("Typed %d characters into %s", len([]rune(text)), selector),
		Data: map[string]any{"selector": selector},
	}, nil
}

func runSelect(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
	selector, err := requireString(args, "selector")
	if err != nil {
		return nil, err
	}
	value, err := requireString(args, "value")
	if err != nil {
		return nil, err
	}
	selected, err := d.Select(ctx, selector, value)
	if err != nil {
		return nil, browserErr("select", err)
	}
	return &Output{
		Text: fmt.Sprintf("Selected %s in %s", strings.Join(selected, ", "), selector),
		Data: map[string]any{"selector": selector, "selected": selected},
	}, nil
}

func runScreenshot(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
	fullPage, _ := args["fullPage"].(bool)
	data, err := d.Screenshot(ctx, browser.ScreenshotOptions{FullPage: fullPage})
	if err != nil {
		return nil, browserErr("screenshot", err)
	}
	if len(data) == 0 {
		return nil, &ToolError{Code: CodeBrowser, Message: "screenshot: browser returned no image"}
	}
	return &Output{
		Images: []Image{{Data: data, MIMEType: "image/png"}},
		Data:   map[string]any{"bytes": len(data), "fullPage": fullPage},
	}, nil
}

func pageContent(defaultMax int) toolFunc {
	return func(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
		maxLength := defaultMax
		if n, ok := intArg(args, "maxLength"); ok && n > 0 {
			maxLength = n
		}
		format, _ := args["format"].(string)

		raw, err := d.Content(ctx)
		if err != nil {
			return nil, browserErr("get page content", err)
		}

		var page *htmlclean.Page
		switch format {
		case "", "html":
			page, err = htmlclean.Clean(raw, maxLength)
		case "text":
			page, err = htmlclean.Text(raw, maxLength)
		default:
			return nil, invalidArg("unsupported format %q (must be html or text)", format)
		}
		if err != nil {
			return nil, browserErr("clean page content", err)
		}

		return &Output{
			Text: page.Body,
			Data: map[string]any{
				"title":       page.Title,
				"description": page.Description,
				"truncated":   page.Truncated,
			},
		}, nil
	}
}

func runWaitForSelector(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
	selector, err := requireString(args, "selector")
	if err != nil {
		return nil, err
	}
	opts := browser.WaitOptions{State: "visible"}
	if v, ok := args["state"]; ok {
		state, _ := v.(string)
		if !slices.Contains(browser.WaitStates, state) {
			return nil, invalidArg("state must be one of %s", strings.Join(browser.WaitStates, ", "))
		}
		opts.State = state
	}
	if t, ok := numberArg(args, "timeout"); ok {
		if t < 0 {
			return nil, invalidArg("timeout must not be negative")
		}
		opts.Timeout = t
	}

	if err := d.WaitForSelector(ctx, selector, opts); err != nil {
		return nil, browserErr("wait for selector", err)
	}
	return &Output{
		Text: fmt.Sprintf("%s is %s", selector, opts.State),
		Data: map[string]any{"selector": selector, "state": opts.State},
	}, nil
}

func runEvaluate(ctx context.Context, d browser.Driver, args map[string]any) (*Output, error) {
	script, err := requireString(args, "script")
	if err != nil {
		return nil, err
	}
	result, err := d.Evaluate(ctx, script)
	if err != nil {
		return nil, browserErr("evaluate", err)
	}
	text, err := json.Marshal(result)
	if err != nil {
		return nil, &ToolError{Code: CodeBrowser, Message: fmt.Sprintf("evaluate: result is not JSON: %v", err), Err: err}
	}
	return &Output{Text: string(text), Data: map[string]any{"result": result}}, nil
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", invalidArg("%s is required", key)
	}
	return v, nil
}

// numberArg reads a JSON number. Integers are accepted for callers that
// build arguments in Go.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func intArg(args map[string]any, key string) (int, bool) {
	f, ok := numberArg(args, key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// asToolError converts any error into a ToolError.
func asToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Code: CodeBrowser, Message: err.Error(), Err: err}
}
