package actions

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/entrhq/forge-playwright/pkg/htmlclean"
	"github.com/entrhq/forge-playwright/pkg/logging"
	"github.com/entrhq/forge-playwright/pkg/mcpclient"
	"github.com/entrhq/forge-playwright/pkg/security/workspace"
	"github.com/entrhq/forge-playwright/pkg/types"
	"github.com/gobwas/glob"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("actions")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize actions logger, using stderr fallback: %v", err)
	}
}

// DefaultMaxContentLength caps PAGE_CONTENT text.
const DefaultMaxContentLength = 20000

// errBlocked is the machine-readable error for navigation outside the
// allowlist.
const errBlocked = "Navigation blocked"

// errPathRejected is the machine-readable error for a screenshot path
// outside the screenshot directory.
const errPathRejected = "Screenshot path rejected"

// Options configures an Adapter.
type Options struct {
	// ToolNames overrides remote tool names; empty entries use defaults.
	ToolNames mcpclient.ToolNames

	// AllowedURLs are glob patterns (e.g. "https://*.example.com/*") a
	// NAVIGATE url must match. Empty allows everything.
	AllowedURLs []string

	// MaxContentLength caps PAGE_CONTENT text in bytes.
	MaxContentLength int

	// ScreenshotDir, when set, is the directory SCREENSHOT paths resolve
	// against. Paths leaving it are rejected.
	ScreenshotDir string
}

// Adapter validates action payloads and performs one remote invocation
// per valid action.
type Adapter struct {
	browser    *mcpclient.Browser
	allowed    []glob.Glob
	maxContent int
	shots      *workspace.Guard
}

// New creates an adapter that invokes tools through inv.
func New(inv mcpclient.Invoker, opts Options) (*Adapter, error) {
	allowed := make([]glob.Glob, 0, len(opts.AllowedURLs))
	for _, pattern := range opts.AllowedURLs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed url pattern %q: %w", pattern, err)
		}
		allowed = append(allowed, g)
	}

	maxContent := opts.MaxContentLength
	if maxContent <= 0 {
		maxContent = DefaultMaxContentLength
	}

	var shots *workspace.Guard
	if opts.ScreenshotDir != "" {
		g, err := workspace.NewGuard(opts.ScreenshotDir)
		if err != nil {
			return nil, fmt.Errorf("invalid screenshot directory: %w", err)
		}
		shots = g
	}

	return &Adapter{
		browser:    mcpclient.NewBrowser(inv, opts.ToolNames),
		allowed:    allowed,
		maxContent: maxContent,
		shots:      shots,
	}, nil
}

// Run validates p for kind and, if valid, performs the action. It returns
// the caller-visible outcome and whether the action succeeded. Errors never
// escape; they are folded into the returned content.
func (a *Adapter) Run(ctx context.Context, kind Kind, p Payload) (types.Content, bool) {
	if err := Validate(kind, p); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			debugLog.Debugf("%s rejected: %v", kind, err)
			return failure(kind, err.Error(), fmt.Sprintf("Invalid %s content", kind)), false
		}
		return failure(kind, err.Error(), err.Error()), false
	}

	if kind == KindNavigate && !a.navigationAllowed(p.URL) {
		debugLog.Warnf("navigation to %s blocked by allowlist", p.URL)
		return failure(kind, fmt.Sprintf("%s is not in the allowed URL list", p.URL), errBlocked), false
	}

	if kind == KindScreenshot && a.shots != nil {
		resolved, err := a.shots.Resolve(p.Path)
		if err != nil {
			debugLog.Warnf("screenshot path %s rejected: %v", p.Path, err)
			return failure(kind, err.Error(), errPathRejected), false
		}
		p.Path = resolved
	}

	content, err := a.perform(ctx, kind, p)
	if err != nil {
		debugLog.Warnf("%s failed: %v", kind, err)
		return failure(kind, err.Error(), err.Error()), false
	}

	content.Content["success"] = true
	return content, true
}

func (a *Adapter) perform(ctx context.Context, kind Kind, p Payload) (types.Content, error) {
	opts := p.Options

	switch kind {
	case KindNavigate:
		if err := a.browser.Navigate(ctx, p.URL, opts); err != nil {
			return types.Content{}, err
		}
		return success(fmt.Sprintf("Navigated to %s", p.URL), map[string]any{"url": p.URL}), nil

	case KindClick:
		if err := a.browser.Click(ctx, p.Selector, opts); err != nil {
			return types.Content{}, err
		}
		return success(fmt.Sprintf("Clicked element %s", p.Selector), map[string]any{"selector": p.Selector}), nil

	case KindType:
		if err := a.browser.Type(ctx, p.Selector, p.Text, opts); err != nil {
			return types.Content{}, err
		}
		return success(fmt.Sprintf("Typed %q into %s", p.Text, p.Selector),
			map[string]any{"selector": p.Selector, "text": p.Text}), nil

	case KindSelect:
		if err := a.browser.Select(ctx, p.Selector, p.Value, opts); err != nil {
			return types.Content{}, err
		}
		return success(fmt.Sprintf("Selected %q in %s", p.Value, p.Selector),
			map[string]any{"selector": p.Selector, "value": p.Value}), nil

	case KindScreenshot:
		shot, err := a.browser.Screenshot(ctx, p.Path, opts)
		if err != nil {
			return types.Content{}, err
		}
		return success(fmt.Sprintf("Screenshot saved to %s", shot.Path),
			map[string]any{"path": shot.Path, "mimeType": shot.MIMEType, "bytes": shot.Size}), nil

	case KindPageContent:
		raw, err := a.browser.PageContent(ctx, opts)
		if err != nil {
			return types.Content{}, err
		}
		text, truncated := a.pageText(raw)
		return success(text, map[string]any{"content": text, "truncated": truncated}), nil

	default:
		return types.Content{}, fmt.Errorf("unknown action %q", kind)
	}
}

// pageText converts HTML responses to readable text and caps the length.
func (a *Adapter) pageText(raw string) (string, bool) {
	if htmlclean.LooksLikeHTML(raw) {
		if page, err := htmlclean.Text(raw, a.maxContent); err == nil {
			return page.Body, page.Truncated
		}
	}
	return htmlclean.Limit(raw, a.maxContent)
}

func (a *Adapter) navigationAllowed(url string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	for _, g := range a.allowed {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// Handle returns the host handler for kind. The payload is read from
// state.Content; opts supply extra tool options that never override the
// payload's own.
func (a *Adapter) Handle(kind Kind) types.Handler {
	return func(ctx context.Context, _ types.Runtime, _ *types.Memory, state *types.State, opts map[string]any, cb types.HandlerCallback) (ok bool) {
		var content types.Content
		defer func() {
			if r := recover(); r != nil {
				debugLog.Errorf("%s handler panicked: %v", kind, r)
				content = failure(kind, fmt.Sprint(r), fmt.Sprint(r))
				ok = false
			}
			deliver(kind, cb, content)
		}()

		var p Payload
		if state != nil {
			p = DecodePayload(state.Content)
		}
		if len(opts) > 0 {
			merged := maps.Clone(opts)
			maps.Copy(merged, p.Options)
			p.Options = merged
		}

		content, ok = a.Run(ctx, kind, p)
		return ok
	}
}

func deliver(kind Kind, cb types.HandlerCallback, content types.Content) {
	if cb == nil {
		return
	}
	if err := cb(content); err != nil {
		debugLog.Warnf("%s callback failed: %v", kind, err)
	}
}

func success(text string, content map[string]any) types.Content {
	return types.Content{Text: text, Content: content}
}

func failure(kind Kind, msg, machine string) types.Content {
	return types.Content{
		Text:    fmt.Sprintf("%s failed: %s", kind.Label(), msg),
		Content: map[string]any{"error": machine},
	}
}
