package browser

import "context"

const (
	// DefaultViewportWidth is the default browser viewport width
	DefaultViewportWidth = 1280

	// DefaultViewportHeight is the default browser viewport height
	DefaultViewportHeight = 720

	// DefaultTimeout is the default timeout for page operations (milliseconds)
	DefaultTimeout = 30000.0

	// DefaultBrowserType is the engine used when none is requested
	DefaultBrowserType = "chromium"
)

// Driver controls one browser page. Implementations launch lazily: any
// page operation on a driver that was never launched starts the browser
// with default options first.
type Driver interface {
	// Launch starts the browser. Launching an already running driver with
	// different options restarts it.
	Launch(ctx context.Context, opts LaunchOptions) error

	// Navigate loads url and reports where the page ended up.
	Navigate(ctx context.Context, url string, opts NavigateOptions) (PageInfo, error)

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Type replaces the value of the input matching selector with text.
	Type(ctx context.Context, selector, text string) error

	// Select chooses an option by value and returns the selected values.
	Select(ctx context.Context, selector, value string) ([]string, error)

	// Screenshot captures the page as PNG.
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)

	// Content returns the page's current HTML.
	Content(ctx context.Context) (string, error)

	// WaitForSelector blocks until an element matching selector reaches
	// the requested state.
	WaitForSelector(ctx context.Context, selector string, opts WaitOptions) error

	// Evaluate runs a JavaScript expression in the page and returns its
	// JSON-compatible result.
	Evaluate(ctx context.Context, script string) (any, error)

	// Info describes the current page.
	Info(ctx context.Context) (PageInfo, error)

	// Close releases the browser. Closing twice is a no-op.
	Close() error
}

// Factory creates an unlaunched driver.
type Factory func() Driver

// LaunchOptions configures a browser launch.
type LaunchOptions struct {
	// BrowserType is chromium, firefox or webkit
	BrowserType string

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport Viewport

	// Timeout sets the default timeout for operations (in milliseconds)
	Timeout float64
}

// DefaultLaunchOptions returns headless chromium at 1280x720.
func DefaultLaunchOptions() LaunchOptions {
	return LaunchOptions{
		BrowserType: DefaultBrowserType,
		Headless:    true,
		Viewport:    Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		Timeout:     DefaultTimeout,
	}
}

// withDefaults fills zero fields from DefaultLaunchOptions.
func (o LaunchOptions) withDefaults() LaunchOptions {
	d := DefaultLaunchOptions()
	if o.BrowserType == "" {
		o.BrowserType = d.BrowserType
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = d.Viewport
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle", "commit"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// ScreenshotOptions configures a screenshot.
type ScreenshotOptions struct {
	// FullPage captures the whole scrollable page instead of the viewport
	FullPage bool
}

// WaitOptions configures WaitForSelector.
type WaitOptions struct {
	// State is attached, detached, visible (default) or hidden
	State string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// WaitStates lists the element states WaitForSelector accepts.
var WaitStates = []string{"attached", "detached", "visible", "hidden"}

// PageInfo describes the current page.
type PageInfo struct {
	URL   string
	Title string
}
