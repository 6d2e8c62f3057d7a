package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("browser session is closed")

// Session is a Playwright-backed Driver holding one browser, context and
// page.
type Session struct {
	manager *Manager

	mu         sync.Mutex
	opts       LaunchOptions
	browser    playwright.Browser
	context    playwright.BrowserContext
	page       playwright.Page
	closed     bool
	createdAt  time.Time
	lastUsedAt time.Time

	launchGroup singleflight.Group
}

var _ Driver = (*Session)(nil)

func newSession(m *Manager) *Session {
	now := time.Now()
	return &Session{
		manager:    m,
		opts:       DefaultLaunchOptions(),
		createdAt:  now,
		lastUsedAt: now,
	}
}

// Launch starts the browser with opts. A running browser launched with the
// same options is kept; different options restart it.
func (s *Session) Launch(ctx context.Context, opts LaunchOptions) error {
	opts = opts.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.page != nil {
		if s.opts == opts {
			return nil
		}
		debugLog.Infof("relaunching browser: %s -> %s", s.opts.BrowserType, opts.BrowserType)
		_ = s.releaseLocked()
	}

	return s.launchLocked(ctx, opts)
}

func (s *Session) launchLocked(ctx context.Context, opts LaunchOptions) error {
	pw, err := s.manager.runtime(ctx)
	if err != nil {
		return err
	}

	browserType, err := engine(pw, opts.BrowserType)
	if err != nil {
		return err
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(opts.Timeout)

	s.opts = opts
	s.browser = browser
	s.context = bctx
	s.page = page
	s.lastUsedAt = time.Now()

	debugLog.Infof("launched %s (headless=%v, %dx%d)", opts.BrowserType, opts.Headless, opts.Viewport.Width, opts.Viewport.Height)
	return nil
}

func engine(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch name {
	case "chromium", "":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	default:
		return nil, fmt.Errorf("unsupported browser type %q", name)
	}
}

// ensurePage returns the page, launching with the current options on
// first use. Concurrent first uses share one launch.
func (s *Session) ensurePage(ctx context.Context) (playwright.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.page != nil {
		s.lastUsedAt = time.Now()
		page := s.page
		s.mu.Unlock()
		return page, nil
	}
	opts := s.opts
	s.mu.Unlock()

	_, err, _ := s.launchGroup.Do("launch", func() (interface{}, error) {
		return nil, s.Launch(ctx, opts)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, ErrClosed
	}
	return s.page, nil
}

// Navigate navigates the page to the specified URL.
func (s *Session) Navigate(ctx context.Context, url string, opts NavigateOptions) (PageInfo, error) {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return PageInfo{}, err
	}

	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(opts.Timeout)
	}

	if _, err := page.Goto(url, gotoOpts); err != nil {
		return PageInfo{}, fmt.Errorf("navigation failed: %w", err)
	}
	return pageInfo(page), nil
}

// Click clicks an element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return err
	}
	if err := page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Type fills an input element with text.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return err
	}
	if err := page.Locator(selector).First().Fill(text); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Select chooses the option with the given value.
func (s *Session) Select(ctx context.Context, selector, value string) ([]string, error) {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return nil, err
	}
	selected, err := page.Locator(selector).First().SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(value),
	})
	if err != nil {
		return nil, fmt.Errorf("select failed: %w", err)
	}
	return selected, nil
}

// Screenshot captures the page as PNG.
func (s *Session) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return nil, err
	}
	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(opts.FullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// Content returns the page HTML.
func (s *Session) Content(ctx context.Context) (string, error) {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return "", err
	}
	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return content, nil
}

// WaitForSelector waits for an element to reach opts.State.
func (s *Session) WaitForSelector(ctx context.Context, selector string, opts WaitOptions) error {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return err
	}

	waitOpts := playwright.PageWaitForSelectorOptions{}
	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		waitOpts.State = &state
	}
	if opts.Timeout > 0 {
		waitOpts.Timeout = playwright.Float(opts.Timeout)
	}

	if _, err := page.WaitForSelector(selector, waitOpts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// Evaluate runs script in the page.
func (s *Session) Evaluate(ctx context.Context, script string) (any, error) {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return nil, err
	}
	result, err := page.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// Info returns the current URL and title.
func (s *Session) Info(ctx context.Context) (PageInfo, error) {
	page, err := s.ensurePage(ctx)
	if err != nil {
		return PageInfo{}, err
	}
	return pageInfo(page), nil
}

func pageInfo(page playwright.Page) PageInfo {
	title, err := page.Title()
	if err != nil {
		title = ""
	}
	return PageInfo{URL: page.URL(), Title: title}
}

// Close closes the page, context and browser.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.releaseLocked()
	s.mu.Unlock()

	s.manager.forget(s)
	return err
}

// LastUsed reports when the session last served a page operation.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

func (s *Session) releaseLocked() error {
	if s.page == nil {
		return nil
	}

	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	s.page, s.context, s.browser = nil, nil, nil

	if len(errs) > 0 {
		return fmt.Errorf("errors closing browser: %w", errors.Join(errs...))
	}
	return nil
}
