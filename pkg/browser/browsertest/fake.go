// Package browsertest provides an in-memory browser.Driver for tests that
// must not start a real browser.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/forge-playwright/pkg/browser"
)

// PNG is the image returned by Screenshot unless overridden.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Call is one recorded driver call.
type Call struct {
	Op   string
	Args []string
}

// Driver is a scripted browser. Pages maps URLs to HTML; navigating to an
// unknown URL yields an empty page titled with the URL. Fail makes the
// named operation return an error. Eval maps scripts to their results;
// unknown scripts evaluate to nil.
type Driver struct {
	mu sync.Mutex

	Pages map[string]string
	Fail  map[string]error
	Shot  []byte
	Eval  map[string]any

	launched *browser.LaunchOptions
	url      string
	values   map[string]string
	calls    []Call
	closed   bool
}

var _ browser.Driver = (*Driver)(nil)

// New returns an empty fake driver.
func New() *Driver {
	return &Driver{Pages: map[string]string{}, Fail: map[string]error{}, Eval: map[string]any{}, values: map[string]string{}}
}

// Pool hands out fake drivers and remembers them in creation order.
type Pool struct {
	// Setup, if set, prepares every new driver.
	Setup func(*Driver)

	mu      sync.Mutex
	drivers []*Driver
}

// Factory returns a browser.Factory creating drivers from the pool.
func (p *Pool) Factory() browser.Factory {
	return func() browser.Driver {
		d := New()
		if p.Setup != nil {
			p.Setup(d)
		}
		p.mu.Lock()
		p.drivers = append(p.drivers, d)
		p.mu.Unlock()
		return d
	}
}

// Drivers returns the drivers created so far.
func (p *Pool) Drivers() []*Driver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Driver(nil), p.drivers...)
}

// ErrClosed is returned by a closed fake.
var ErrClosed = errors.New("browsertest: driver closed")

func (d *Driver) record(op string, args ...string) error {
	d.calls = append(d.calls, Call{Op: op, Args: args})
	if d.closed {
		return ErrClosed
	}
	if err := d.Fail[op]; err != nil {
		return err
	}
	return nil
}

func (d *Driver) ensureLaunched() {
	if d.launched == nil {
		opts := browser.DefaultLaunchOptions()
		d.launched = &opts
	}
}

// Launch implements browser.Driver.
func (d *Driver) Launch(_ context.Context, opts browser.LaunchOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("launch", opts.BrowserType); err != nil {
		return err
	}
	d.launched = &opts
	return nil
}

// Navigate implements browser.Driver.
func (d *Driver) Navigate(_ context.Context, url string, _ browser.NavigateOptions) (browser.PageInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("navigate", url); err != nil {
		return browser.PageInfo{}, err
	}
	d.ensureLaunched()
	d.url = url
	return browser.PageInfo{URL: url, Title: d.titleLocked()}, nil
}

// Click implements browser.Driver.
func (d *Driver) Click(_ context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("click", selector); err != nil {
		return err
	}
	d.ensureLaunched()
	return nil
}

// Type implements browser.Driver.
func (d *Driver) Type(_ context.Context, selector, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("type", selector, text); err != nil {
		return err
	}
	d.ensureLaunched()
	d.values[selector] = text
	return nil
}

// Select implements browser.Driver.
func (d *Driver) Select(_ context.Context, selector, value string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("select", selector, value); err != nil {
		return nil, err
	}
	d.ensureLaunched()
	d.values[selector] = value
	return []string{value}, nil
}

// Screenshot implements browser.Driver.
func (d *Driver) Screenshot(_ context.Context, opts browser.ScreenshotOptions) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("screenshot", fmt.Sprint(opts.FullPage)); err != nil {
		return nil, err
	}
	d.ensureLaunched()
	if d.Shot != nil {
		return d.Shot, nil
	}
	return PNG, nil
}

// Content implements browser.Driver.
func (d *Driver) Content(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("content"); err != nil {
		return "", err
	}
	d.ensureLaunched()
	return d.Pages[d.url], nil
}

// WaitForSelector implements browser.Driver. Every selector is present.
func (d *Driver) WaitForSelector(_ context.Context, selector string, opts browser.WaitOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("wait", selector, opts.State); err != nil {
		return err
	}
	d.ensureLaunched()
	return nil
}

// Evaluate implements browser.Driver.
func (d *Driver) Evaluate(_ context.Context, script string) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("evaluate", script); err != nil {
		return nil, err
	}
	d.ensureLaunched()
	return d.Eval[script], nil
}

// Info implements browser.Driver.
func (d *Driver) Info(context.Context) (browser.PageInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("info"); err != nil {
		return browser.PageInfo{}, err
	}
	return browser.PageInfo{URL: d.url, Title: d.titleLocked()}, nil
}

// Close implements browser.Driver.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Driver) titleLocked() string {
	if d.url == "" {
		return ""
	}
	return "Page " + d.url
}

// Calls returns the recorded calls.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Ops returns the operation names of the recorded calls.
func (d *Driver) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := make([]string, len(d.calls))
	for i, c := range d.calls {
		ops[i] = c.Op
	}
	return ops
}

// Launched returns the options of the last launch, or nil.
func (d *Driver) Launched() *browser.LaunchOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.launched == nil {
		return nil
	}
	opts := *d.launched
	return &opts
}

// Value returns the value last typed or selected into selector.
func (d *Driver) Value(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[selector]
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// URL returns the current page URL.
func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}
