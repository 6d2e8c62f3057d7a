package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/entrhq/forge-playwright/pkg/logging"
	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/singleflight"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("browser")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// ErrShutdown is returned when a driver is used after its manager shut down.
var ErrShutdown = errors.New("browser manager is shut down")

// Manager owns the Playwright runtime shared by every driver it creates.
// The runtime starts on first use.
type Manager struct {
	mu       sync.Mutex
	pw       *playwright.Playwright
	sessions map[*Session]struct{}
	shutdown bool

	startGroup singleflight.Group
	install    bool
	browsers   []string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithInstall makes the manager download the Playwright driver and the
// given browsers before the first start. Without it the driver must
// already be installed.
func WithInstall(browsers ...string) ManagerOption {
	return func(m *Manager) {
		m.install = true
		m.browsers = browsers
	}
}

// NewManager creates a manager. Nothing is started until a driver needs it.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{sessions: make(map[*Session]struct{})}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewDriver returns an unlaunched Session. It satisfies Factory.
func (m *Manager) NewDriver() Driver {
	return m.NewSession()
}

// NewSession returns an unlaunched Session tracked by the manager.
func (m *Manager) NewSession() *Session {
	s := newSession(m)

	m.mu.Lock()
	m.sessions[s] = struct{}{}
	m.mu.Unlock()

	return s
}

// runtime returns the running Playwright instance, starting it once.
// Concurrent first callers share a single start attempt.
func (m *Manager) runtime(ctx context.Context) (*playwright.Playwright, error) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	if m.pw != nil {
		pw := m.pw
		m.mu.Unlock()
		return pw, nil
	}
	m.mu.Unlock()

	ch := m.startGroup.DoChan("runtime", func() (interface{}, error) {
		return m.start()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*playwright.Playwright), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) start() (*playwright.Playwright, error) {
	m.mu.Lock()
	if m.pw != nil {
		pw := m.pw
		m.mu.Unlock()
		return pw, nil
	}
	m.mu.Unlock()

	// Keep driver output off stdout, which may carry an MCP stdio stream.
	opts := &playwright.RunOptions{
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
		Browsers: m.browsers,
	}

	if m.install {
		debugLog.Infof("installing playwright driver (browsers: %v)", m.browsers)
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		_ = pw.Stop()
		return nil, ErrShutdown
	}
	m.pw = pw
	debugLog.Infof("playwright runtime started")
	return pw, nil
}

// forget stops tracking a closed session.
func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s)
}

// Active returns the number of sessions that have not been closed.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session and stops the Playwright runtime.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.shutdown = true
	sessions := make([]*Session, 0, len(m.sessions))
	for s := range m.sessions {
		sessions = append(sessions, s)
	}
	pw := m.pw
	m.pw = nil
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if pw != nil {
		if err := pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}
