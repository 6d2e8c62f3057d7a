// Package service wraps the automation session as a host-managed service.
//
// The service owns one mcpclient.Client. Start connects and, when
// configured, launches the remote browser; Stop always releases the
// session. A process keeps at most one service installed through
// Initialize so that two sessions never compete for the same browser.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/forge-playwright/pkg/config"
	"github.com/entrhq/forge-playwright/pkg/logging"
	"github.com/entrhq/forge-playwright/pkg/mcpclient"
	"github.com/entrhq/forge-playwright/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("service")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize service logger, using stderr fallback: %v", err)
	}
}

// ServiceType is the host service kind of PlaywrightService.
const ServiceType types.ServiceType = "PLAYWRIGHT"

var (
	// ErrAlreadyInitialized is returned by Initialize when a service is
	// already installed.
	ErrAlreadyInitialized = errors.New("service: playwright service already initialized")

	// ErrNotInitialized is returned by Shutdown when no service is installed.
	ErrNotInitialized = errors.New("service: playwright service not initialized")
)

// Options configures a PlaywrightService.
type Options struct {
	// LaunchOnStart starts a browser right after the session is ready.
	LaunchOnStart bool

	// Launch describes the browser started on Start.
	Launch mcpclient.LaunchOptions

	// ToolNames overrides remote tool names; empty entries use defaults.
	ToolNames mcpclient.ToolNames
}

// PlaywrightService owns the session to the automation server.
type PlaywrightService struct {
	client  *mcpclient.Client
	browser *mcpclient.Browser
	opts    Options
}

var _ types.Service = (*PlaywrightService)(nil)

// New creates a service around client. The service takes ownership of
// client: Stop closes it.
func New(client *mcpclient.Client, opts Options) *PlaywrightService {
	return &PlaywrightService{
		client:  client,
		browser: mcpclient.NewBrowser(client, opts.ToolNames),
		opts:    opts,
	}
}

// NewFromSettings builds an unstarted service from configuration.
func NewFromSettings(s config.Settings) (*PlaywrightService, error) {
	client, err := mcpclient.NewFromSettings(s)
	if err != nil {
		return nil, err
	}
	return New(client, Options{
		LaunchOnStart: s.LaunchOnStart,
		Launch:        mcpclient.LaunchOptionsFromSettings(s),
	}), nil
}

// ServiceType returns ServiceType.
func (s *PlaywrightService) ServiceType() types.ServiceType {
	return ServiceType
}

// Start initializes the session and launches the browser when configured.
// If the launch fails the session is closed again and the launch error is
// returned.
func (s *PlaywrightService) Start(ctx context.Context) error {
	if err := s.client.Initialize(ctx); err != nil {
		return err
	}
	if !s.opts.LaunchOnStart {
		return nil
	}

	debugLog.Infof("launching %s browser (headless=%t)", s.opts.Launch.BrowserType, s.opts.Launch.Headless)
	if err := s.browser.StartBrowser(ctx, s.opts.Launch); err != nil {
		if cerr := s.client.Close(ctx); cerr != nil {
			debugLog.Warnf("close after failed launch: %v", cerr)
		}
		return fmt.Errorf("service: launch browser: %w", err)
	}
	return nil
}

// Stop closes the session. Local resources are released even when the
// server does not acknowledge the termination.
func (s *PlaywrightService) Stop(ctx context.Context) error {
	return s.client.Close(ctx)
}

// Client returns the owned client. Callers must not close it.
func (s *PlaywrightService) Client() *mcpclient.Client {
	return s.client
}

// ToolNames returns the tool name table the service was built with.
func (s *PlaywrightService) ToolNames() mcpclient.ToolNames {
	return s.browser.Names()
}

var (
	global   *PlaywrightService
	globalMu sync.Mutex
)

// Initialize starts svc and installs it as the process-wide service. It
// fails with ErrAlreadyInitialized while another service is installed. A
// service whose Start fails is not installed.
func Initialize(ctx context.Context, svc *PlaywrightService) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return ErrAlreadyInitialized
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	global = svc
	return nil
}

// Global returns the installed service, or nil.
func Global() *PlaywrightService {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// Shutdown stops and uninstalls the process-wide service. The service is
// uninstalled even when Stop reports an error.
func Shutdown(ctx context.Context) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		return ErrNotInitialized
	}
	svc := global
	global = nil
	return svc.Stop(ctx)
}
