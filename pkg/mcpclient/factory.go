package mcpclient

import (
	"fmt"
	"strings"

	"github.com/entrhq/forge-playwright/pkg/config"
)

// LaunchOptionsFromSettings returns the browser launch options in s.
func LaunchOptionsFromSettings(s config.Settings) LaunchOptions {
	return LaunchOptions{
		BrowserType: s.BrowserType,
		Headless:    s.Headless,
		Width:       s.ViewportWidth,
		Height:      s.ViewportHeight,
	}
}

// DialerFromSettings selects the dialer for the configured transport.
func DialerFromSettings(s config.Settings) (Dialer, error) {
	httpOpts := &HTTPOptions{MaxRetries: s.MaxRetries}

	switch s.Transport {
	case config.TransportStreamable, "":
		return NewStreamableDialer(s.Endpoint(), httpOpts), nil
	case config.TransportSSE:
		return NewSSEDialer(s.Endpoint(), httpOpts), nil
	case config.TransportREST:
		return NewRESTDialer(s.Endpoint(), LaunchOptionsFromSettings(s), nil), nil
	case config.TransportStdio:
		fields := strings.Fields(s.Command)
		if len(fields) == 0 {
			return nil, fmt.Errorf("mcpclient: stdio transport needs a command")
		}
		return NewCommandDialer(fields[0], fields[1:], nil), nil
	default:
		return nil, fmt.Errorf("mcpclient: unknown transport %q", s.Transport)
	}
}

// NewFromSettings builds an uninitialized client from configuration.
func NewFromSettings(s config.Settings) (*Client, error) {
	d, err := DialerFromSettings(s)
	if err != nil {
		return nil, err
	}
	return New(d, WithCallTimeout(s.CallTimeout)), nil
}
