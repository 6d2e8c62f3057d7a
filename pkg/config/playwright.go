package config

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// SectionIDPlaywright is the identifier for the browser automation section
	SectionIDPlaywright = "playwright"

	TransportStreamable = "streamable"
	TransportSSE        = "sse"
	TransportStdio      = "stdio"
	TransportREST       = "rest"

	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"

	DefaultServerURL        = "http://localhost:13000"
	DefaultTransport        = TransportStreamable
	DefaultBrowserType      = BrowserChromium
	DefaultHeadless         = true
	DefaultViewportWidth    = 1280
	DefaultViewportHeight   = 720
	DefaultLaunchOnStart    = true
	DefaultCallTimeout      = 60 * time.Second
	DefaultMaxContentLength = 20000
)

// Settings is an immutable snapshot of the playwright section.
type Settings struct {
	ServerURL        string
	Transport        string
	Command          string
	BrowserType      string
	Headless         bool
	ViewportWidth    int
	ViewportHeight   int
	LaunchOnStart    bool
	AllowedURLs      []string
	ScreenshotDir    string
	MaxRetries       int
	CallTimeout      time.Duration
	MaxContentLength int
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		ServerURL:        DefaultServerURL,
		Transport:        DefaultTransport,
		BrowserType:      DefaultBrowserType,
		Headless:         DefaultHeadless,
		ViewportWidth:    DefaultViewportWidth,
		ViewportHeight:   DefaultViewportHeight,
		LaunchOnStart:    DefaultLaunchOnStart,
		CallTimeout:      DefaultCallTimeout,
		MaxContentLength: DefaultMaxContentLength,
	}
}

// Endpoint returns the URL the selected transport connects to. When the
// server URL carries no path, streamable uses /mcp and sse uses /sse.
func (s Settings) Endpoint() string {
	base := strings.TrimRight(s.ServerURL, "/")
	u, err := url.Parse(base)
	if err != nil || (u.Path != "" && u.Path != "/") {
		return base
	}
	switch s.Transport {
	case TransportStreamable:
		return base + "/mcp"
	case TransportSSE:
		return base + "/sse"
	default:
		return base
	}
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	switch s.Transport {
	case TransportStreamable, TransportSSE, TransportREST:
		u, err := url.Parse(s.ServerURL)
		if err != nil {
			return fmt.Errorf("invalid server_url %q: %w", s.ServerURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid server_url %q: scheme must be http or https", s.ServerURL)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid server_url %q: missing host", s.ServerURL)
		}
	case TransportStdio:
		if strings.TrimSpace(s.Command) == "" {
			return fmt.Errorf("command is required for the stdio transport")
		}
	default:
		return fmt.Errorf("unknown transport %q (must be streamable, sse, stdio or rest)", s.Transport)
	}

	switch s.BrowserType {
	case BrowserChromium, BrowserFirefox, BrowserWebKit:
	default:
		return fmt.Errorf("unknown browser_type %q (must be chromium, firefox or webkit)", s.BrowserType)
	}

	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", s.ViewportWidth, s.ViewportHeight)
	}
	if s.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must not be negative")
	}
	if s.MaxContentLength <= 0 {
		return fmt.Errorf("max_content_length must be positive")
	}
	return nil
}

// PlaywrightSection stores the settings for reaching the automation server
// and for the browser it launches.
type PlaywrightSection struct {
	settings Settings
	mu       sync.RWMutex
}

// NewPlaywrightSection creates a section holding the defaults.
func NewPlaywrightSection() *PlaywrightSection {
	return &PlaywrightSection{settings: DefaultSettings()}
}

// ID returns the section identifier.
func (s *PlaywrightSection) ID() string {
	return SectionIDPlaywright
}

// Title returns the section title.
func (s *PlaywrightSection) Title() string {
	return "Playwright MCP"
}

// Description returns the section description.
func (s *PlaywrightSection) Description() string {
	return "Automation server endpoint, wire transport and browser launch options."
}

// Data returns the current configuration data.
func (s *PlaywrightSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := make([]any, len(s.settings.AllowedURLs))
	for i, p := range s.settings.AllowedURLs {
		allowed[i] = p
	}

	return map[string]any{
		"server_url":         s.settings.ServerURL,
		"transport":          s.settings.Transport,
		"command":            s.settings.Command,
		"browser_type":       s.settings.BrowserType,
		"headless":           s.settings.Headless,
		"viewport_width":     s.settings.ViewportWidth,
		"viewport_height":    s.settings.ViewportHeight,
		"launch_on_start":    s.settings.LaunchOnStart,
		"allowed_urls":       allowed,
		"screenshot_dir":     s.settings.ScreenshotDir,
		"max_retries":        s.settings.MaxRetries,
		"call_timeout":       s.settings.CallTimeout.String(),
		"max_content_length": s.settings.MaxContentLength,
	}
}

// SetData updates the configuration from the provided data.
func (s *PlaywrightSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	for key, value := range data {
		var err error
		switch key {
		case "server_url":
			next.ServerURL, err = asString(key, value)
		case "transport":
			next.Transport, err = asString(key, value)
			next.Transport = strings.ToLower(next.Transport)
		case "command":
			next.Command, err = asString(key, value)
		case "browser_type":
			next.BrowserType, err = asString(key, value)
			next.BrowserType = strings.ToLower(next.BrowserType)
		case "headless":
			next.Headless, err = asBool(key, value)
		case "viewport_width":
			next.ViewportWidth, err = asInt(key, value)
		case "viewport_height":
			next.ViewportHeight, err = asInt(key, value)
		case "launch_on_start":
			next.LaunchOnStart, err = asBool(key, value)
		case "allowed_urls":
			next.AllowedURLs, err = asStringSlice(key, value)
		case "screenshot_dir":
			next.ScreenshotDir, err = asString(key, value)
		case "max_retries":
			next.MaxRetries, err = asInt(key, value)
		case "call_timeout":
			next.CallTimeout, err = asDuration(key, value)
		case "max_content_length":
			next.MaxContentLength, err = asInt(key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}

	s.settings = next
	return nil
}

// Validate validates the current configuration.
func (s *PlaywrightSection) Validate() error {
	return s.Settings().Validate()
}

// Reset restores the defaults.
func (s *PlaywrightSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = DefaultSettings()
}

// Settings returns a snapshot of the current settings.
func (s *PlaywrightSection) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.settings
	snapshot.AllowedURLs = append([]string(nil), s.settings.AllowedURLs...)
	return snapshot
}

func asString(key string, value any) (string, error) {
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
	}
	return strings.TrimSpace(v), nil
}

func asBool(key string, value any) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
	}
	return v, nil
}

func asInt(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		// JSON numbers come as float64
		if v != float64(int(v)) {
			return 0, fmt.Errorf("invalid value for %s: %v is not a whole number", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
	}
}

func asDuration(key string, value any) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		return d, nil
	case float64:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	case time.Duration:
		return v, nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected string or number, got %T", key, value)
	}
}

func asStringSlice(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid entry in %s: expected string, got %T", key, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid value type for %s: expected list of strings, got %T", key, value)
	}
}
