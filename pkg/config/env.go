package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvServerURL        = "MCP_SERVER_URL"
	EnvTransport        = "MCP_TRANSPORT"
	EnvServerCommand    = "MCP_SERVER_COMMAND"
	EnvMaxRetries       = "MCP_MAX_RETRIES"
	EnvCallTimeout      = "MCP_CALL_TIMEOUT"
	EnvBrowserType      = "PLAYWRIGHT_BROWSER"
	EnvHeadless         = "PLAYWRIGHT_HEADLESS"
	EnvViewport         = "PLAYWRIGHT_VIEWPORT"
	EnvLaunchOnStart    = "PLAYWRIGHT_LAUNCH_ON_START"
	EnvAllowedURLs      = "PLAYWRIGHT_ALLOWED_URLS"
	EnvMaxContentLength = "PLAYWRIGHT_MAX_CONTENT_LENGTH"
	EnvScreenshotDir    = "PLAYWRIGHT_SCREENSHOT_DIR"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto the section. A nil lookup
// uses os.LookupEnv.
func ApplyEnv(section *PlaywrightSection, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	data := make(map[string]any)
	str := func(env, key string) {
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			data[key] = v
		}
	}
	str(EnvServerURL, "server_url")
	str(EnvTransport, "transport")
	str(EnvServerCommand, "command")
	str(EnvBrowserType, "browser_type")
	str(EnvScreenshotDir, "screenshot_dir")

	if v, ok := lookup(EnvHeadless); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHeadless, v, err)
		}
		data["headless"] = b
	}
	if v, ok := lookup(EnvLaunchOnStart); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvLaunchOnStart, v, err)
		}
		data["launch_on_start"] = b
	}
	if v, ok := lookup(EnvViewport); ok && v != "" {
		w, h, err := ParseViewport(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvViewport, err)
		}
		data["viewport_width"] = w
		data["viewport_height"] = h
	}
	if v, ok := lookup(EnvMaxRetries); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxRetries, v, err)
		}
		data["max_retries"] = n
	}
	if v, ok := lookup(EnvMaxContentLength); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxContentLength, v, err)
		}
		data["max_content_length"] = n
	}
	if v, ok := lookup(EnvCallTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCallTimeout, v, err)
		}
		data["call_timeout"] = d.String()
	}
	if v, ok := lookup(EnvAllowedURLs); ok && v != "" {
		var patterns []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		data["allowed_urls"] = patterns
	}

	return section.SetData(data)
}

// ParseViewport parses "WIDTHxHEIGHT".
func ParseViewport(v string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(v)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("viewport %q must look like 1280x720", v)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("viewport width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("viewport height %q: %w", parts[1], err)
	}
	return w, h, nil
}
