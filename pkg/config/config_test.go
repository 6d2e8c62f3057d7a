package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, sections map[string]map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	raw, err := json.Marshal(map[string]any{"version": "1.0", "sections": sections})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	manager, err := Load(path, envMap(nil))
	require.NoError(t, err)

	got := GetPlaywright(manager).Settings()
	assert.Equal(t, DefaultSettings(), got)
	assert.Equal(t, "http://localhost:13000/mcp", got.Endpoint())
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := writeConfig(t, map[string]map[string]any{
		SectionIDPlaywright: {
			"server_url":   "http://automation:9000",
			"transport":    "rest",
			"browser_type": "firefox",
			"headless":     false,
		},
	})

	manager, err := Load(path, envMap(map[string]string{
		EnvTransport:     "sse",
		EnvViewport:      "800x600",
		EnvAllowedURLs:   "https://example.com/*, https://*.test/*",
		EnvScreenshotDir: "/var/shots",
	}))
	require.NoError(t, err)

	got := GetPlaywright(manager).Settings()
	assert.Equal(t, "http://automation:9000", got.ServerURL)
	assert.Equal(t, TransportSSE, got.Transport)
	assert.Equal(t, BrowserFirefox, got.BrowserType)
	assert.False(t, got.Headless)
	assert.Equal(t, 800, got.ViewportWidth)
	assert.Equal(t, 600, got.ViewportHeight)
	assert.Equal(t, []string{"https://example.com/*", "https://*.test/*"}, got.AllowedURLs)
	assert.Equal(t, "/var/shots", got.ScreenshotDir)
	assert.Equal(t, "http://automation:9000/sse", got.Endpoint())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown transport", map[string]string{EnvTransport: "carrier-pigeon"}},
		{"unknown browser", map[string]string{EnvBrowserType: "netscape"}},
		{"stdio without command", map[string]string{EnvTransport: "stdio"}},
		{"bad scheme", map[string]string{EnvServerURL: "ftp://localhost"}},
		{"bad headless", map[string]string{EnvHeadless: "sometimes"}},
		{"bad viewport", map[string]string{EnvViewport: "wide"}},
		{"bad timeout", map[string]string{EnvCallTimeout: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(filepath.Join(t.TempDir(), "c.json"), envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		url, transport, want string
	}{
		{"http://localhost:13000", TransportStreamable, "http://localhost:13000/mcp"},
		{"http://localhost:13000/", TransportSSE, "http://localhost:13000/sse"},
		{"http://localhost:13000/custom", TransportStreamable, "http://localhost:13000/custom"},
		{"http://localhost:13000", TransportREST, "http://localhost:13000"},
	}
	for _, tt := range tests {
		t.Run(tt.transport+" "+tt.url, func(t *testing.T) {
			s := DefaultSettings()
			s.ServerURL, s.Transport = tt.url, tt.transport
			assert.Equal(t, tt.want, s.Endpoint())
		})
	}
}

func TestPlaywrightSectionRoundTrip(t *testing.T) {
	section := NewPlaywrightSection()
	require.NoError(t, section.SetData(map[string]any{
		"call_timeout":   "5s",
		"viewport_width": float64(1024),
		"allowed_urls":   []any{"https://a.test/*"},
	}))

	data := section.Data()
	assert.Equal(t, "5s", data["call_timeout"])
	assert.Equal(t, 1024, data["viewport_width"])

	other := NewPlaywrightSection()
	require.NoError(t, other.SetData(data))
	assert.Equal(t, section.Settings(), other.Settings())
	assert.Equal(t, 5*time.Second, other.Settings().CallTimeout)

	other.Reset()
	assert.Equal(t, DefaultSettings(), other.Settings())
}

func TestPlaywrightSectionRejectsWrongTypes(t *testing.T) {
	section := NewPlaywrightSection()

	assert.Error(t, section.SetData(map[string]any{"headless": "yes"}))
	assert.Error(t, section.SetData(map[string]any{"viewport_width": 12.5}))
	assert.Error(t, section.SetData(map[string]any{"allowed_urls": []any{1}}))

	// a failed update leaves the previous settings untouched
	assert.Equal(t, DefaultSettings(), section.Settings())
}

func TestManagerSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	manager := NewManager(store)
	section := NewPlaywrightSection()
	require.NoError(t, manager.RegisterSection(section))
	assert.Error(t, manager.RegisterSection(NewPlaywrightSection()))

	require.NoError(t, section.SetData(map[string]any{"transport": "rest"}))
	require.NoError(t, manager.SaveAll())
	assert.False(t, store.IsModified())

	reloaded, err := Load(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, TransportREST, GetPlaywright(reloaded).Settings().Transport)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FORGE_PLAYWRIGHT_DOTENV_TEST=loaded\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("FORGE_PLAYWRIGHT_DOTENV_TEST") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env"), envFile))
	assert.Equal(t, "loaded", os.Getenv("FORGE_PLAYWRIGHT_DOTENV_TEST"))
}

func TestParseViewport(t *testing.T) {
	w, h, err := ParseViewport("1920X1080")
	require.NoError(t, err)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	_, _, err = ParseViewport("1920")
	assert.Error(t, err)
}
