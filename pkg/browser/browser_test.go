package browser

import (
	"context"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchOptionsWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   LaunchOptions
		want LaunchOptions
	}{
		{
			name: "zero value",
			in:   LaunchOptions{},
			want: LaunchOptions{BrowserType: "chromium", Viewport: Viewport{Width: 1280, Height: 720}, Timeout: DefaultTimeout},
		},
		{
			name: "keeps explicit values",
			in:   LaunchOptions{BrowserType: "webkit", Headless: true, Viewport: Viewport{Width: 800, Height: 600}, Timeout: 5000},
			want: LaunchOptions{BrowserType: "webkit", Headless: true, Viewport: Viewport{Width: 800, Height: 600}, Timeout: 5000},
		},
		{
			name: "partial viewport falls back",
			in:   LaunchOptions{BrowserType: "firefox", Viewport: Viewport{Width: 800}},
			want: LaunchOptions{BrowserType: "firefox", Viewport: Viewport{Width: 1280, Height: 720}, Timeout: DefaultTimeout},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.withDefaults())
		})
	}
}

func TestEngine(t *testing.T) {
	pw := &playwright.Playwright{}

	_, err := engine(pw, "chromium")
	assert.NoError(t, err)
	_, err = engine(pw, "firefox")
	assert.NoError(t, err)
	_, err = engine(pw, "webkit")
	assert.NoError(t, err)

	_, err = engine(pw, "netscape")
	assert.ErrorContains(t, err, `unsupported browser type "netscape"`)
}

func TestSessionClosedOperations(t *testing.T) {
	m := NewManager()
	s := m.NewSession()
	assert.Equal(t, 1, m.Active())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, m.Active())

	ctx := context.Background()
	_, err := s.Navigate(ctx, "https://example.com", NavigateOptions{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Click(ctx, "#a"), ErrClosed)
	assert.ErrorIs(t, s.Type(ctx, "#a", "x"), ErrClosed)
	_, err = s.Select(ctx, "#a", "x")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Screenshot(ctx, ScreenshotOptions{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Content(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Launch(ctx, LaunchOptions{}), ErrClosed)
}

func TestSessionHonorsCanceledContext(t *testing.T) {
	s := NewManager().NewSession()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Content(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManagerShutdown(t *testing.T) {
	m := NewManager(WithInstall("chromium"))
	assert.True(t, m.install)
	assert.Equal(t, []string{"chromium"}, m.browsers)

	d := m.NewDriver()
	_ = m.NewDriver()
	assert.Equal(t, 2, m.Active())

	require.NoError(t, m.Shutdown())
	assert.Equal(t, 0, m.Active())

	_, err := m.runtime(context.Background())
	assert.ErrorIs(t, err, ErrShutdown)
	assert.ErrorIs(t, d.Click(context.Background(), "#a"), ErrClosed)
}
