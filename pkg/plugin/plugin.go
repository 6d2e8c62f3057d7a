// Package plugin assembles the browser actions and the Playwright service
// into a plugin a host framework can register.
package plugin

import (
	"github.com/entrhq/forge-playwright/pkg/actions"
	"github.com/entrhq/forge-playwright/pkg/config"
	"github.com/entrhq/forge-playwright/pkg/service"
	"github.com/entrhq/forge-playwright/pkg/tools"
	"github.com/entrhq/forge-playwright/pkg/types"
)

// Name is the plugin name.
const Name = "PLAYWRIGHT"

// Description is the plugin description shown to hosts.
const Description = "Browser automation through a Playwright MCP server: navigate, click, type, select, screenshot and read page content."

// Options configures the actions of the plugin.
type Options struct {
	AllowedURLs      []string
	MaxContentLength int

	// ScreenshotDir confines screenshot files to a directory when set.
	ScreenshotDir string
}

// OptionsFromSettings returns the action options in s.
func OptionsFromSettings(s config.Settings) Options {
	return Options{
		AllowedURLs:      s.AllowedURLs,
		MaxContentLength: s.MaxContentLength,
		ScreenshotDir:    s.ScreenshotDir,
	}
}

// Bundle is the assembled plugin together with the adapter its actions
// run on.
type Bundle struct {
	Plugin  *types.Plugin
	Adapter *actions.Adapter
}

// New builds the plugin around svc. The actions invoke tools through the
// service's client using the service's tool names.
func New(svc *service.PlaywrightService, opts Options) (*Bundle, error) {
	adapter, err := actions.New(svc.Client(), actions.Options{
		ToolNames:        svc.ToolNames(),
		AllowedURLs:      opts.AllowedURLs,
		MaxContentLength: opts.MaxContentLength,
		ScreenshotDir:    opts.ScreenshotDir,
	})
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Plugin: &types.Plugin{
			Name:        Name,
			Description: Description,
			Actions:     adapter.Actions(),
			Services:    []types.Service{svc},
		},
		Adapter: adapter,
	}, nil
}

// Tools returns the plugin's actions as XML tools.
func (b *Bundle) Tools() []tools.Tool {
	return b.Adapter.Tools()
}
