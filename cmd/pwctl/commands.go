package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/forge-playwright/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDoCmd(opts *rootOptions) *cobra.Command {
	var noLaunch bool

	cmd := &cobra.Command{
		Use:   "do ACTION [key=value...]",
		Short: "Run a single browser action",
		Example: `  pwctl do NAVIGATE url=https://example.com
  pwctl do CLICK selector=#submit --no-launch
  pwctl do SCREENSHOT path=shot.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			step := Step{Action: strings.ToUpper(args[0]), Content: content}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			s, err := opts.open(ctx, !noLaunch)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			failed, err := runSteps(ctx, s.bundle.Plugin, []Step{step}, true, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%s failed", step.Action)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noLaunch, "no-launch", false, "do not launch a browser before the action")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var stopOnError bool

	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Run the steps of a YAML script in one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := LoadScript(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("stop-on-error") {
				script.StopOnError = stopOnError
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			s, err := opts.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Running %d steps from %s", len(script.Steps), args[0])))

			start := time.Now()
			failed, err := runSteps(ctx, s.bundle.Plugin, script.Steps, script.StopOnError, out)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, lipgloss.NewStyle().Foreground(mutedGray).Render(
				fmt.Sprintf("done in %s", time.Since(start).Round(time.Millisecond))))
			if failed > 0 {
				return fmt.Errorf("%d of %d steps failed", failed, len(script.Steps))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort at the first failed step")
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Open a session and show what the server offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			s, err := opts.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			client := s.svc.Client()
			info := client.Session()
			id := info.ID
			if id == "" {
				id = "(none)"
			}

			actions := make([]string, 0, len(s.bundle.Plugin.Actions))
			for _, a := range s.bundle.Plugin.Actions {
				actions = append(actions, a.Name)
			}

			body := lipgloss.JoinVertical(lipgloss.Left,
				headerStyle.Render("Playwright session"),
				row("transport", client.Transport()),
				row("endpoint", opts.settings.Endpoint()),
				row("session", id),
				row("state", info.State.String()),
				row("actions", strings.Join(actions, ", ")),
			)
			fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(body))
			return nil
		},
	}
}

// settingsView is the YAML rendering of config.Settings.
type settingsView struct {
	ServerURL        string   `yaml:"server_url"`
	Transport        string   `yaml:"transport"`
	Endpoint         string   `yaml:"endpoint"`
	Command          string   `yaml:"command,omitempty"`
	BrowserType      string   `yaml:"browser_type"`
	Headless         bool     `yaml:"headless"`
	Viewport         string   `yaml:"viewport"`
	LaunchOnStart    bool     `yaml:"launch_on_start"`
	AllowedURLs      []string `yaml:"allowed_urls,omitempty"`
	ScreenshotDir    string   `yaml:"screenshot_dir,omitempty"`
	MaxRetries       int      `yaml:"max_retries"`
	CallTimeout      string   `yaml:"call_timeout"`
	MaxContentLength int      `yaml:"max_content_length"`
}

func newSettingsView(s config.Settings) settingsView {
	return settingsView{
		ServerURL:        s.ServerURL,
		Transport:        s.Transport,
		Endpoint:         s.Endpoint(),
		Command:          s.Command,
		BrowserType:      s.BrowserType,
		Headless:         s.Headless,
		Viewport:         fmt.Sprintf("%dx%d", s.ViewportWidth, s.ViewportHeight),
		LaunchOnStart:    s.LaunchOnStart,
		AllowedURLs:      s.AllowedURLs,
		ScreenshotDir:    s.ScreenshotDir,
		MaxRetries:       s.MaxRetries,
		CallTimeout:      s.CallTimeout.String(),
		MaxContentLength: s.MaxContentLength,
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(newSettingsView(opts.settings))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
