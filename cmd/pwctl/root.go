package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/entrhq/forge-playwright/pkg/config"
	"github.com/entrhq/forge-playwright/pkg/plugin"
	"github.com/entrhq/forge-playwright/pkg/service"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	serverURL  string
	transport  string
	headed     bool
	timeout    time.Duration

	settings config.Settings
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pwctl",
		Short:         "Drive a Playwright MCP server from the command line",
		Long:          `pwctl runs browser actions against a Playwright MCP server, one at a time or from a YAML script.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "settings file (default ~/.forge-playwright/config.json)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "optional .env file to load")
	flags.StringVar(&opts.serverURL, "server-url", "", "override the server URL")
	flags.StringVar(&opts.transport, "transport", "", "override the transport (streamable, sse, stdio, rest)")
	flags.BoolVar(&opts.headed, "headed", false, "launch a visible browser")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall deadline for the command")

	cmd.AddCommand(
		newDoCmd(opts),
		newRunCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load resolves the effective settings: file, then environment, then flags.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return err
	}
	manager, err := config.Load(o.configPath, nil)
	if err != nil {
		return err
	}
	section := config.GetPlaywright(manager)

	overrides := make(map[string]any)
	if cmd.Flags().Changed("server-url") {
		overrides["server_url"] = o.serverURL
	}
	if cmd.Flags().Changed("transport") {
		overrides["transport"] = o.transport
	}
	if o.headed {
		overrides["headless"] = false
	}
	if err := section.SetData(overrides); err != nil {
		return err
	}
	if err := section.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	o.settings = section.Settings()
	return nil
}

// session is a started service with its plugin.
type session struct {
	svc    *service.PlaywrightService
	bundle *plugin.Bundle
}

// open starts a service from the effective settings. launch overrides the
// launch_on_start setting.
func (o *rootOptions) open(ctx context.Context, launch bool) (*session, error) {
	s := o.settings
	s.LaunchOnStart = launch

	svc, err := service.NewFromSettings(s)
	if err != nil {
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}

	bundle, err := plugin.New(svc, plugin.OptionsFromSettings(s))
	if err != nil {
		_ = svc.Stop(ctx)
		return nil, err
	}
	return &session{svc: svc, bundle: bundle}, nil
}

func (s *session) close(ctx context.Context) {
	if err := s.svc.Stop(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("close session: "+err.Error()))
	}
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
