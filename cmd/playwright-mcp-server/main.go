// Package main runs the browser automation server: browser tools backed by
// Playwright, served over MCP (streamable HTTP, SSE or stdio) and over the
// HTTP session API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/entrhq/forge-playwright/pkg/browser"
	"github.com/entrhq/forge-playwright/pkg/config"
	"github.com/entrhq/forge-playwright/pkg/server"
)

const (
	version         = "0.1.0"
	defaultAddr     = ":13000"
	shutdownTimeout = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Addr             string
	Stdio            bool
	Install          bool
	InstallBrowsers  string
	MaxContentLength int
	EnvFile          string
	ShowVersion      bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("playwright-mcp-server v%s\n", version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Fatalf("Server error: %v", err)
	}
}

// parseFlags parses command line flags and environment variables
func parseFlags() *Config {
	cfg := &Config{}

	addr := os.Getenv("PLAYWRIGHT_MCP_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	flag.StringVar(&cfg.Addr, "addr", addr, "HTTP listen address (or set PLAYWRIGHT_MCP_ADDR env var)")
	flag.BoolVar(&cfg.Stdio, "stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	flag.BoolVar(&cfg.Install, "install", false, "Install the Playwright driver and browsers before starting")
	flag.StringVar(&cfg.InstallBrowsers, "browsers", "chromium", "Comma-separated browsers to install with -install")
	flag.IntVar(&cfg.MaxContentLength, "max-content-length", 100000, "Maximum characters returned by get-page-content")
	flag.StringVar(&cfg.EnvFile, "env-file", ".env", "Optional .env file to load")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "playwright-mcp-server - browser automation over MCP\n\n")
		fmt.Fprintf(os.Stderr, "Usage: playwright-mcp-server [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEndpoints:\n")
		fmt.Fprintf(os.Stderr, "  /mcp                   MCP streamable HTTP\n")
		fmt.Fprintf(os.Stderr, "  /sse                   MCP SSE\n")
		fmt.Fprintf(os.Stderr, "  /session[/{id}/{tool}] HTTP session API\n")
		fmt.Fprintf(os.Stderr, "  /healthz               health check\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  playwright-mcp-server -install\n")
		fmt.Fprintf(os.Stderr, "  playwright-mcp-server -addr 127.0.0.1:13000\n")
		fmt.Fprintf(os.Stderr, "  playwright-mcp-server -stdio\n")
	}

	flag.Parse()
	return cfg
}

// run executes the main application logic
func run(ctx context.Context, cfg *Config) error {
	if err := config.LoadDotEnv(cfg.EnvFile); err != nil {
		return err
	}

	var opts []browser.ManagerOption
	if cfg.Install {
		opts = append(opts, browser.WithInstall(splitList(cfg.InstallBrowsers)...))
	}
	manager := browser.NewManager(opts...)
	defer func() {
		if err := manager.Shutdown(); err != nil {
			log.Printf("browser shutdown: %v", err)
		}
	}()

	srv := server.New(manager.NewDriver, server.Options{
		Name:             "playwright-mcp-server",
		Version:          version,
		MaxContentLength: cfg.MaxContentLength,
	})
	defer srv.Close()

	if cfg.Stdio {
		// stdout carries the protocol; keep logs on stderr
		log.SetOutput(os.Stderr)
		return srv.RunStdio(ctx)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("playwright-mcp-server v%s listening on %s", version, cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
