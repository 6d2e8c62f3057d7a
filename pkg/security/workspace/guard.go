// Package workspace confines files written on behalf of browser actions,
// such as screenshots, to a directory tree. It rejects paths that escape the
// workspace through "..", absolute paths or symlinks.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard resolves output paths and enforces the workspace boundary.
type Guard struct {
	workspaceDir    string   // absolute, symlinks evaluated
	whitelistedDirs []string // additional allowed directories
}

// NewGuard creates a guard rooted at workspaceDir, creating the directory
// if needed.
func NewGuard(workspaceDir string) (*Guard, error) {
	if strings.TrimSpace(workspaceDir) == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}

	absPath, err := filepath.Abs(expandHome(workspaceDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate workspace directory symlinks: %w", err)
	}

	return &Guard{workspaceDir: evalPath}, nil
}

// Resolve returns the absolute location of path inside the workspace.
// Relative paths are taken relative to the workspace directory.
func (g *Guard) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(expandHome(path))
	absPath := cleanPath
	if !filepath.IsAbs(cleanPath) {
		absPath = filepath.Join(g.workspaceDir, cleanPath)
	}

	resolved := resolveSymlinks(absPath)
	if !g.IsWithinWorkspace(resolved) {
		return "", fmt.Errorf("path '%s' is outside workspace boundaries", path)
	}
	if resolved == g.workspaceDir {
		return "", fmt.Errorf("path '%s' is the workspace directory, not a file", path)
	}
	return resolved, nil
}

// IsWithinWorkspace reports whether absPath is the workspace, a child of
// it, or inside a whitelisted directory.
func (g *Guard) IsWithinWorkspace(absPath string) bool {
	evalPath := resolveSymlinks(absPath)

	if within(evalPath, g.workspaceDir) {
		return true
	}
	for _, whitelisted := range g.whitelistedDirs {
		if within(evalPath, whitelisted) {
			return true
		}
	}
	return false
}

// AddWhitelist allows writes below dir even though it lies outside the
// workspace.
func (g *Guard) AddWhitelist(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("whitelist directory cannot be empty")
	}
	absPath, err := filepath.Abs(expandHome(dir))
	if err != nil {
		return fmt.Errorf("failed to resolve whitelist directory: %w", err)
	}

	evalPath := resolveSymlinks(absPath)
	for _, existing := range g.whitelistedDirs {
		if existing == evalPath {
			return nil
		}
	}
	g.whitelistedDirs = append(g.whitelistedDirs, evalPath)
	return nil
}

// WorkspaceDir returns the absolute path of the workspace directory.
func (g *Guard) WorkspaceDir() string {
	return g.workspaceDir
}

func within(path, dir string) bool {
	sep := string(filepath.Separator)
	return path == dir || strings.HasPrefix(path+sep, strings.TrimSuffix(dir, sep)+sep)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// resolveSymlinks evaluates symlinks in path. For paths that do not exist
// yet it resolves the deepest existing ancestor and re-appends the rest.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	var components []string
	current := path
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(components) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, components[i])
			}
			return resolved
		}

		dir := filepath.Dir(current)
		if dir == current || dir == "." {
			return filepath.Clean(path)
		}
		components = append(components, filepath.Base(current))
		current = dir
	}
}
