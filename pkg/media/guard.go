package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard confines local image paths to a set of allowed directories. A nil
// Guard, or one without directories, allows every path.
type Guard struct {
	roots []string
}

// NewGuard creates a guard over dirs.
func NewGuard(dirs ...string) (*Guard, error) {
	g := &Guard{}
	for _, dir := range dirs {
		if err := g.Allow(dir); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Allow adds a directory. It may not exist yet.
func (g *Guard) Allow(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("allowed directory cannot be empty")
	}
	abs, err := absolute(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve allowed directory: %w", err)
	}
	root := resolveSymlinks(abs)
	for _, existing := range g.roots {
		if existing == root {
			return nil
		}
	}
	g.roots = append(g.roots, root)
	return nil
}

// Roots returns a copy of the allowed directories.
func (g *Guard) Roots() []string {
	if g == nil {
		return nil
	}
	roots := make([]string, len(g.roots))
	copy(roots, g.roots)
	return roots
}

// Contains reports whether path is inside an allowed directory.
func (g *Guard) Contains(path string) bool {
	if g == nil || len(g.roots) == 0 {
		return true
	}
	abs, err := absolute(path)
	if err != nil {
		return false
	}
	resolved := resolveSymlinks(abs)
	sep := string(filepath.Separator)
	for _, root := range g.roots {
		if resolved == root || strings.HasPrefix(resolved+sep, root+sep) {
			return true
		}
	}
	return false
}

// Check returns a *ResourceError for the first non-empty path outside the
// allowed directories.
func (g *Guard) Check(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !g.Contains(p) {
			return &ResourceError{Path: p, Reason: "outside the allowed image directories"}
		}
	}
	return nil
}

func absolute(path string) (string, error) {
	switch {
	case path == "~":
		return os.UserHomeDir()
	case strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}

// resolveSymlinks evaluates symlinks in path. For paths that do not exist the
// nearest existing parent is resolved and the remaining components appended.
func resolveSymlinks(path string) string {
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
		if dir == current {
			return filepath.Clean(path)
		}
		components = append(components, filepath.Base(current))
		current = dir
	}
}
