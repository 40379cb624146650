package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the host-side directory mounted into every sandbox run.
// It is the only channel for large or structured data between pipeline
// stages; stdout is reserved for the final JSON signal.
type Workspace struct {
	dir string
}

// Resolve validates the configured base directory and returns it as an
// absolute path, creating it if it does not exist yet.
func Resolve(path string) (*Workspace, error) {
	if path == "" {
		return nil, errors.New("workspace directory not configured")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory %q: %w", path, err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory %q: %w", abs, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat workspace directory %q: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace path %q is not a directory", abs)
	}

	return &Workspace{dir: abs}, nil
}

// Dir returns the absolute host path of the workspace.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the host path of a named artifact. Only the base name is
// used, so artifact names cannot escape the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// Has reports whether a named artifact exists in the workspace.
func (w *Workspace) Has(name string) bool {
	info, err := os.Stat(w.Path(name))
	return err == nil && !info.IsDir()
}

// Reset deletes the named artifacts left over from a previous run.
// Missing files are not an error.
func (w *Workspace) Reset(names ...string) error {
	for _, name := range names {
		if err := os.Remove(w.Path(name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale artifact %s: %w", name, err)
		}
	}
	return nil
}
