// Package workspace provides workgraph directory detection.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound indicates no workgraph directory was found.
var ErrNotFound = errors.New("not in a workgraph workspace")

// Marker is the directory that identifies a workgraph root within a project.
const Marker = ".workgraph"

// Resolve determines the workgraph directory for a command.
//
// An explicit dir (the global --dir flag) wins and is used verbatim: it may
// be a bare workgraph directory or a project root containing .workgraph/.
// Otherwise the marker is searched by walking up from the current directory.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		marker := filepath.Join(explicit, Marker)
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return marker, nil
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return Find(cwd)
}

// Find locates the workgraph directory by walking up from startDir looking
// for a .workgraph marker. Symlinks are not resolved, staying consistent
// with os.Getwd().
func Find(startDir string) (string, error) {
	current, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		marker := filepath.Join(current, Marker)
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return marker, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w (run 'wg init' or pass --dir)", ErrNotFound)
		}
		current = parent
	}
}

// HomeDir returns the caller's home directory via $HOME, falling back to
// os.UserHomeDir. $HOME wins so tests and service units can redirect it.
func HomeDir() (string, error) {
	if home := os.Getenv("HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return home, nil
}
