package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// OutputWriter persists saved output under a file name.
type OutputWriter interface {
	Write(name string, content []byte) (string, error)
}

// FileWriter writes into Dir, creating it on demand.
type FileWriter struct {
	Dir string
}

// Write replaces <Dir>/<name> and returns its absolute path.
func (w FileWriter) Write(name string, content []byte) (string, error) {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare output directory: %w", err)
	}
	path := filepath.Join(absDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}
