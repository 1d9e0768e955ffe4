package testutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ProjectRootEnv overrides project root detection.
const ProjectRootEnv = "DUEWATCH_PROJECT_ROOT"

// GoModFile marks the project root.
const GoModFile = "go.mod"

var (
	ErrProjectRootNotFound = errors.New("unable to find project root")
	ErrInvalidProjectRoot  = errors.New("invalid project root: no go.mod file found")
)

// FindProjectRoot returns the directory holding go.mod. DUEWATCH_PROJECT_ROOT
// wins when set; otherwise it walks upward from the working directory.
func FindProjectRoot() (string, error) {
	if root := os.Getenv(ProjectRootEnv); root != "" {
		if !fileExists(filepath.Join(root, GoModFile)) {
			return "", fmt.Errorf("%w at %s", ErrInvalidProjectRoot, root)
		}
		return root, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return findProjectRootFrom(wd)
}

func findProjectRootFrom(dir string) (string, error) {
	for {
		if fileExists(filepath.Join(dir, GoModFile)) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrProjectRootNotFound
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
