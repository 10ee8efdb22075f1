package config

import (
	"os"
	"path/filepath"
)

const envWorkspace = "CUTSCENE_WORKSPACE"

// FindWorkspace returns the directory whose configuration applies to files
// under start.
//
// Resolution order:
//  1. $CUTSCENE_WORKSPACE environment variable
//  2. Nearest ancestor of start (inclusive) holding cutscene.yaml or cutscene.yml
//  3. start itself
func FindWorkspace(start string) string {
	if env := os.Getenv(envWorkspace); env != "" {
		return env
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir

	for {
		if _, ok := findInDir(dir); ok {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return origin
		}
		dir = parent
	}
}

// LoadForPath loads the workspace configuration applying to path.
func LoadForPath(path string) (*Config, error) {
	return LoadFromDir(FindWorkspace(path))
}
