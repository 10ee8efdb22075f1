package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileName is the report file written into an output directory.
const DefaultFileName = "report.json"

// Write writes the index to path atomically, creating parent directories.
func Write(path string, idx *Index) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := atomicWriteJSON(path, idx); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Read loads an index written by Write.
func Read(path string) (*Index, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided report file
	if err != nil {
		return nil, err
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &idx, nil
}

// atomicWriteJSON writes v to a temp file in the target directory and
// renames it into place.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
