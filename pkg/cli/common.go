package cli

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cutscene-compiler/pkg/config"
	"github.com/devicelab-dev/cutscene-compiler/pkg/graph"
	"github.com/devicelab-dev/cutscene-compiler/pkg/logger"
)

// loadConfig returns the --config file if given, otherwise the workspace
// configuration nearest to graphPath.
func loadConfig(c *cli.Context, graphPath string) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		logger.Debug("config: %s", path)
		return cfg, nil
	}

	cfg, err := config.LoadForPath(graphPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadDocument parses a graph document.
func loadDocument(path string) (*graph.Document, error) {
	doc, err := graph.ParseFile(path)
	if err != nil {
		logger.Error("load %s: %v", path, err)
		return nil, err
	}
	logger.Debug("loaded %s: version %s, %d nodes, %d edges", path, doc.Version, len(doc.Nodes), len(doc.Edges))
	return doc, nil
}

// singleArg returns the one graph path a command operates on.
func singleArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("exactly one graph file is required")
	}
	return c.Args().First(), nil
}

// collectGraphFiles expands directories into the graph documents they
// contain, sorted by path. Workspace config files are skipped.
func collectGraphFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isGraphFile(path) {
				return nil
			}
			found = append(found, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func isGraphFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range config.FileNames {
		if base == name {
			return false
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// parseVars parses KEY=VALUE pairs. Values that decode as JSON keep their
// type, everything else is a string.
func parseVars(vars []string) (map[string]any, error) {
	result := make(map[string]any, len(vars))
	for _, v := range vars {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid variable %q, want KEY=VALUE", v)
		}
		var decoded any
		if err := json.Unmarshal([]byte(parts[1]), &decoded); err == nil {
			result[parts[0]] = decoded
		} else {
			result[parts[0]] = parts[1]
		}
	}
	return result, nil
}

// resolveOutputDir determines the report directory based on flags.
// - --report given: <report>/<timestamp>/
// - --report + --flatten: <report>/
func resolveOutputDir(output string, flatten bool) (string, error) {
	if flatten && output == "" {
		return "", fmt.Errorf("--flatten requires --report to be specified")
	}
	if flatten {
		return filepath.Clean(output), nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(output, timestamp), nil
}
