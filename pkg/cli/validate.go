package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cutscene-compiler/pkg/logger"
	"github.com/devicelab-dev/cutscene-compiler/pkg/report"
	"github.com/devicelab-dev/cutscene-compiler/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check graph documents for problems",
	ArgsUsage: "<graph-file-or-folder>...",
	Description: `Run every validation rule against one or more graph documents and print
the findings. Exits with code 1 if any document has errors or cannot be loaded.

Examples:
  cutscene validate scenes/intro.json
  cutscene validate scenes/
  cutscene validate --report ./reports --flatten scenes/
  cutscene validate --format json scenes/intro.json`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write report.json into this directory (a timestamp subfolder unless --flatten)",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder (requires --report)",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format (text, json)",
			Value: "text",
		},
	},
	Action: runValidate,
}

func runValidate(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one graph file or folder is required")
	}
	format := c.String("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q, want text or json", format)
	}

	var reportDir string
	if c.IsSet("report") || c.Bool("flatten") {
		dir, err := resolveOutputDir(c.String("report"), c.Bool("flatten"))
		if err != nil {
			return err
		}
		reportDir = dir
	}

	files, err := collectGraphFiles(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no graph documents found")
	}
	logger.Info("validate: %d documents", len(files))

	idx, err := validateFiles(c, files)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(idx, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, string(data))
	default:
		printReport(c.App.Writer, idx)
	}

	if reportDir != "" {
		path := filepath.Join(reportDir, report.DefaultFileName)
		if err := report.Write(path, idx); err != nil {
			return err
		}
		logger.Info("report written to %s", path)
		if format == "text" {
			fmt.Fprintf(c.App.Writer, "\n  Report: %s\n", path)
		}
	}

	if idx.Status.IsFailure() {
		logger.Warn("validate: %s", idx.Status)
		return cli.Exit("", 1)
	}
	return nil
}

// validateFiles loads and validates documents concurrently. Each document
// uses the workspace configuration nearest to it.
func validateFiles(c *cli.Context, files []string) (*report.Index, error) {
	b := report.NewBuilder(AppName, Version)

	// Resolve configuration up front so a bad config file fails the run
	// instead of individual documents.
	validators := make([]*validator.Validator, len(files))
	for i, path := range files {
		cfg, err := loadConfig(c, path)
		if err != nil {
			return nil, err
		}
		validators[i] = validator.New(cfg.ValidatorOptions())
	}

	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			doc, err := loadDocument(path)
			if err != nil {
				b.AddFailure(i, path, err)
				return
			}
			r := validators[i].Validate(doc.Graph())
			logger.Debug("validated %s: %d diagnostics", path, len(r.Diagnostics))
			b.Add(i, path, doc.Title, r)
		}(i, path)
	}
	wg.Wait()

	return b.Build(), nil
}
