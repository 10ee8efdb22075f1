// Package cli provides the command-line interface for the cutscene tools.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cutscene-compiler/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// AppName is the binary name.
const AppName = "cutscene"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to workspace cutscene.yaml (default: nearest to the graph file)",
		EnvVars: []string{"CUTSCENE_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable debug logging",
		EnvVars: []string{"CUTSCENE_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write logs to this file",
		EnvVars: []string{"CUTSCENE_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the CLI application writing to the given streams.
func NewApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:    AppName,
		Usage:   "Validate, compile and export cutscene graphs",
		Version: Version,
		Description: `Cutscene turns node graphs authored in the editor into the flat action
lists the engine plays back.

Examples:
  cutscene validate scenes/
  cutscene compile scenes/intro.json
  cutscene export --output build/ scenes/intro.json
  cutscene eval --expr "hasKey && door == 'open'" --var hasKey=true --var door=open`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			validateCommand,
			compileCommand,
			exportCommand,
			evalCommand,
		},
		Writer:    stdout,
		ErrWriter: stderr,
		Before:    setup,
		After: func(*cli.Context) error {
			logger.Close()
			return nil
		},
		// Exit codes are handled by Execute.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func setup(c *cli.Context) error {
	if c.Bool("no-ansi") {
		colorsEnabled = false
	}
	if path := c.String("log-file"); path != "" {
		if err := logger.Init(path); err != nil {
			return err
		}
	}
	logger.SetDebug(c.Bool("verbose"))
	logger.Debug("%s %s starting", AppName, Version)
	return nil
}

// Execute runs the CLI.
func Execute() {
	app := NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitCode reports err and maps it to a process exit code.
func exitCode(err error, stderr io.Writer) int {
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintf(stderr, "Error: %s\n", msg)
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
