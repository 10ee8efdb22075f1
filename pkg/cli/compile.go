package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cutscene-compiler/pkg/compiler"
	"github.com/devicelab-dev/cutscene-compiler/pkg/config"
	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/graph"
	"github.com/devicelab-dev/cutscene-compiler/pkg/logger"
)

var markNamedNodesFlag = &cli.BoolFlag{
	Name:  "mark-named-nodes",
	Usage: "Emit mark_node before every named node (overrides config)",
}

var compileCommand = &cli.Command{
	Name:      "compile",
	Usage:     "Compile a graph document and print the action list",
	ArgsUsage: "<graph-file>",
	Description: `Compile a graph into the engine action list and print it as JSON.
Compilation does not run the validator; it fails on the first structural
problem and names the offending node or edge.

Examples:
  cutscene compile scenes/intro.json
  cutscene compile --compact scenes/intro.yaml`,
	Flags: []cli.Flag{
		markNamedNodesFlag,
		&cli.BoolFlag{
			Name:  "compact",
			Usage: "Print without indentation",
		},
	},
	Action: runCompile,
}

func runCompile(c *cli.Context) error {
	path, err := singleArg(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, path)
	if err != nil {
		return err
	}
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}

	actions, err := compileGraph(c, cfg, doc.Graph())
	if err != nil {
		return err
	}

	var data []byte
	if c.Bool("compact") {
		data, err = json.Marshal(actions)
	} else {
		data, err = json.MarshalIndent(actions, "", "  ")
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}

// compileGraph compiles g with config settings and flag overrides. Compile
// errors become exit code 2 so scripts can tell them apart from usage errors.
func compileGraph(c *cli.Context, cfg *config.Config, g *graph.Graph) ([]compiler.Action, error) {
	opts := cfg.CompilerOptions()
	if c.IsSet(markNamedNodesFlag.Name) {
		opts.MarkNamedNodes = c.Bool(markNamedNodesFlag.Name)
	}

	actions, err := compiler.Compile(g, opts)
	if err != nil {
		var ce *core.CompileError
		if errors.As(err, &ce) {
			logger.Error("compile failed: category=%s code=%s node=%s edge=%s", ce.Category, ce.Code, ce.NodeID, ce.EdgeID)
		}
		return nil, cli.Exit(fmt.Sprintf("compile failed: %v", err), 2)
	}
	logger.Info("compiled %d top-level actions", len(actions))
	return actions, nil
}
