package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cutscene-compiler/pkg/condition"
	"github.com/devicelab-dev/cutscene-compiler/pkg/logger"
)

var evalCommand = &cli.Command{
	Name:  "eval",
	Usage: "Evaluate a branch condition against variables",
	Description: `Evaluate a branch condition the way the engine would, with the given
variables in scope. Undefined identifiers evaluate to undefined. Values
that parse as JSON keep their type; everything else is a string.

Examples:
  cutscene eval --expr "coins > 10" --var coins=12
  cutscene eval --expr "door === 'open'" --var door=open --exit-code`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "expr",
			Usage:    "Condition expression",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:    "var",
			Aliases: []string{"v"},
			Usage:   "Variables (KEY=VALUE)",
		},
		&cli.BoolFlag{
			Name:  "exit-code",
			Usage: "Exit with code 1 when the condition is false",
		},
	},
	Action: runEval,
}

func runEval(c *cli.Context) error {
	expr := c.String("expr")
	vars, err := parseVars(c.StringSlice("var"))
	if err != nil {
		return err
	}

	e := condition.New()
	e.SetVariables(vars)
	result, err := e.Eval(expr)
	if err != nil {
		logger.Error("eval %q: %v", expr, err)
		return err
	}
	logger.Debug("eval %q with %d vars = %v", expr, len(vars), result)

	fmt.Fprintln(c.App.Writer, result)
	if !result && c.Bool("exit-code") {
		return cli.Exit("", 1)
	}
	return nil
}
