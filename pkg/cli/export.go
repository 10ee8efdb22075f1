package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/export"
	"github.com/devicelab-dev/cutscene-compiler/pkg/logger"
	"github.com/devicelab-dev/cutscene-compiler/pkg/report"
	"github.com/devicelab-dev/cutscene-compiler/pkg/validator"
)

var exportCommand = &cli.Command{
	Name:      "export",
	Usage:     "Validate, compile and write the engine cutscene file",
	ArgsUsage: "<graph-file>",
	Description: `Validate the graph, refuse to export while it has errors, compile it and
write the cutscene envelope.

Output:
  - No --output and no config output: stdout
  - --output ending in .json: that file
  - --output directory (or config output): <dir>/<cutscene_id>.json

Examples:
  cutscene export scenes/intro.json
  cutscene export --output build/ scenes/intro.json
  cutscene export --title "Opening Scene" --fps 30 scenes/intro.json`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file or directory",
		},
		&cli.StringFlag{
			Name:  "title",
			Usage: "Override the document title used for the cutscene id",
		},
		&cli.IntFlag{
			Name:  "fps",
			Usage: "Simulation rate (overrides config)",
		},
		markNamedNodesFlag,
		&cli.BoolFlag{
			Name:  "compact",
			Usage: "Write canonical JSON without indentation",
		},
	},
	Action: runExport,
}

func runExport(c *cli.Context) error {
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
	g := doc.Graph()

	r := validator.New(cfg.ValidatorOptions()).Validate(g)
	if r.HasErrors() {
		b := report.NewBuilder(AppName, Version)
		b.Add(0, path, doc.Title, r)
		printReport(c.App.ErrWriter, b.Build())
		logger.Warn("export refused: %d errors", r.Count(core.SeverityError))
		return cli.Exit("export refused: graph has validation errors", 1)
	}

	actions, err := compileGraph(c, cfg, g)
	if err != nil {
		return err
	}

	title := doc.Title
	if c.IsSet("title") {
		title = c.String("title")
	}
	fps := cfg.FPS
	if c.IsSet("fps") {
		fps = c.Int("fps")
	}
	cutscene := export.ExportWithFPS(title, actions, fps)

	var data []byte
	if c.Bool("compact") {
		data, err = export.Marshal(cutscene)
	} else {
		data, err = export.MarshalIndent(cutscene, "  ")
	}
	if err != nil {
		return err
	}
	if err := export.CheckEnvelope(data); err != nil {
		return err
	}

	out := exportPath(c.String("output"), cfg.Output, cutscene.CutsceneID)
	if out == "" {
		_, err := c.App.Writer.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write cutscene: %w", err)
	}
	logger.Info("exported %s to %s", cutscene.CutsceneID, out)
	fmt.Fprintf(c.App.ErrWriter, "  %s✓%s %s -> %s\n", color(colorGreen), color(colorReset), cutscene.CutsceneID, out)
	return nil
}

// exportPath resolves where the envelope goes. An empty result means stdout.
func exportPath(flag, configured, id string) string {
	target := flag
	if target == "" {
		target = configured
	}
	if target == "" {
		return ""
	}
	if strings.EqualFold(filepath.Ext(target), ".json") {
		return target
	}
	return filepath.Join(target, id+".json")
}
