// Package cli implements the docgen command-line interface.
//
// # Commands
//
//   - generate: render a template with a context file, converting to PDF
//   - fill: replace plain tags in a letter template
//   - batch: run many generations from a manifest
//   - chart: write a percentage ring chart
//   - inspect: list the markers a template contains
//   - evaluate: record a mentor evaluation and deliver the Anexo 5.4 report
//   - serve: run the HTTP service
//
// All commands accept --config and --verbose. The logger is passed through
// the command context.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sistemadual/docgen/internal/config"
	"github.com/sistemadual/docgen/internal/convert"
	"github.com/sistemadual/docgen/internal/pipeline"
	"github.com/sistemadual/docgen/pkg/docgen"
)

const appName = "docgen"

var version = "dev"

// SetVersion sets the version shown by --version.
func SetVersion(v string) { version = v }

// CLI holds state shared by the commands.
type CLI struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool
	cfg        *config.Config
}

// New returns a CLI printing results to out and logs to errOut.
func New(out, errOut io.Writer) *CLI {
	return &CLI{out: out, errOut: errOut}
}

// Execute runs the command line against os.Args.
func Execute(ctx context.Context) error {
	return New(os.Stdout, os.Stderr).RootCommand().ExecuteContext(ctx)
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "docgen fills DOCX templates and converts them to PDF",
		Long:          `docgen generates the documents of the dual education program from DOCX templates: training plans, evaluation reports and letters.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			level := cfg.Level()
			if c.verbose {
				level = log.DebugLevel
			}
			logger := newLogger(c.errOut, level)
			docgen.SetLogger(logger.WithPrefix("docgen"))
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultFile+" if present)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.fillCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.chartCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.evaluateCommand())
	root.AddCommand(c.serveCommand())
	return root
}

// generator builds a pipeline generator from the loaded config.
func (c *CLI) generator(logger *log.Logger, opts ...pipeline.Option) *pipeline.Generator {
	cfg := c.cfg
	base := []pipeline.Option{
		pipeline.WithTemplatesDir(cfg.Templates.Dir),
		pipeline.WithOutputDir(cfg.Output.Dir),
		pipeline.WithConversion(cfg.Converter.Enabled),
		pipeline.WithConverter(convert.NewLibreOffice(
			convert.WithCommand(cfg.Converter.Command),
			convert.WithTimeout(cfg.Converter.Timeout),
			convert.WithLogger(logger),
		)),
		pipeline.WithImageWidth(cfg.Images.WidthMM),
		pipeline.WithChartOptions(cfg.ChartOptions()),
		pipeline.WithLogger(logger),
	}
	if cfg.Output.TempDir != "" {
		base = append(base, pipeline.WithTempDir(cfg.Output.TempDir))
	}
	return pipeline.New(append(base, opts...)...)
}
