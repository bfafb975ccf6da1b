package cli

import (
	"github.com/spf13/cobra"

	"github.com/sistemadual/docgen/internal/pipeline"
)

type generateOptions struct {
	context   string
	outputDir string
	name      string
	profile   string
	noConvert bool
	charts    map[string]int
}

func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate TEMPLATE",
		Short: "Fill a template with a context file and convert it to PDF",
		Long: `Fill a DOCX template with a YAML or JSON context. Training plan and
evaluation templates are detected by name and get their tables built before
rendering. The filled document is converted to PDF when LibreOffice is
available.`,
		Example: `  docgen generate Anexo_5.1_Plan.docx -c alumno.yaml
  docgen generate Anexo_5.4_Reporte_de_Actividades.docx -c eval.yaml --chart grafica_ue=85`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.context, "context", "c", "", "YAML or JSON context file (- for stdin)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&opts.name, "name", "", "artifact name without extension")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "marker profile (anexo51, anexo54); detected from the name by default")
	cmd.Flags().BoolVar(&opts.noConvert, "no-convert", false, "skip PDF conversion")
	cmd.Flags().StringToIntVar(&opts.charts, "chart", nil, "render a ring chart into a context key (key=percent)")
	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, template string, opts generateOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	data, err := loadContext(opts.context, cmd.InOrStdin())
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Template:   template,
		Profile:    opts.profile,
		Context:    data,
		OutputDir:  opts.outputDir,
		OutputName: opts.name,
		Charts:     opts.charts,
	}
	if opts.noConvert {
		off := false
		req.Convert = &off
	}

	spin := newSpinner(ctx, c.errOut, "Generating "+template)
	spin.Start()
	prog := newProgress(logger)
	res, err := c.generator(logger).Generate(ctx, req)
	spin.Stop()
	if err != nil {
		printError(c.out, "%s", res.Message)
		return err
	}
	prog.done("generated " + template)
	reportResult(c, res)
	return nil
}

func reportResult(c *CLI, res pipeline.Result) {
	if res.Converted {
		printSuccess(c.out, "%s", res.Message)
	} else {
		printWarning(c.out, "%s", res.Message)
	}
	printFile(c.out, res.Path)
}
