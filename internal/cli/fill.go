package cli

import (
	"github.com/spf13/cobra"

	"github.com/sistemadual/docgen/internal/pipeline"
	"github.com/sistemadual/docgen/internal/tags"
)

func (c *CLI) fillCommand() *cobra.Command {
	var values, outputDir, name string
	cmd := &cobra.Command{
		Use:   "fill TEMPLATE",
		Short: "Replace {{ key }} tags in a letter template",
		Long: `Replace plain {{ key }} tags in the body, tables, headers and footers of
a template. No loops or conditions are evaluated and no PDF is produced.`,
		Example: `  docgen fill carta_asignacion.docx -c carta.yaml --name Carta_A001`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := loadContext(values, cmd.InOrStdin())
			if err != nil {
				return err
			}
			logger := loggerFromContext(ctx)
			res, err := c.generator(logger).Fill(ctx, pipeline.FillRequest{
				Template:   args[0],
				Values:     tags.FromData(data),
				OutputDir:  outputDir,
				OutputName: name,
			})
			if err != nil {
				printError(c.out, "%s", res.Message)
				return err
			}
			printSuccess(c.out, "%s", res.Message)
			printFile(c.out, res.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&values, "context", "c", "", "YAML or JSON file with tag values (- for stdin)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&name, "name", "", "artifact name without extension")
	return cmd
}
