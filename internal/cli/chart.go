package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sistemadual/docgen/internal/chart"
)

func (c *CLI) chartCommand() *cobra.Command {
	var output string
	var size int
	cmd := &cobra.Command{
		Use:     "chart PERCENT",
		Short:   "Write a percentage ring chart as PNG",
		Example: `  docgen chart 85 -o grafica_ue.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("percent must be an integer: %w", err)
			}
			opts := c.cfg.ChartOptions()
			if size > 0 {
				opts.SizePx = size
			}
			if output == "" {
				output = fmt.Sprintf("grafica_%d.png", chart.Clamp(pct))
			}
			if err := chart.WriteFile(output, pct, opts); err != nil {
				return err
			}
			printSuccess(c.out, "chart for %d%% written", chart.Clamp(pct))
			printFile(c.out, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG file (default grafica_<percent>.png)")
	cmd.Flags().IntVar(&size, "size", 0, "side in pixels")
	return cmd
}
