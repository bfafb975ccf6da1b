package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sistemadual/docgen/internal/anexo"
	"github.com/sistemadual/docgen/internal/notify"
	"github.com/sistemadual/docgen/internal/store"
)

type evaluateOptions struct {
	project  int64
	grades   string
	month    string
	report   int
	date     string
	seed     string
	dsn      string
	template string
}

func (c *CLI) evaluateCommand() *cobra.Command {
	var opts evaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Record a mentor evaluation and deliver the Anexo 5.4 report",
		Long: `Save the mentor's grades for a dual project, generate the Anexo 5.4
report with its ring chart and email it to the student and the mentor.

The grades file maps activity ids to levels (0, 70, 80, 90 or 100).
Activities left out are graded 0. Without SMTP credentials the emails are
only logged.`,
		Example: `  docgen evaluate --project 7 --grades calificaciones.yaml --month Marzo --report 2

  # calificaciones.yaml
  50: 100
  51: 90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEvaluate(cmd, opts)
		},
	}
	cmd.Flags().Int64Var(&opts.project, "project", 0, "dual project id")
	cmd.Flags().StringVarP(&opts.grades, "grades", "g", "", "YAML file of activity id to level (- for stdin)")
	cmd.Flags().StringVar(&opts.month, "month", "", "evaluated month")
	cmd.Flags().IntVar(&opts.report, "report", 1, "report number")
	cmd.Flags().StringVar(&opts.date, "date", "", "report date dd/mm/yyyy (default today)")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "load a YAML dataset into the store first")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "database DSN (overrides the config)")
	cmd.Flags().StringVar(&opts.template, "template", anexo.DefaultTemplate, "report template")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func (c *CLI) runEvaluate(cmd *cobra.Command, opts evaluateOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	report := anexo.Report{Month: opts.month, Number: opts.report}
	if opts.date != "" {
		d, err := time.Parse(anexo.DateLayout, opts.date)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		report.Date = d
	}
	grades, err := readGrades(opts.grades, cmd)
	if err != nil {
		return err
	}

	dsn := opts.dsn
	if dsn == "" {
		dsn = c.cfg.Store.DSN
	}
	st, err := store.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.seed != "" {
		var ds store.Dataset
		if err := readYAML(opts.seed, cmd.InOrStdin(), &ds); err != nil {
			return err
		}
		if err := st.Seed(ctx, ds); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		logger.Debug("store seeded", "file", opts.seed)
	}

	sender := notify.NewSMTP(c.cfg.Notify(), notify.WithLogger(logger))
	if sender.Mock() {
		printWarning(c.out, "SMTP credentials not configured, emails are only logged")
	}
	wf := anexo.NewWorkflow(st, c.generator(logger), sender,
		anexo.WithTemplate(opts.template),
		anexo.WithLogger(logger),
	)

	spin := newSpinner(ctx, c.errOut, fmt.Sprintf("Evaluating project %d", opts.project))
	spin.Start()
	out, err := wf.Evaluate(ctx, anexo.Evaluation{
		ProjectID: opts.project,
		Grades:    grades,
		Report:    report,
	})
	spin.Stop()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			printError(c.out, "project %d not found", opts.project)
		}
		return err
	}

	printSuccess(c.out, "evaluation saved, average %d%%", out.Average)
	reportResult(c, out.Result)
	for _, to := range out.Notified {
		printKeyValue(c.out, "notified", to)
	}
	return nil
}

// readGrades reads a map of activity id to level. YAML keys may be written
// as numbers or strings.
func readGrades(path string, cmd *cobra.Command) (map[int64]int, error) {
	grades := map[int64]int{}
	if path == "" {
		return grades, nil
	}
	var raw map[string]int
	if err := readYAML(path, cmd.InOrStdin(), &raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("grades: activity id %q is not a number", k)
		}
		grades[id] = v
	}
	return grades, nil
}
