package cli

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sistemadual/docgen/internal/pipeline"
	"github.com/sistemadual/docgen/pkg/docgen"
)

// Manifest lists the documents of a batch run.
type Manifest struct {
	Documents []ManifestEntry `yaml:"documents"`
}

// ManifestEntry is one document. Context names a context file relative to
// the manifest; Data is an inline context merged over it.
type ManifestEntry struct {
	Template string         `yaml:"template"`
	Context  string         `yaml:"context"`
	Data     map[string]any `yaml:"data"`
	Name     string         `yaml:"name"`
	Profile  string         `yaml:"profile"`
	Charts   map[string]int `yaml:"charts"`
}

func (c *CLI) batchCommand() *cobra.Command {
	var outputDir string
	var parallel int
	var noConvert bool
	cmd := &cobra.Command{
		Use:   "batch MANIFEST",
		Short: "Generate every document listed in a manifest",
		Example: `  docgen batch periodo_2026.yaml -j 4

  # periodo_2026.yaml
  documents:
    - template: Anexo_5.1_Plan.docx
      context: alumnos/A001.yaml
      name: Anexo_5.1_A001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, args[0], outputDir, parallel, noConvert)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().IntVarP(&parallel, "parallel", "j", 2, "documents generated at once")
	cmd.Flags().BoolVar(&noConvert, "no-convert", false, "skip PDF conversion")
	return cmd
}

func (c *CLI) runBatch(cmd *cobra.Command, manifestPath, outputDir string, parallel int, noConvert bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	var m Manifest
	if err := readYAML(manifestPath, cmd.InOrStdin(), &m); err != nil {
		return err
	}
	if len(m.Documents) == 0 {
		return fmt.Errorf("%s lists no documents", manifestPath)
	}
	base := filepath.Dir(manifestPath)

	reqs := make([]pipeline.Request, len(m.Documents))
	for i, doc := range m.Documents {
		data := docgen.Data{}
		if doc.Context != "" {
			path := doc.Context
			if !filepath.IsAbs(path) {
				path = filepath.Join(base, path)
			}
			loaded, err := loadContext(path, nil)
			if err != nil {
				return fmt.Errorf("document %d: %w", i+1, err)
			}
			data = loaded
		}
		for k, v := range doc.Data {
			data[k] = v
		}
		reqs[i] = pipeline.Request{
			Template:   doc.Template,
			Profile:    doc.Profile,
			Context:    data,
			OutputDir:  outputDir,
			OutputName: doc.Name,
			Charts:     doc.Charts,
		}
		if noConvert {
			off := false
			reqs[i].Convert = &off
		}
	}

	gen := c.generator(logger)
	prog := newProgress(logger)
	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, req := range reqs {
		g.Go(func() error {
			res, err := gen.Generate(gctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				printError(c.out, "[%d] %s: %s", i+1, req.Template, res.Message)
				return nil
			}
			reportResult(c, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("batch of %d documents", len(reqs)))
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(reqs))
	}
	return ctx.Err()
}
