package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sistemadual/docgen/internal/tags"
	"github.com/sistemadual/docgen/pkg/docgen"
)

// FillRequest describes a tag-only fill: {{ key }} placeholders are replaced
// and nothing else in the template is evaluated.
type FillRequest struct {
	ID         string
	Template   string
	Values     tags.Values
	OutputDir  string
	OutputName string
}

// Fill writes a DOCX with the tags of req.Template substituted. Letters use
// it since they carry no loops or conditions.
func (g *Generator) Fill(ctx context.Context, req FillRequest) (res Result, err error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := g.logger.With("request", id, "template", req.Template)
	defer func() {
		if r := recover(); r != nil {
			err = docgen.RecoverError(r)
		}
		if err != nil {
			logger.Error("fill failed", "err", err)
			res = Result{RequestID: id, Message: FailureMessage(err)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	path, err := g.ResolveTemplate(req.Template)
	if err != nil {
		return res, err
	}
	pkg, err := g.load(path)
	if err != nil {
		return res, err
	}
	changed, err := tags.Document(pkg, req.Values)
	if err != nil {
		return res, err
	}

	name, err := outputName(req.OutputName, path)
	if err != nil {
		return res, err
	}
	outDir := req.OutputDir
	if outDir == "" {
		outDir = g.outputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}
	out := filepath.Join(outDir, name+".docx")
	if err := pkg.Save(out); err != nil {
		return res, err
	}
	logger.Info("document filled", "path", out, "paragraphs", changed)
	return Result{OK: true, RequestID: id, Path: out, Message: SuccessMessage(out)}, nil
}
