// Package pipeline runs a complete document generation: template loading,
// row preprocessing, table synthesis, rendering, PDF conversion and cleanup
// of every intermediate file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sistemadual/docgen/internal/chart"
	"github.com/sistemadual/docgen/internal/convert"
	"github.com/sistemadual/docgen/internal/images"
	"github.com/sistemadual/docgen/internal/marker"
	"github.com/sistemadual/docgen/internal/preprocess"
	"github.com/sistemadual/docgen/internal/synth"
	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

var (
	// ErrInvalidName is returned for an output name that is not a plain
	// file name.
	ErrInvalidName = errors.New("invalid output name")
	// ErrTemplateOutside is returned by a confined Generator for a template
	// path that leaves the templates directory.
	ErrTemplateOutside = errors.New("template path outside the templates directory")
)

// Request describes one generation.
type Request struct {
	// ID keys the work directory; a random id is used when empty.
	ID string
	// Template is a path, or a file name under the generator's template dir.
	Template string
	// Profile names the marker profile; empty picks it from the template name.
	Profile string
	Context docgen.Data
	// OutputDir receives the artifact; the generator default when empty.
	OutputDir string
	// OutputName is the artifact base name without extension.
	OutputName string
	// Convert overrides the generator's conversion setting.
	Convert *bool
	// Charts renders a ring chart per entry (context key to percentage) and
	// exposes it to the template as an image.
	Charts map[string]int
}

// Stats reports what the structural passes did.
type Stats struct {
	Preprocess preprocess.Stats `json:"preprocess"`
	Synth      synth.Stats      `json:"synth"`
}

// Result is the outcome of a generation. OK is false only when no document
// could be produced; Converted tells a PDF apart from a filled DOCX.
type Result struct {
	OK        bool   `json:"ok"`
	Path      string `json:"path,omitempty"`
	Converted bool   `json:"converted"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Pages     int    `json:"pages,omitempty"`
	Stats     Stats  `json:"stats"`
}

// Generator runs generations. It holds no per-request state and may be used
// concurrently.
type Generator struct {
	templatesDir string
	outputDir    string
	tempDir      string
	convert      bool
	converter    convert.Converter
	imageWidthMM float64
	chart        chart.Options
	cache        *docgen.TemplateCache
	confined     bool
	logger       *log.Logger
	now          func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithTemplatesDir sets the directory searched for relative template names.
func WithTemplatesDir(dir string) Option {
	return func(g *Generator) { g.templatesDir = dir }
}

// WithOutputDir sets the default artifact directory.
func WithOutputDir(dir string) Option {
	return func(g *Generator) { g.outputDir = dir }
}

// WithTempDir sets where work directories are created.
func WithTempDir(dir string) Option {
	return func(g *Generator) { g.tempDir = dir }
}

// WithConverter sets the PDF converter.
func WithConverter(c convert.Converter) Option {
	return func(g *Generator) {
		if c != nil {
			g.converter = c
		}
	}
}

// WithConversion enables or disables PDF conversion by default.
func WithConversion(enabled bool) Option {
	return func(g *Generator) { g.convert = enabled }
}

// WithImageWidth sets the width of substituted images in millimetres.
func WithImageWidth(mm float64) Option {
	return func(g *Generator) {
		if mm > 0 {
			g.imageWidthMM = mm
		}
	}
}

// WithChartOptions sets the raster size of generated charts.
func WithChartOptions(opts chart.Options) Option {
	return func(g *Generator) { g.chart = opts }
}

// WithTemplateCache keeps opened templates in c between generations.
func WithTemplateCache(c *docgen.TemplateCache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithConfinedTemplates restricts template names to relative paths inside
// the templates directory.
func WithConfinedTemplates() Option {
	return func(g *Generator) { g.confined = true }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns a Generator converting with LibreOffice.
func New(opts ...Option) *Generator {
	g := &Generator{
		outputDir:    ".",
		tempDir:      os.TempDir(),
		convert:      true,
		imageWidthMM: images.DefaultWidthMM,
		logger:       log.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.converter == nil {
		g.converter = convert.NewLibreOffice(convert.WithLogger(g.logger))
	}
	return g
}

// ResolveTemplate returns the path of a template: name itself when it exists,
// otherwise name under the templates directory. A confined Generator only
// looks under the templates directory.
func (g *Generator) ResolveTemplate(name string) (string, error) {
	if g.confined {
		if !filepath.IsLocal(name) {
			return "", fmt.Errorf("%w: %s", ErrTemplateOutside, name)
		}
		path := filepath.Join(g.templatesDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s", docgen.ErrTemplateNotFound, path)
	}
	candidates := []string{name}
	if g.templatesDir != "" && !filepath.IsAbs(name) {
		candidates = append(candidates, filepath.Join(g.templatesDir, name))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", docgen.ErrTemplateNotFound, candidates[len(candidates)-1])
}

// Generate produces the document for req. On failure the returned Result
// has OK false and a message, and the error is returned as well. A missing
// or failing converter is not a failure: the filled DOCX is delivered and
// the message says so.
func (g *Generator) Generate(ctx context.Context, req Request) (res Result, err error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := g.logger.With("request", id, "template", req.Template)
	stage := "resolve"

	defer func() {
		if r := recover(); r != nil {
			err = docgen.RecoverError(r)
		}
		if err != nil {
			logger.Error("generation failed", "stage", stage, "err", err)
			res = Result{RequestID: id, Message: FailureMessage(err)}
		}
	}()

	path, err := g.ResolveTemplate(req.Template)
	if err != nil {
		return res, err
	}
	name, err := outputName(req.OutputName, path)
	if err != nil {
		return res, err
	}

	stage = "workdir"
	work := filepath.Join(g.tempDir, fmt.Sprintf("docgen_%s_%d", sanitize(id), g.now().UnixNano()))
	if err := os.MkdirAll(work, 0o755); err != nil {
		return res, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(work); rmErr != nil {
			logger.Warn("could not remove work dir", "dir", work, "err", rmErr)
		}
	}()

	outDir := req.OutputDir
	if outDir == "" {
		outDir = g.outputDir
	}

	stage = "load"
	pkg, err := g.load(path)
	if err != nil {
		return res, err
	}

	stage = "structure"
	profile := marker.ForTemplate(path)
	if req.Profile != "" {
		profile = marker.Lookup(req.Profile)
	}
	stats, err := g.structure(pkg, profile, req.Context)
	if err != nil {
		return res, err
	}
	logger.Debug("structured", "profile", profile.Name,
		"loops", stats.Preprocess.Loops, "deleted", stats.Preprocess.Deleted,
		"competence_tables", stats.Synth.CompetenceTables, "evaluation_tables", stats.Synth.EvaluationTables)

	if !profile.Empty() {
		if err := pkg.Save(filepath.Join(work, name+"_INJECTED.docx")); err != nil {
			return res, err
		}
	}

	stage = "charts"
	data := maps.Clone(req.Context)
	if data == nil {
		data = docgen.Data{}
	}
	for key, pct := range req.Charts {
		chartPath := filepath.Join(work, sanitize(key)+".png")
		if err := chart.WriteFile(chartPath, pct, g.chart); err != nil {
			return res, err
		}
		data[key] = images.Ref(chartPath)
	}

	stage = "render"
	data = images.NewResolver(images.WithWidth(g.imageWidthMM), images.WithLogger(logger)).Resolve(data)
	rendered, err := docgen.PreparePackage(pkg).Render(data)
	if err != nil {
		return res, err
	}

	stage = "save"
	filled := filepath.Join(work, name+".docx")
	if err := rendered.Save(filled); err != nil {
		return res, err
	}

	res = Result{OK: true, RequestID: id, Stats: stats}
	convertIt := g.convert
	if req.Convert != nil {
		convertIt = *req.Convert
	}

	stage = "convert"
	var convErr error
	if convertIt {
		var pdf string
		pdf, convErr = g.converter.Convert(ctx, filled, work)
		if convErr == nil {
			pages, perr := convert.PageCount(pdf)
			if perr != nil {
				logger.Warn("could not count pages", "err", perr)
			}
			res.Pages = pages
			stage = "deliver"
			if res.Path, err = deliver(pdf, outDir); err != nil {
				return res, err
			}
			res.Converted = true
			res.Message = SuccessMessage(res.Path)
			logger.Info("document generated", "path", res.Path, "pages", res.Pages)
			return res, nil
		}
	} else {
		convErr = fmt.Errorf("%w: conversion not requested", convert.ErrUnavailable)
	}

	stage = "deliver"
	if res.Path, err = deliver(filled, outDir); err != nil {
		return res, err
	}
	if errors.Is(convErr, convert.ErrUnavailable) {
		res.Message = UnconvertedMessage(res.Path)
		logger.Info("document filled without conversion", "path", res.Path, "reason", convErr)
	} else {
		res.Message = ConversionFailedMessage(res.Path, convErr)
		logger.Warn("pdf conversion failed", "path", res.Path, "err", convErr)
	}
	return res, nil
}

// load opens the template at path. Cached templates are cloned since the
// structural passes edit the package in place.
func (g *Generator) load(path string) (*docgen.Package, error) {
	if g.cache == nil {
		return docgen.OpenFile(path)
	}
	tmpl, err := g.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return tmpl.Package().Clone(), nil
}

// structure runs the row preprocessor and the table synthesizer on the
// document body. Both share one tracker.
func (g *Generator) structure(pkg *docgen.Package, profile marker.Profile, data docgen.Data) (Stats, error) {
	var stats Stats
	if profile.Empty() {
		return stats, nil
	}
	doc, err := pkg.Document()
	if err != nil {
		return stats, err
	}
	body := xml.Body(doc.Root())
	tracker := marker.NewTracker()

	if stats.Preprocess, err = preprocess.Run(body, profile, tracker); err != nil {
		return stats, err
	}
	if stats.Synth, err = synth.Synthesize(body, profile, data, tracker); err != nil {
		return stats, err
	}
	return stats, nil
}

// Result messages.

func SuccessMessage(path string) string {
	return "document generated at " + path
}

func UnconvertedMessage(path string) string {
	return fmt.Sprintf("document filled at %s (could not convert to PDF automatically)", path)
}

func ConversionFailedMessage(path string, err error) string {
	return fmt.Sprintf("document saved at %s; PDF conversion failed: %v", path, err)
}

func FailureMessage(err error) string {
	return fmt.Sprintf("could not generate document: %v", err)
}
