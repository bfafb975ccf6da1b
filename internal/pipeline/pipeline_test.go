package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemadual/docgen/internal/convert"
	"github.com/sistemadual/docgen/internal/docxtest"
	"github.com/sistemadual/docgen/internal/tags"
	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

type fakeConverter struct {
	pages    int
	err      error
	src      string
	injected bool
}

func (f *fakeConverter) Convert(_ context.Context, src, outDir string) (string, error) {
	f.src = src
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(src), "*_INJECTED.docx"))
	f.injected = len(matches) == 1
	if f.err != nil {
		return "", f.err
	}
	out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(src), ".docx")+".pdf")
	return out, os.WriteFile(out, docxtest.PDF(f.pages), 0o644)
}

type env struct {
	templates string
	temp      string
	out       string
}

func setup(t *testing.T) env {
	t.Helper()
	e := env{templates: t.TempDir(), temp: t.TempDir(), out: t.TempDir()}

	docxtest.WriteFile(t, e.templates, "Anexo_5.1_Plan.docx",
		docxtest.Paragraph("Plan de formación de {{ nombre }}")+
			docxtest.Table(
				docxtest.Row("No.", "Competencia"),
				docxtest.Row("{{ loop_index }}", "{{ competencia }}"),
			)+
			docxtest.Table(docxtest.Row("ELABORARON")))

	docxtest.WriteFile(t, e.templates, "Anexo_5.4_Evaluacion.docx",
		docxtest.Paragraph("{{ grafica_ue }}")+
			docxtest.Table(
				docxtest.Row("[[TABLA_COMPETENCIAS]]"),
				docxtest.Row("stale {{ c.nombre }}"),
				docxtest.Row("3.- EVALUACIÓN"),
				docxtest.Row("[[TABLA_EVALUACION]]"),
			))

	docxtest.WriteFile(t, e.templates, "carta.docx",
		docxtest.Paragraph("Estimado ", "{{ nom", "bre }}:")+
			docxtest.Table(docxtest.Row("{{empresa}}")))
	return e
}

func (e env) generator(c convert.Converter, opts ...Option) *Generator {
	return New(append([]Option{
		WithTemplatesDir(e.templates),
		WithTempDir(e.temp),
		WithOutputDir(e.out),
		WithConverter(c),
		WithLogger(log.New(io.Discard)),
	}, opts...)...)
}

func planContext() docgen.Data {
	return docgen.Data{
		"nombre": "Ana",
		"competencias_list": []map[string]any{
			{"competencia": "A"},
			{"competencia": "B"},
		},
	}
}

func bodyOf(t *testing.T, path string) *xml.Node {
	t.Helper()
	pkg, err := docgen.OpenFile(path)
	require.NoError(t, err)
	doc, err := pkg.Document()
	require.NoError(t, err)
	return xml.Body(doc.Root())
}

func assertNoWorkDirs(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "work directories are removed")
}

func TestGenerateConverted(t *testing.T) {
	e := setup(t)
	conv := &fakeConverter{pages: 2}
	res, err := e.generator(conv).Generate(context.Background(), Request{
		ID:       "req-1",
		Template: "Anexo_5.1_Plan.docx",
		Context:  planContext(),
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.True(t, res.Converted)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, filepath.Join(e.out, "Anexo_5.1_Plan.pdf"), res.Path)
	assert.Equal(t, SuccessMessage(res.Path), res.Message)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, res.Stats.Preprocess.Loops)
	assert.Equal(t, 1, res.Stats.Preprocess.PageBreaks)
	assert.FileExists(t, res.Path)

	assert.True(t, conv.injected, "the injected copy exists while converting")
	assert.Regexp(t, regexp.MustCompile(`^docgen_req-1_\d+$`), filepath.Base(filepath.Dir(conv.src)))
	assertNoWorkDirs(t, e.temp)
}

func TestGenerateWithoutConverter(t *testing.T) {
	e := setup(t)
	res, err := e.generator(convert.Nop{}).Generate(context.Background(), Request{
		Template: "Anexo_5.1_Plan.docx",
		Context:  planContext(),
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.False(t, res.Converted)
	assert.Equal(t, filepath.Join(e.out, "Anexo_5.1_Plan.docx"), res.Path)
	assert.Equal(t, UnconvertedMessage(res.Path), res.Message)
	assert.Contains(t, res.Message, "could not convert to PDF automatically")
	assertNoWorkDirs(t, e.temp)

	body := bodyOf(t, res.Path)
	rows := xml.Rows(xml.Tables(body)[0])
	require.Len(t, rows, 3)
	assert.Equal(t, "No.Competencia", xml.RowText(rows[0]))
	assert.Equal(t, "1A", xml.RowText(rows[1]))
	assert.Equal(t, "2B", xml.RowText(rows[2]))
	for _, p := range xml.AllParagraphs(body) {
		assert.NotContains(t, xml.ParagraphText(p), "{%")
	}
	assert.Equal(t, "Plan de formación de Ana", xml.ParagraphText(xml.Paragraphs(body)[0]))
}

func TestGenerateConversionDisabled(t *testing.T) {
	e := setup(t)
	conv := &fakeConverter{pages: 1}
	off := false
	res, err := e.generator(conv).Generate(context.Background(), Request{
		Template: "Anexo_5.1_Plan.docx",
		Context:  planContext(),
		Convert:  &off,
	})
	require.NoError(t, err)
	assert.False(t, res.Converted)
	assert.Empty(t, conv.src, "converter is not called")
	assert.Equal(t, UnconvertedMessage(res.Path), res.Message)
}

func TestGenerateConversionFailed(t *testing.T) {
	e := setup(t)
	res, err := e.generator(&fakeConverter{err: errors.New("soffice crashed")}).Generate(context.Background(), Request{
		Template:   "Anexo_5.1_Plan.docx",
		Context:    planContext(),
		OutputName: "plan_ana",
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.False(t, res.Converted)
	assert.Equal(t, filepath.Join(e.out, "plan_ana.docx"), res.Path)
	assert.Equal(t, "document saved at "+res.Path+"; PDF conversion failed: soffice crashed", res.Message)
	assertNoWorkDirs(t, e.temp)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		check    func(t *testing.T, err error)
		contains string
	}{
		{
			name: "template not found",
			req:  Request{Template: "Anexo_9.docx"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, docgen.ErrTemplateNotFound)
			},
			contains: "template not found",
		},
		{
			name: "missing collection",
			req:  Request{Template: "Anexo_5.1_Plan.docx", Context: docgen.Data{"nombre": "Ana"}},
			check: func(t *testing.T, err error) {
				var undefined *docgen.UndefinedError
				assert.ErrorAs(t, err, &undefined)
			},
			contains: "competencias_list",
		},
		{
			name: "malformed evaluation data",
			req:  Request{Template: "Anexo_5.4_Evaluacion.docx", Context: docgen.Data{"evaluaciones": "x"}},
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
			contains: "expected a list of records",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			res, err := e.generator(&fakeConverter{}).Generate(context.Background(), tt.req)
			tt.check(t, err)
			assert.False(t, res.OK)
			assert.Empty(t, res.Path)
			assert.True(t, strings.HasPrefix(res.Message, "could not generate document: "), res.Message)
			assert.Contains(t, res.Message, tt.contains)
			assertNoWorkDirs(t, e.temp)

			entries, err := os.ReadDir(e.out)
			require.NoError(t, err)
			assert.Empty(t, entries, "no partial output")
		})
	}
}

func TestGenerateMissingImageIsBlank(t *testing.T) {
	e := setup(t)
	res, err := e.generator(convert.Nop{}).Generate(context.Background(), Request{
		Template: "Anexo_5.4_Evaluacion.docx",
		Context:  docgen.Data{"grafica_ue": "IMAGE_PATH:/tmp/missing.png"},
	})
	require.NoError(t, err)
	require.True(t, res.OK)

	body := bodyOf(t, res.Path)
	assert.Equal(t, "", xml.ParagraphText(xml.Paragraphs(body)[0]))
	assert.Empty(t, body.Find("w:drawing"))
}

func TestGenerateAnexo54(t *testing.T) {
	e := setup(t)
	res, err := e.generator(convert.Nop{}).Generate(context.Background(), Request{
		Template: "Anexo_5.4_Evaluacion.docx",
		Context: docgen.Data{
			"lista_competencias": []map[string]any{
				{"numero_consecutivo": 1, "competencia_desarrollada": "Diseño", "asignaturas_cubre": "Redes"},
			},
			"evaluaciones": []map[string]any{{
				"competencia_alcanzada": "Diseño",
				"actividades": []map[string]any{
					{"descripcion_actividad": "Cableado", "horas": 8, "p90": "X"},
					{"descripcion_actividad": "Pruebas", "horas": 4, "p100": "X"},
				},
			}},
		},
		Charts: map[string]int{"grafica_ue": 90},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Synth.CompetenceTables)
	assert.Equal(t, 1, res.Stats.Synth.EvaluationTables)
	assert.Equal(t, 1, res.Stats.Preprocess.Deleted)

	pkg, err := docgen.OpenFile(res.Path)
	require.NoError(t, err)
	_, ok := pkg.Part("word/media/image1.png")
	assert.True(t, ok, "chart is embedded")

	doc, err := pkg.Document()
	require.NoError(t, err)
	body := xml.Body(doc.Root())
	assert.Len(t, body.Find("w:drawing"), 1)

	layout := xml.Tables(body)[0]
	assert.Len(t, xml.Rows(layout), 3, "stale rows are deleted")
	eval := xml.Tables(xml.Cells(xml.Rows(layout)[2])[0])
	require.Len(t, eval, 1)
	assert.Len(t, xml.Rows(eval[0]), 5)
	for _, p := range xml.AllParagraphs(body) {
		assert.NotContains(t, xml.ParagraphText(p), "[[")
		assert.NotContains(t, xml.ParagraphText(p), "{{")
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	e := setup(t)
	g := e.generator(convert.Nop{})
	var outputs [][]byte
	for i := 0; i < 2; i++ {
		res, err := g.Generate(context.Background(), Request{
			Template:   "Anexo_5.1_Plan.docx",
			Context:    planContext(),
			OutputName: "plan",
			OutputDir:  filepath.Join(e.out, string(rune('a'+i))),
		})
		require.NoError(t, err)
		data, err := os.ReadFile(res.Path)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestGenerateDoesNotModifyContext(t *testing.T) {
	e := setup(t)
	ctx := docgen.Data{"grafica_ue": "IMAGE_PATH:/tmp/missing.png"}
	_, err := e.generator(convert.Nop{}).Generate(context.Background(), Request{
		Template: "Anexo_5.4_Evaluacion.docx",
		Context:  ctx,
		Charts:   map[string]int{"otra": 10},
	})
	require.NoError(t, err)
	assert.Equal(t, docgen.Data{"grafica_ue": "IMAGE_PATH:/tmp/missing.png"}, ctx)
}

func TestFill(t *testing.T) {
	e := setup(t)
	res, err := e.generator(convert.Nop{}).Fill(context.Background(), FillRequest{
		Template:   "carta.docx",
		Values:     tags.Values{"nombre": "Ana López", "empresa": "ACME"},
		OutputName: "carta_ana",
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, filepath.Join(e.out, "carta_ana.docx"), res.Path)

	body := bodyOf(t, res.Path)
	assert.Equal(t, "Estimado Ana López:", xml.ParagraphText(xml.Paragraphs(body)[0]))
	assert.Equal(t, "ACME", xml.RowText(xml.Rows(xml.Tables(body)[0])[0]))

	res, err = e.generator(convert.Nop{}).Fill(context.Background(), FillRequest{Template: "nope.docx"})
	assert.ErrorIs(t, err, docgen.ErrTemplateNotFound)
	assert.False(t, res.OK)
}

func TestGenerateWithTemplateCache(t *testing.T) {
	e := setup(t)
	cache := docgen.NewTemplateCache(docgen.CacheConfig{MaxSize: 4})
	g := e.generator(convert.Nop{}, WithTemplateCache(cache))

	for _, name := range []string{"first", "second"} {
		res, err := g.Generate(context.Background(), Request{
			Template:   "Anexo_5.1_Plan.docx",
			Context:    planContext(),
			OutputName: name,
		})
		require.NoError(t, err)
		rows := xml.Rows(xml.Tables(bodyOf(t, res.Path))[0])
		assert.Len(t, rows, 3, "%s: header plus one row per competence", name)
	}
	assert.Equal(t, 1, cache.Len())
}

func TestGenerateRejectsPathOutputNames(t *testing.T) {
	for _, name := range []string{"../../leak", "sub/leak", "..", `..\leak`, "."} {
		t.Run(name, func(t *testing.T) {
			e := setup(t)
			root := t.TempDir()
			temp := filepath.Join(root, "a", "b")
			g := e.generator(convert.Nop{}, WithTempDir(temp))

			res, err := g.Generate(context.Background(), Request{
				Template:   "Anexo_5.1_Plan.docx",
				Context:    planContext(),
				OutputName: name,
			})
			require.ErrorIs(t, err, ErrInvalidName)
			assert.False(t, res.OK)

			var files []string
			require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
				if err == nil && !d.IsDir() {
					files = append(files, path)
				}
				return err
			}))
			assert.Empty(t, files, "nothing is written")
			entries, err := os.ReadDir(e.out)
			require.NoError(t, err)
			assert.Empty(t, entries)

			_, err = g.Fill(context.Background(), FillRequest{Template: "carta.docx", OutputName: name})
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestResolveTemplateConfined(t *testing.T) {
	e := setup(t)
	outside := docxtest.WriteFile(t, t.TempDir(), "secreto.docx", docxtest.Paragraph("x"))
	rel, err := filepath.Rel(e.templates, outside)
	require.NoError(t, err)

	open := e.generator(convert.Nop{})
	got, err := open.ResolveTemplate(outside)
	require.NoError(t, err)
	assert.Equal(t, outside, got)

	g := e.generator(convert.Nop{}, WithConfinedTemplates())
	got, err = g.ResolveTemplate("carta.docx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.templates, "carta.docx"), got)

	for _, name := range []string{outside, rel, "../carta.docx", ""} {
		_, err := g.ResolveTemplate(name)
		assert.ErrorIs(t, err, ErrTemplateOutside, name)
	}
	_, err = g.ResolveTemplate("nope.docx")
	assert.ErrorIs(t, err, docgen.ErrTemplateNotFound)
}
