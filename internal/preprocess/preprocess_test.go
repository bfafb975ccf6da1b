package preprocess

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemadual/docgen/internal/docxtest"
	"github.com/sistemadual/docgen/internal/marker"
	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

func open(t *testing.T, body string) (*docgen.Package, *xml.Node) {
	t.Helper()
	pkg, err := docgen.OpenBytes(docxtest.Build(body))
	require.NoError(t, err)
	doc, err := pkg.Document()
	require.NoError(t, err)
	return pkg, xml.Body(doc.Root())
}

func rowTexts(tbl *xml.Node) []string {
	var out []string
	for _, tr := range xml.Rows(tbl) {
		out = append(out, xml.RowText(tr))
	}
	return out
}

func countPageBreaks(n *xml.Node) int {
	count := 0
	for _, br := range n.Find(xml.TagBreak) {
		if v, _ := br.Attr("w:type"); v == "page" {
			count++
		}
	}
	return count
}

func TestRunWithoutMarkersIsNoOp(t *testing.T) {
	body := docxtest.Paragraph("Hola {{ nombre }}") +
		docxtest.Table(docxtest.Row("a", "{{ b }}"), docxtest.Row("c", "d"))

	for _, profile := range []marker.Profile{marker.Anexo51(), marker.Anexo54(), {}} {
		t.Run(profile.Name, func(t *testing.T) {
			_, root := open(t, body)
			before := root.Clone()

			stats, err := Run(root, profile, marker.NewTracker())
			require.NoError(t, err)
			assert.Equal(t, Stats{}, stats)
			assert.Empty(t, cmp.Diff(before, root))
		})
	}
}

func TestRunMultipliesCompetenceRow(t *testing.T) {
	_, root := open(t, docxtest.Table(
		docxtest.Row("No.", "Competencia", "Asignatura"),
		docxtest.Row("{{ loop_index }}", "{{ competencia }}", "{{ asignatura }}"),
	))

	stats, err := Run(root, marker.Anexo51(), marker.NewTracker())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loops)

	tbl := xml.Tables(root)[0]
	assert.Equal(t, []string{
		"No.CompetenciaAsignatura",
		"{%tr for c in competencias_list %}",
		"{{ loop.index }}{{ c.competencia }}{{ c.asignatura }}",
		"{%tr endfor %}",
	}, rowTexts(tbl))

	rows := xml.Rows(tbl)
	assert.Len(t, xml.Cells(rows[1]), 3, "directive rows keep the cell layout")
	assert.Len(t, xml.Cells(rows[3]), 3)
	assert.Equal(t, "{%tr for c in competencias_list %}", xml.CellText(xml.Cells(rows[1])[0]))
}

func TestRunActivityRowAndSignature(t *testing.T) {
	_, root := open(t,
		docxtest.Table(docxtest.Row("{{ actividad }}", "{{ horas }}", "{{ lugar }}"))+
			docxtest.Table(docxtest.Row("ELABORARON", "REVISÓ"))+
			docxtest.Table(docxtest.Row("ELABORARON", "")))

	stats, err := Run(root, marker.Anexo51(), marker.NewTracker())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loops)
	assert.Equal(t, 1, stats.PageBreaks)

	tables := xml.Tables(root)
	assert.Equal(t, []string{
		"{%tr for a in actividades_list %}",
		"{{ a.actividad }}{{ a.horas }}{{ a.lugar }}",
		"{%tr endfor %}",
	}, rowTexts(tables[0]))

	assert.Equal(t, 1, countPageBreaks(tables[1]))
	assert.Equal(t, 0, countPageBreaks(tables[2]), "the signature marker is processed once")

	cell := xml.Cells(xml.Rows(tables[1])[0])[0]
	paras := xml.Paragraphs(cell)
	require.Len(t, paras, 2)
	assert.Equal(t, 1, countPageBreaks(paras[0]))
	assert.Equal(t, "ELABORARON", xml.ParagraphText(paras[1]))
}

func TestRunSignatureAlreadyClaimed(t *testing.T) {
	_, root := open(t, docxtest.Table(docxtest.Row("ELABORARON")))
	tracker := marker.NewTracker()
	tracker.Claim(marker.SignatureBlock)

	stats, err := Run(root, marker.Anexo51(), tracker)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PageBreaks)
}

func TestRunDuplicateFamily(t *testing.T) {
	_, root := open(t, docxtest.Table(
		docxtest.Row("{{ competencia }}"),
		docxtest.Row("{{ competencia }}"),
	))
	before := root.Clone()

	_, err := Run(root, marker.Anexo51(), marker.NewTracker())
	require.Error(t, err)
	assert.True(t, errors.Is(err, marker.ErrDuplicateMarker))
	assert.Empty(t, cmp.Diff(before, root), "nothing is applied when planning fails")
}

func TestRunSameFamilyInDifferentTables(t *testing.T) {
	_, root := open(t,
		docxtest.Table(docxtest.Row("{{ competencia }}"))+
			docxtest.Table(docxtest.Row("{{ competencia }}")))

	stats, err := Run(root, marker.Anexo51(), marker.NewTracker())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Loops)
}

func TestRunAnexo54Cleanup(t *testing.T) {
	_, root := open(t,
		docxtest.Paragraph("Alumno {{ eval.nombre }}listo")+
			docxtest.Table(
				docxtest.Row("1. DATOS"),
				docxtest.Row("[[TABLA_COMPETENCIAS]]"),
				docxtest.Row("MARCO {{ c.conocimientos }}"),
				docxtest.Row("stale"),
				docxtest.Row("3.- EVALUACIÓN"),
				docxtest.Row("[[TABLA_EVALUACION]]"),
				docxtest.Row("{{ act.horas }} after"),
			))

	stats, err := Run(root, marker.Anexo54(), marker.NewTracker())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.GhostTags)
	assert.Equal(t, 2, stats.Deleted)

	assert.Equal(t, "Alumno listo", xml.ParagraphText(xml.Paragraphs(root)[0]))
	assert.Equal(t, []string{
		"1. DATOS",
		"[[TABLA_COMPETENCIAS]]",
		"3.- EVALUACIÓN",
		"[[TABLA_EVALUACION]]",
		" after",
	}, rowTexts(xml.Tables(root)[0]))
}

func TestPlanOperationsAreOrdered(t *testing.T) {
	_, root := open(t, docxtest.Table(
		docxtest.Row("{{ competencia }}"),
		docxtest.Row("ELABORARON"),
	))
	plan, err := Build(root, marker.Anexo51(), marker.NewTracker())
	require.NoError(t, err)

	var kinds []OpKind
	for _, op := range plan.Ops {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []OpKind{OpInsertBefore, OpInsertAfter, OpRewrite, OpPageBreak}, kinds)
	assert.Equal(t, RowID(0), plan.Ops[0].Row)
	assert.Equal(t, RowID(1), plan.Ops[3].Row)
	assert.Equal(t, 2, len(xml.Rows(xml.Tables(root)[0])), "building a plan does not modify the document")
}

func TestPreprocessedTemplateRenders(t *testing.T) {
	pkg, root := open(t, docxtest.Table(
		docxtest.Row("No.", "Competencia"),
		docxtest.Row("{{ loop_index }}", "{{ competencia }}"),
	))
	_, err := Run(root, marker.Anexo51(), marker.NewTracker())
	require.NoError(t, err)

	out, err := docgen.PreparePackage(pkg).Render(docgen.Data{
		"competencias_list": []map[string]any{{"competencia": "A"}, {"competencia": "B"}},
	})
	require.NoError(t, err)
	doc, err := out.Document()
	require.NoError(t, err)

	texts := rowTexts(xml.Tables(xml.Body(doc.Root()))[0])
	assert.Equal(t, []string{"No.Competencia", "1A", "2B"}, texts)
	for _, text := range texts {
		assert.False(t, strings.Contains(text, "{%"))
	}
}

func TestInspect(t *testing.T) {
	_, root := open(t, docxtest.Table(
		docxtest.Row("[[TABLA_COMPETENCIAS]]"),
		docxtest.Row("stale"),
		docxtest.Row("[[TABLA_EVALUACION]]"),
	))
	findings := Inspect(root, marker.Anexo54())
	var kinds []marker.Kind
	for _, f := range findings {
		kinds = append(kinds, f.Kind)
	}
	assert.Equal(t, []marker.Kind{
		marker.DeletionStart,
		marker.DeletionEnd,
		marker.CompetenceTable,
		marker.EvaluationTable,
	}, kinds)
	assert.Equal(t, "table 1 row 3 cell 1", findings[3].Location)
}
