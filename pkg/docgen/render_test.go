package docgen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemadual/docgen/internal/docxtest"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

func renderPackage(t *testing.T, body string, data Data, extra ...docxtest.Part) *Package {
	t.Helper()
	tmpl, err := Prepare(bytes.NewReader(docxtest.Build(body, extra...)))
	require.NoError(t, err)
	out, err := tmpl.Render(data)
	require.NoError(t, err)
	return out
}

func renderBody(t *testing.T, body string, data Data) *xml.Node {
	t.Helper()
	doc, err := renderPackage(t, body, data).Document()
	require.NoError(t, err)
	return xml.Body(doc.Root())
}

func paragraphTexts(container *xml.Node) []string {
	var out []string
	for _, p := range xml.AllParagraphs(container) {
		out = append(out, xml.ParagraphText(p))
	}
	return out
}

func TestRenderSubstitution(t *testing.T) {
	body := renderBody(t, docxtest.Paragraph("Hola {{ nom", "bre }}, ", "{{ missing }}fin"), Data{"nombre": "Ana"})
	assert.Equal(t, []string{"Hola Ana, fin"}, paragraphTexts(body))
}

func TestRenderSubstitutionAcrossFormatting(t *testing.T) {
	p := "<w:p>" + docxtest.Run("Dear {{ na") + docxtest.BoldRun("me }}") + docxtest.BoldRun(" bold") + "</w:p>"
	body := renderBody(t, p, Data{"name": "Ana"})
	assert.Equal(t, []string{"Dear Ana bold"}, paragraphTexts(body))
}

func TestRenderRowLoop(t *testing.T) {
	table := docxtest.Table(
		docxtest.Row("No.", "Competencia"),
		docxtest.Row("{%tr for c in competencias_list %}"),
		docxtest.Row("{{ loop.index }}", "{{ c.competencia }}"),
		docxtest.Row("{%tr endfor %}"),
		docxtest.Row("fin", ""),
	)
	data := Data{"competencias_list": []map[string]any{
		{"competencia": "Diseño"},
		{"competencia": "Pruebas"},
	}}
	body := renderBody(t, table, data)

	rows := xml.Rows(xml.Tables(body)[0])
	require.Len(t, rows, 4)
	var got [][]string
	for _, tr := range rows {
		var cells []string
		for _, tc := range xml.Cells(tr) {
			cells = append(cells, xml.CellText(tc))
		}
		got = append(got, cells)
	}
	assert.Equal(t, [][]string{
		{"No.", "Competencia"},
		{"1", "Diseño"},
		{"2", "Pruebas"},
		{"fin", ""},
	}, got)
}

func TestRenderRowLoopEmptyAndNil(t *testing.T) {
	table := docxtest.Table(
		docxtest.Row("{%tr for c in xs %}"),
		docxtest.Row("{{ c }}"),
		docxtest.Row("{%tr endfor %}"),
	)
	for name, value := range map[string]any{"nil": nil, "empty": []any{}} {
		t.Run(name, func(t *testing.T) {
			body := renderBody(t, table, Data{"xs": value})
			assert.Empty(t, xml.Rows(xml.Tables(body)[0]))
		})
	}
}

func TestRenderRowLoopUndefined(t *testing.T) {
	table := docxtest.Table(
		docxtest.Row("{%tr for c in competencias_list %}"),
		docxtest.Row("{{ c }}"),
		docxtest.Row("{%tr endfor %}"),
	)
	tmpl, err := Prepare(bytes.NewReader(docxtest.Build(table)))
	require.NoError(t, err)
	_, err = tmpl.Render(Data{})
	require.Error(t, err)
	assert.True(t, IsUndefinedError(err))
}

func TestRenderRowConditional(t *testing.T) {
	table := docxtest.Table(
		docxtest.Row("{%tr if show %}"),
		docxtest.Row("visible"),
		docxtest.Row("{%tr else %}"),
		docxtest.Row("hidden"),
		docxtest.Row("{%tr endif %}"),
	)
	body := renderBody(t, table, Data{"show": false})
	rows := xml.Rows(xml.Tables(body)[0])
	require.Len(t, rows, 1)
	assert.Equal(t, "hidden", xml.RowText(rows[0]))
}

func TestRenderParagraphLoop(t *testing.T) {
	body := renderBody(t,
		docxtest.Paragraph("Antes")+
			docxtest.Paragraph("{% for x in xs %}")+
			docxtest.Paragraph("Item {{ x }}")+
			docxtest.Paragraph("{% endfor %}")+
			docxtest.Paragraph("Después"),
		Data{"xs": []any{1, 2}})
	assert.Equal(t, []string{"Antes", "Item 1", "Item 2", "Después"}, paragraphTexts(body))
}

func TestRenderParagraphScopedIf(t *testing.T) {
	body := renderBody(t,
		docxtest.Paragraph("{%p if show %}")+
			docxtest.Paragraph("A")+
			docxtest.Paragraph("{%p elif other %}")+
			docxtest.Paragraph("B")+
			docxtest.Paragraph("{%p else %}")+
			docxtest.Paragraph("C")+
			docxtest.Paragraph("{%p endif %}"),
		Data{"show": false, "other": true})
	assert.Equal(t, []string{"B"}, paragraphTexts(body))
}

func TestRenderInlineLoop(t *testing.T) {
	body := renderBody(t, docxtest.Paragraph("{% for x in xs %}{{ x }},{% endfor %}"), Data{"xs": []string{"a", "b"}})
	assert.Equal(t, []string{"a,b,"}, paragraphTexts(body))
}

func TestRenderStrayEnd(t *testing.T) {
	tmpl, err := Prepare(bytes.NewReader(docxtest.Build(docxtest.Paragraph("{% endfor %}"))))
	require.NoError(t, err)
	_, err = tmpl.Render(Data{})
	require.Error(t, err)
	assert.True(t, IsTemplateError(err))
}

func TestRenderMissingEnd(t *testing.T) {
	table := docxtest.Table(docxtest.Row("{%tr for c in xs %}"), docxtest.Row("{{ c }}"))
	tmpl, err := Prepare(bytes.NewReader(docxtest.Build(table)))
	require.NoError(t, err)
	_, err = tmpl.Render(Data{"xs": []any{1}})
	require.Error(t, err)
	assert.True(t, IsTemplateError(err))
}

func TestRenderImage(t *testing.T) {
	img, err := NewImage(docxtest.PNG(20, 10), "logo.png", 40)
	require.NoError(t, err)

	out := renderPackage(t, docxtest.Paragraph("Logo: {{ logo }} fin"), Data{"logo": img})
	doc, err := out.Document()
	require.NoError(t, err)
	body := xml.Body(doc.Root())

	assert.Equal(t, []string{"Logo:  fin"}, paragraphTexts(body))
	extents := body.Find("wp:extent")
	require.Len(t, extents, 1)
	cx, _ := extents[0].Attr("cx")
	cy, _ := extents[0].Attr("cy")
	assert.Equal(t, "1440000", cx)
	assert.Equal(t, "720000", cy)

	blips := body.Find("a:blip")
	require.Len(t, blips, 1)
	embed, _ := blips[0].Attr("r:embed")
	assert.Equal(t, "rId2", embed)

	media, ok := out.Part("word/media/image1.png")
	require.True(t, ok)
	assert.Equal(t, docxtest.PNG(20, 10), media)

	rels, _ := out.Part("word/_rels/document.xml.rels")
	assert.Contains(t, string(rels), `Target="media/image1.png"`)
	types, _ := out.Part(ContentTypesPart)
	assert.Contains(t, string(types), `Extension="png"`)
}

func TestRenderHeader(t *testing.T) {
	header := docxtest.Part{Name: "word/header1.xml", Content: docxtest.PartXML("w:hdr", docxtest.Paragraph("{{ title }}"))}
	out := renderPackage(t, docxtest.Paragraph("body"), Data{"title": "Anexo"}, header)
	hdr, err := out.Tree("word/header1.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"Anexo"}, paragraphTexts(hdr.Root()))
}

func TestRenderLeavesTemplateUntouched(t *testing.T) {
	tmpl, err := Prepare(bytes.NewReader(docxtest.Build(docxtest.Paragraph("{{ v }}"))))
	require.NoError(t, err)

	first, err := tmpl.Render(Data{"v": "one"})
	require.NoError(t, err)
	second, err := tmpl.Render(Data{"v": "two"})
	require.NoError(t, err)

	for want, pkg := range map[string]*Package{"one": first, "two": second} {
		doc, err := pkg.Document()
		require.NoError(t, err)
		assert.Equal(t, []string{want}, paragraphTexts(xml.Body(doc.Root())))
	}
	original, _ := tmpl.Package().Part(DocumentPart)
	assert.True(t, strings.Contains(string(original), "{{ v }}"))
}

func TestRenderFunctionPerTemplate(t *testing.T) {
	tmpl, err := Prepare(bytes.NewReader(docxtest.Build(docxtest.Paragraph("{{ twice(n) }}"))))
	require.NoError(t, err)
	require.NoError(t, tmpl.RegisterFunction(NewSimpleFunction("twice", 1, 1, func(args ...any) (any, error) {
		n, _ := toInt(args[0])
		return n * 2, nil
	})))
	out, err := tmpl.Render(Data{"n": 21})
	require.NoError(t, err)
	doc, err := out.Document()
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, paragraphTexts(xml.Body(doc.Root())))
}
