package tags

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemadual/docgen/internal/docxtest"
	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

func TestReplace(t *testing.T) {
	values := Values{"nombre": "Ana", "fecha": "1 de mayo"}
	tests := []struct {
		in      string
		want    string
		changed bool
	}{
		{"Hola {{ nombre }}", "Hola Ana", true},
		{"{{nombre}}, {{ fecha }}", "Ana, 1 de mayo", true},
		{"{{ otro }}", "{{ otro }}", false},
		{"{{  nombre  }}", "{{  nombre  }}", false},
		{"sin etiquetas", "sin etiquetas", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, changed := values.Replace(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func openBody(t *testing.T, body string, extra ...docxtest.Part) (*docgen.Package, *xml.Node) {
	t.Helper()
	pkg, err := docgen.OpenBytes(docxtest.Build(body, extra...))
	require.NoError(t, err)
	doc, err := pkg.Document()
	require.NoError(t, err)
	return pkg, xml.Body(doc.Root())
}

func TestParagraphCollapsesIntoFirstRun(t *testing.T) {
	p := "<w:p>" + docxtest.BoldRun("Estimado {{ nom") + docxtest.Run("bre }}:") + docxtest.Run(" gracias") + "</w:p>"
	_, body := openBody(t, p)
	para := xml.Paragraphs(body)[0]

	require.True(t, Paragraph(para, Values{"nombre": "Ana"}))
	runs := xml.Runs(para)
	require.Len(t, runs, 3)
	assert.Equal(t, "Estimado Ana: gracias", xml.RunText(runs[0]))
	assert.NotNil(t, runs[0].Child(xml.TagRunProps))
	assert.Equal(t, "", xml.RunText(runs[1]))
	assert.Equal(t, "", xml.RunText(runs[2]))
}

func TestParagraphNoOp(t *testing.T) {
	p := "<w:p>" + docxtest.BoldRun("uno") + docxtest.Run("dos {{ x }}") + "</w:p>"
	_, body := openBody(t, p)
	para := xml.Paragraphs(body)[0]
	before := para.String()

	assert.False(t, Paragraph(para, Values{"nombre": "Ana"}))
	assert.Equal(t, before, para.String())
}

func TestDocumentCoversTablesAndHeaders(t *testing.T) {
	inner := docxtest.Table(docxtest.Row("{{ nombre }} interno"))
	body := docxtest.Paragraph("{{ nombre }}") +
		docxtest.Table("<w:tr><w:tc>"+docxtest.Paragraph("celda {{ fecha }}")+inner+"<w:p/></w:tc></w:tr>")
	header := docxtest.Part{Name: "word/header1.xml", Content: docxtest.PartXML("w:hdr", docxtest.Paragraph("{{ fecha }}"))}
	pkg, _ := openBody(t, body, header)

	n, err := Document(pkg, Values{"nombre": "Ana", "fecha": "hoy"})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	doc, err := pkg.Document()
	require.NoError(t, err)
	var texts []string
	for _, p := range xml.AllParagraphs(xml.Body(doc.Root())) {
		texts = append(texts, xml.ParagraphText(p))
	}
	assert.Equal(t, []string{"Ana", "celda hoy", "Ana interno", ""}, texts)

	hdr, err := pkg.Tree("word/header1.xml")
	require.NoError(t, err)
	assert.Equal(t, "hoy", xml.ParagraphText(xml.AllParagraphs(hdr.Root())[0]))
}

func TestFromData(t *testing.T) {
	values := FromData(docgen.Data{
		"a":     "x",
		"n":     3,
		"u":     uint(7),
		"u8":    uint8(8),
		"i16":   int16(-2),
		"num":   json.Number("12.50"),
		"f":     1.5,
		"ok":    true,
		"nil":   nil,
		"list":  []any{1},
		"names": []string{"a"},
		"map":   map[string]any{"k": 1},
		"data":  docgen.Data{"k": 1},
	})
	assert.Equal(t, Values{
		"a":   "x",
		"n":   "3",
		"u":   "7",
		"u8":  "8",
		"i16": "-2",
		"num": "12.50",
		"f":   "1.5",
		"ok":  "true",
		"nil": "",
	}, values)
}
