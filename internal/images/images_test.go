package images

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemadual/docgen/internal/docxtest"
	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

func TestPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"IMAGE_PATH:/tmp/a.png", "/tmp/a.png", true},
		{"IMAGE_PATH: /tmp/a.png ", "/tmp/a.png", true},
		{"/tmp/a.png", "", false},
		{"image_path:/tmp/a.png", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Path(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "IMAGE_PATH:/x.png", Ref("/x.png"))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	chart := docxtest.WritePNG(t, dir, "chart.png", 200, 100)
	missing := filepath.Join(dir, "missing.png")

	data := docgen.Data{
		"nombre": "Ana",
		"chart":  Ref(chart),
		"gone":   Ref(missing),
		"nested": map[string]any{"logo": Ref(chart), "n": 3},
		"list":   []any{Ref(chart), "plain"},
		"rows":   []map[string]any{{"foto": Ref(missing)}},
	}

	var logs bytes.Buffer
	r := NewResolver(WithLogger(log.New(&logs)))
	out := r.Resolve(data)

	assert.Equal(t, "Ana", out["nombre"])
	img, ok := out["chart"].(*docgen.Image)
	require.True(t, ok, "got %T", out["chart"])
	assert.Equal(t, int64(DefaultWidthMM*docgen.EMUPerMM), img.WidthEMU)
	assert.Equal(t, img.WidthEMU/2, img.HeightEMU)

	assert.Equal(t, "", out["gone"])
	assert.IsType(t, &docgen.Image{}, out["nested"].(map[string]any)["logo"])
	assert.Equal(t, 3, out["nested"].(map[string]any)["n"])
	assert.IsType(t, &docgen.Image{}, out["list"].([]any)[0])
	assert.Equal(t, "plain", out["list"].([]any)[1])
	assert.Equal(t, "", out["rows"].([]map[string]any)[0]["foto"])
	assert.Contains(t, logs.String(), "image not found")

	assert.Equal(t, Ref(chart), data["chart"], "input context is not modified")
	assert.Equal(t, Ref(chart), data["nested"].(map[string]any)["logo"])
	assert.Equal(t, Ref(missing), data["rows"].([]map[string]any)[0]["foto"])
}

func TestResolveTypedCollections(t *testing.T) {
	dir := t.TempDir()
	chart := docxtest.WritePNG(t, dir, "chart.png", 20, 20)
	missing := Ref(filepath.Join(dir, "missing.png"))

	type record map[string]any
	data := docgen.Data{
		"rows":    []docgen.Data{{"foto": missing, "n": 1}},
		"fotos":   []string{missing, Ref(chart), "texto"},
		"sub":     docgen.Data{"inner": []docgen.Data{{"foto": missing}}},
		"labels":  map[string]string{"logo": Ref(chart)},
		"records": []record{{"foto": missing}},
		"fixed":   [1]string{missing},
		"bytes":   []byte("IMAGE_PATH:x"),
	}
	out := NewResolver(WithLogger(log.New(io.Discard))).Resolve(data)

	rows := out["rows"].([]docgen.Data)
	assert.Equal(t, "", rows[0]["foto"])
	assert.Equal(t, 1, rows[0]["n"])

	fotos := out["fotos"].([]any)
	require.Len(t, fotos, 3)
	assert.Equal(t, "", fotos[0])
	assert.IsType(t, &docgen.Image{}, fotos[1])
	assert.Equal(t, "texto", fotos[2])

	assert.Equal(t, "", out["sub"].(docgen.Data)["inner"].([]docgen.Data)[0]["foto"])
	assert.IsType(t, &docgen.Image{}, out["labels"].(map[string]any)["logo"])
	assert.Equal(t, "", out["records"].([]any)[0].(map[string]any)["foto"])
	assert.Equal(t, []any{""}, out["fixed"])
	assert.Equal(t, []byte("IMAGE_PATH:x"), out["bytes"])

	assert.Equal(t, missing, data["rows"].([]docgen.Data)[0]["foto"], "input context is not modified")
	assert.Equal(t, missing, data["fotos"].([]string)[0])
}

func TestResolveWidth(t *testing.T) {
	chart := docxtest.WritePNG(t, t.TempDir(), "c.png", 10, 10)
	out := NewResolver(WithWidth(25)).Resolve(docgen.Data{"c": Ref(chart)})
	assert.Equal(t, int64(25*docgen.EMUPerMM), out["c"].(*docgen.Image).WidthEMU)
}

func TestMissingImageRendersBlank(t *testing.T) {
	tmpl, err := docgen.Prepare(bytes.NewReader(docxtest.Build(docxtest.Paragraph("Gráfica: {{ chart }}."))))
	require.NoError(t, err)

	data := NewResolver(WithLogger(log.New(&bytes.Buffer{}))).Resolve(docgen.Data{
		"chart": Ref("/tmp/missing-docgen-chart.png"),
	})
	pkg, err := tmpl.Render(data)
	require.NoError(t, err)

	doc, err := pkg.Document()
	require.NoError(t, err)
	paras := xml.Paragraphs(xml.Body(doc.Root()))
	assert.Equal(t, "Gráfica: .", xml.ParagraphText(paras[0]))
	assert.Empty(t, doc.Root().Find("w:drawing"))
}
