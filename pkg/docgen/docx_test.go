package docgen

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemadual/docgen/internal/docxtest"
)

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "nope.docx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	_, err = PrepareFile(filepath.Join(t.TempDir(), "nope.docx"))
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestOpenInvalid(t *testing.T) {
	_, err := OpenBytes([]byte("not a zip"))
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.docx")
	require.NoError(t, writeFile(path, []byte("garbage")))
	_, err = OpenFile(path)
	require.Error(t, err)
	assert.True(t, IsDocumentError(err))
}

func TestPackageRoundTrip(t *testing.T) {
	pkg, err := OpenBytes(docxtest.Build(docxtest.Paragraph("hola")))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[Content_Types].xml",
		"_rels/.rels",
		DocumentPart,
		"word/_rels/document.xml.rels",
	}, pkg.PartNames())

	doc, err := pkg.Document()
	require.NoError(t, err)
	assert.Equal(t, []string{"hola"}, paragraphTexts(doc.Root()))

	first, err := pkg.Bytes()
	require.NoError(t, err)
	second, err := pkg.Bytes()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reopened, err := OpenBytes(first)
	require.NoError(t, err)
	a, _ := pkg.Part(DocumentPart)
	b, _ := reopened.Part(DocumentPart)
	assert.Equal(t, string(a), string(b))
}

func TestPackageCloneIsIndependent(t *testing.T) {
	pkg, err := OpenBytes(docxtest.Build(docxtest.Paragraph("hola")))
	require.NoError(t, err)
	_, err = pkg.Document()
	require.NoError(t, err)

	clone := pkg.Clone()
	doc, err := clone.Document()
	require.NoError(t, err)
	doc.Root().Children = nil

	orig, err := pkg.Document()
	require.NoError(t, err)
	assert.NotEmpty(t, orig.Root().Children)
}

func TestAddImageDeduplicates(t *testing.T) {
	pkg, err := OpenBytes(docxtest.Build(docxtest.Paragraph("x")))
	require.NoError(t, err)
	img, err := NewImage(docxtest.PNG(4, 4), "a.png", 10)
	require.NoError(t, err)

	id1, err := pkg.AddImage(DocumentPart, img)
	require.NoError(t, err)
	id2, err := pkg.AddImage(DocumentPart, img)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	other, err := NewImage(docxtest.PNG(8, 4), "b.png", 10)
	require.NoError(t, err)
	id3, err := pkg.AddImage(DocumentPart, other)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	_, ok := pkg.Part("word/media/image2.png")
	assert.True(t, ok)
	_, ok = pkg.Part("word/media/image3.png")
	assert.False(t, ok)
}

func TestAddImageCreatesRelationshipsPart(t *testing.T) {
	header := docxtest.Part{Name: "word/header1.xml", Content: docxtest.PartXML("w:hdr", docxtest.Paragraph("h"))}
	pkg, err := OpenBytes(docxtest.Build(docxtest.Paragraph("x"), header))
	require.NoError(t, err)
	img, err := NewImage(docxtest.PNG(4, 4), "a.png", 10)
	require.NoError(t, err)

	id, err := pkg.AddImage("word/header1.xml", img)
	require.NoError(t, err)
	assert.Equal(t, "rId1", id)
	rels, ok := pkg.Part("word/_rels/header1.xml.rels")
	require.True(t, ok)
	assert.Contains(t, string(rels), `Id="rId1"`)
}

func TestHeaderFooterParts(t *testing.T) {
	pkg, err := OpenBytes(docxtest.Build(docxtest.Paragraph("x"),
		docxtest.Part{Name: "word/footer2.xml", Content: docxtest.PartXML("w:ftr", "")},
		docxtest.Part{Name: "word/header1.xml", Content: docxtest.PartXML("w:hdr", "")},
		docxtest.Part{Name: "word/_rels/header1.xml.rels", Content: "<Relationships/>"},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"word/footer2.xml", "word/header1.xml"}, pkg.HeaderFooterParts())
}
