// Package docxtest builds small DOCX archives for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const namespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

// Part is an extra archive entry.
type Part struct {
	Name    string
	Content string
}

// DocumentXML wraps body content in a w:document element.
func DocumentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\r\n" +
		`<w:document ` + namespaces + `><w:body>` + body +
		`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr></w:body></w:document>`
}

// PartXML wraps content in a header or footer root element (w:hdr, w:ftr).
func PartXML(root, content string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<` + root + ` ` + namespaces + `>` + content + `</` + root + `>`
}

// Build returns a DOCX archive whose body is body.
func Build(body string, extra ...Part) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []Part{
		{Name: "[Content_Types].xml", Content: contentTypes},
		{Name: "_rels/.rels", Content: packageRels},
		{Name: "word/document.xml", Content: DocumentXML(body)},
		{Name: "word/_rels/document.xml.rels", Content: documentRels},
	}
	for _, p := range append(parts, extra...) {
		w, err := zw.Create(p.Name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(p.Content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WriteFile builds a DOCX into dir and returns its path.
func WriteFile(t testing.TB, dir, name, body string, extra ...Part) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, Build(body, extra...), 0o644))
	return path
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// Run returns a run holding text.
func Run(text string) string {
	return `<w:r><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r>`
}

// BoldRun returns a bold run holding text.
func BoldRun(text string) string {
	return `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r>`
}

// Paragraph returns a paragraph with one run per text argument.
func Paragraph(texts ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, t := range texts {
		sb.WriteString(Run(t))
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// Cell returns a table cell with one paragraph per text.
func Cell(texts ...string) string {
	var sb strings.Builder
	sb.WriteString(`<w:tc><w:tcPr><w:tcW w:w="2000" w:type="dxa"/></w:tcPr>`)
	if len(texts) == 0 {
		sb.WriteString("<w:p/>")
	}
	for _, t := range texts {
		sb.WriteString(Paragraph(t))
	}
	sb.WriteString("</w:tc>")
	return sb.String()
}

// Row returns a row with one single-paragraph cell per text.
func Row(texts ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:tr>")
	for _, t := range texts {
		sb.WriteString(Cell(t))
	}
	sb.WriteString("</w:tr>")
	return sb.String()
}

// Table returns a table holding rows.
func Table(rows ...string) string {
	return `<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr>` + strings.Join(rows, "") + `</w:tbl>`
}

// PNG returns an encoded w by h image.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 155, B: 141, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WritePNG writes a w by h PNG into dir and returns its path.
func WritePNG(t testing.TB, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, PNG(w, h), 0o644))
	return path
}

// PDF returns a PDF with the given number of empty pages and a correct
// cross-reference table.
func PDF(pages int) []byte {
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
	}
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
