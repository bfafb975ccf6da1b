package docgen

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// Well-known part names and relationship types.
const (
	DocumentPart     = "word/document.xml"
	ContentTypesPart = "[Content_Types].xml"

	relationshipsNS   = "http://schemas.openxmlformats.org/package/2006/relationships"
	imageRelationship = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// zipEpoch is stamped on every entry so equal packages serialize to equal bytes.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Package is an opened DOCX archive. Parts keep their original order; XML
// parts are parsed on first access and serialized again on write.
type Package struct {
	names []string
	parts map[string][]byte
	trees map[string]*xml.Tree
	media map[string]string
}

// OpenFile opens a DOCX file. A missing file yields ErrTemplateNotFound.
func OpenFile(filename string) (*Package, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, filename)
		}
		return nil, NewDocumentError("open", filename, err)
	}
	pkg, err := OpenBytes(content)
	if err != nil {
		return nil, NewDocumentError("open", filename, err)
	}
	return pkg, nil
}

// OpenBytes opens a DOCX held in memory.
func OpenBytes(content []byte) (*Package, error) {
	return Open(bytes.NewReader(content), int64(len(content)))
}

// Open reads a DOCX archive.
func Open(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip file: %w", err)
	}

	pkg := newPackage()
	for _, file := range zr.File {
		if file.FileInfo().IsDir() {
			continue
		}
		content, err := readZipFile(file)
		if err != nil {
			return nil, err
		}
		pkg.SetPart(file.Name, content)
	}

	if _, ok := pkg.parts[DocumentPart]; !ok {
		return nil, fmt.Errorf("not a valid DOCX file: missing %s", DocumentPart)
	}
	return pkg, nil
}

func newPackage() *Package {
	return &Package{
		parts: make(map[string][]byte),
		trees: make(map[string]*xml.Tree),
		media: make(map[string]string),
	}
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", file.Name, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", file.Name, err)
	}
	return content, nil
}

// PartNames lists the parts in archive order.
func (p *Package) PartNames() []string {
	return slices.Clone(p.names)
}

// Part returns the current bytes of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	if t, ok := p.trees[name]; ok {
		return t.Bytes(), true
	}
	b, ok := p.parts[name]
	return b, ok
}

// SetPart replaces (or adds) a part, discarding any parsed tree for it.
func (p *Package) SetPart(name string, content []byte) {
	if _, ok := p.parts[name]; !ok {
		p.names = append(p.names, name)
	}
	p.parts[name] = content
	delete(p.trees, name)
}

// Tree returns the parsed tree of an XML part. Changes made to the tree are
// written back when the package is saved.
func (p *Package) Tree(name string) (*xml.Tree, error) {
	if t, ok := p.trees[name]; ok {
		return t, nil
	}
	content, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	t, err := xml.ParseBytes(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	p.trees[name] = t
	return t, nil
}

// Document returns the parsed main document part.
func (p *Package) Document() (*xml.Tree, error) {
	return p.Tree(DocumentPart)
}

// HeaderFooterParts returns the header and footer parts in archive order.
func (p *Package) HeaderFooterParts() []string {
	var out []string
	for _, name := range p.names {
		base := path.Base(name)
		if path.Dir(name) == "word" && strings.HasSuffix(base, ".xml") &&
			(strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")) {
			out = append(out, name)
		}
	}
	return out
}

// Clone returns an independent copy of the package.
func (p *Package) Clone() *Package {
	c := newPackage()
	c.names = slices.Clone(p.names)
	for k, v := range p.parts {
		c.parts[k] = v
	}
	for k, t := range p.trees {
		c.trees[k] = t.Clone()
	}
	for k, v := range p.media {
		c.media[k] = v
	}
	return c
}

// WriteTo writes the package as a DOCX archive.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, name := range p.names {
		content, _ := p.Part(name)
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return cw.n, fmt.Errorf("failed to create part %s: %w", name, err)
		}
		if _, err := fw.Write(content); err != nil {
			return cw.n, fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to close archive: %w", err)
	}
	return cw.n, nil
}

// Bytes returns the serialized archive.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the archive to a file.
func (p *Package) Save(filename string) error {
	content, err := p.Bytes()
	if err != nil {
		return NewDocumentError("save", filename, err)
	}
	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return NewDocumentError("save", filename, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// relsPartName maps "word/document.xml" to "word/_rels/document.xml.rels".
func relsPartName(partName string) string {
	return path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
}

// AddImage stores an image in word/media, relates it to partName and returns
// the relationship id. Identical content added to the same part is stored once.
func (p *Package) AddImage(partName string, img *Image) (string, error) {
	sum := sha256.Sum256(img.Data)
	key := partName + "|" + hex.EncodeToString(sum[:])
	if id, ok := p.media[key]; ok {
		return id, nil
	}

	ext := img.Extension()
	mediaName := p.nextMediaName(ext)
	p.SetPart(mediaName, img.Data)

	rels, err := p.relationships(partName)
	if err != nil {
		return "", err
	}
	id := nextRelationshipID(rels.Root())
	rels.Root().Append(xml.NewElement("Relationship",
		xml.Attr{Name: "Id", Value: id},
		xml.Attr{Name: "Type", Value: imageRelationship},
		xml.Attr{Name: "Target", Value: strings.TrimPrefix(mediaName, "word/")},
	))

	if err := p.ensureContentType(ext, img.MIME); err != nil {
		return "", err
	}
	p.media[key] = id
	Logger().Debug("embedded image", "part", partName, "media", mediaName, "rel", id)
	return id, nil
}

func (p *Package) nextMediaName(ext string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("word/media/image%d.%s", i, ext)
		if _, taken := p.parts[name]; !taken {
			return name
		}
	}
}

func (p *Package) relationships(partName string) (*xml.Tree, error) {
	name := relsPartName(partName)
	if _, ok := p.parts[name]; !ok {
		p.SetPart(name, []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
			`<Relationships xmlns="`+relationshipsNS+`"></Relationships>`))
	}
	return p.Tree(name)
}

func nextRelationshipID(root *xml.Node) string {
	highest := 0
	for _, rel := range root.ChildrenNamed("Relationship") {
		id, _ := rel.Attr("Id")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("rId%d", highest+1)
}

func (p *Package) ensureContentType(ext, mime string) error {
	if _, ok := p.parts[ContentTypesPart]; !ok {
		return nil
	}
	t, err := p.Tree(ContentTypesPart)
	if err != nil {
		return err
	}
	root := t.Root()
	for _, d := range root.ChildrenNamed("Default") {
		if e, _ := d.Attr("Extension"); strings.EqualFold(e, ext) {
			return nil
		}
	}
	root.InsertAt(0, xml.NewElement("Default",
		xml.Attr{Name: "Extension", Value: ext},
		xml.Attr{Name: "ContentType", Value: mime},
	))
	return nil
}
