package docgen

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Template is a prepared DOCX template. A Template is safe for concurrent
// Render calls as long as RegisterFunction is not called at the same time.
type Template struct {
	pkg       *Package
	functions *DefaultFunctionRegistry
}

// Prepare reads a DOCX template.
func Prepare(r io.Reader) (*Template, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDocumentError("read", "", err)
	}
	pkg, err := OpenBytes(content)
	if err != nil {
		return nil, NewDocumentError("open", "", err)
	}
	return PreparePackage(pkg), nil
}

// PrepareFile reads a DOCX template from disk.
func PrepareFile(filename string) (*Template, error) {
	pkg, err := OpenFile(filename)
	if err != nil {
		return nil, err
	}
	return PreparePackage(pkg), nil
}

// PreparePackage wraps an already opened package. The package must not be
// modified afterwards.
func PreparePackage(pkg *Package) *Template {
	return &Template{pkg: pkg}
}

// Package returns the template package.
func (t *Template) Package() *Package {
	return t.pkg
}

// RegisterFunction adds a function available to this template only.
func (t *Template) RegisterFunction(fn Function) error {
	if t.functions == nil {
		t.functions = NewFunctionRegistry()
	}
	return t.functions.RegisterFunction(fn)
}

// Render fills the template with data and returns a new package. The template
// itself is left untouched.
func (t *Template) Render(data Data) (pkg *Package, err error) {
	defer func() {
		if r := recover(); r != nil {
			pkg, err = nil, RecoverError(r)
		}
	}()

	scope := make(Data, len(data)+1)
	for k, v := range data {
		scope[k] = v
	}
	if t.functions != nil {
		scope[functionsKey] = FunctionRegistry(t.functions)
	}

	out := t.pkg.Clone()
	rc := newRenderContext(out)
	parts := append([]string{DocumentPart}, out.HeaderFooterParts()...)
	for _, part := range parts {
		if err := rc.renderPart(part, scope); err != nil {
			return nil, fmt.Errorf("render %s: %w", part, err)
		}
	}
	Logger().Debug("rendered template", "parts", len(parts))
	return out, nil
}

// RenderTo renders the template and writes the DOCX to w.
func (t *Template) RenderTo(w io.Writer, data Data) error {
	out, err := t.Render(data)
	if err != nil {
		return err
	}
	_, err = out.WriteTo(w)
	return err
}

// RenderBytes renders the template into DOCX bytes.
func (t *Template) RenderBytes(data Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.RenderTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderFile renders the template into a file.
func (t *Template) RenderFile(filename string, data Data) error {
	content, err := t.RenderBytes(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return NewDocumentError("save", filename, err)
	}
	return nil
}
