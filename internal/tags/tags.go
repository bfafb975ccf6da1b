// Package tags performs plain {{ key }} substitution on DOCX documents without
// running the template evaluator.
//
// A tag may be split across runs. When a paragraph contains a known tag its
// whole text is rewritten into the first run and the other runs are emptied,
// so trailing runs lose their own formatting. Paragraphs without a known tag
// are left untouched.
package tags

import (
	"reflect"
	"regexp"

	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// tagRegex matches {{ key }} and {{key}}.
var tagRegex = regexp.MustCompile(`\{\{ ?([^{}\s]+) ?\}\}`)

// Values maps tag names to replacement text.
type Values map[string]string

// FromData keeps the entries of a render context that are not lists or
// maps, formatted as the evaluator would print them.
func FromData(data docgen.Data) Values {
	values := make(Values, len(data))
	for k, v := range data {
		if v != nil {
			switch reflect.TypeOf(v).Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				continue
			}
		}
		values[k] = docgen.FormatValue(v)
	}
	return values
}

// Replace substitutes known tags in s and reports whether anything changed.
func (v Values) Replace(s string) (string, bool) {
	changed := false
	out := tagRegex.ReplaceAllStringFunc(s, func(tag string) string {
		key := tagRegex.FindStringSubmatch(tag)[1]
		if value, ok := v[key]; ok {
			changed = true
			return value
		}
		return tag
	})
	return out, changed
}

// Paragraph substitutes the tags of one paragraph.
func Paragraph(p *xml.Node, values Values) bool {
	text, changed := values.Replace(xml.ParagraphText(p))
	if !changed {
		return false
	}
	xml.SetParagraphText(p, text)
	return true
}

// Container substitutes every paragraph under n, including paragraphs in
// table cells at any depth. It returns the number of paragraphs changed.
func Container(n *xml.Node, values Values) int {
	changed := 0
	for _, p := range xml.AllParagraphs(n) {
		if Paragraph(p, values) {
			changed++
		}
	}
	return changed
}

// Document substitutes the body, headers and footers of a package.
func Document(pkg *docgen.Package, values Values) (int, error) {
	changed := 0
	for _, part := range append([]string{docgen.DocumentPart}, pkg.HeaderFooterParts()...) {
		tree, err := pkg.Tree(part)
		if err != nil {
			return changed, err
		}
		changed += Container(tree.Root(), values)
	}
	return changed, nil
}
