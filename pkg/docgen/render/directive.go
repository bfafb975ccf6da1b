package render

import (
	"regexp"
	"strings"

	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// Scope says which structure a directive controls.
type Scope int

const (
	// ScopeBlock is a directive written alone in a paragraph or first cell.
	ScopeBlock Scope = iota
	// ScopeRow is a {%tr ... %} directive; the whole row is replaced.
	ScopeRow
	// ScopeParagraph is a {%p ... %} directive; the whole paragraph is replaced.
	ScopeParagraph
)

// Directive is a control directive found in a paragraph or row.
type Directive struct {
	// Kind is one of "for", "if", "elsif", "else", "unless", "end".
	Kind  string
	Expr  string
	Scope Scope
}

var (
	rowTagRegex       = regexp.MustCompile(`\{%tr\s*(.*?)\s*%\}`)
	paragraphTagRegex = regexp.MustCompile(`\{%p\s*(.*?)\s*%\}`)
	stmtTagRegex      = regexp.MustCompile(`^\{%-?\s*(.*?)\s*-?%\}$`)
	exprTagRegex      = regexp.MustCompile(`^\{\{\s*(.*?)\s*\}\}$`)
)

// ParseDirective classifies the body of a tag ("for x in xs", "endif").
func ParseDirective(body string) (Directive, bool) {
	body = strings.TrimSpace(body)
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return Directive{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(body, fields[0]))
	switch fields[0] {
	case "for":
		return Directive{Kind: "for", Expr: rest}, true
	case "if":
		return Directive{Kind: "if", Expr: rest}, true
	case "elsif", "elseif", "elif":
		return Directive{Kind: "elsif", Expr: rest}, true
	case "else":
		return Directive{Kind: "else"}, true
	case "unless":
		return Directive{Kind: "unless", Expr: rest}, true
	case "end", "endfor", "endif", "endunless":
		return Directive{Kind: "end"}, true
	}
	return Directive{}, false
}

// DetectTextDirective recognizes text that consists of exactly one control
// tag, in either {{ }} or {% %} form.
func DetectTextDirective(text string) (Directive, bool) {
	text = strings.TrimSpace(text)
	if m := stmtTagRegex.FindStringSubmatch(text); m != nil && !strings.Contains(m[1], "%}") {
		return ParseDirective(m[1])
	}
	if m := exprTagRegex.FindStringSubmatch(text); m != nil && !strings.Contains(m[1], "}}") {
		return ParseDirective(m[1])
	}
	return Directive{}, false
}

// DetectParagraphDirective returns the block directive a paragraph holds.
// A {%p %} tag anywhere in the paragraph makes the whole paragraph the directive.
func DetectParagraphDirective(p *xml.Node) (Directive, bool) {
	text := xml.ParagraphText(p)
	if m := paragraphTagRegex.FindStringSubmatch(text); m != nil {
		d, ok := ParseDirective(m[1])
		d.Scope = ScopeParagraph
		return d, ok
	}
	d, ok := DetectTextDirective(text)
	d.Scope = ScopeBlock
	return d, ok
}

// DetectRowDirective returns the directive a table row holds. A {%tr %} tag
// anywhere in the row makes the row a directive row; otherwise the first cell
// must hold exactly one control tag and every other cell must be blank.
func DetectRowDirective(tr *xml.Node) (Directive, bool) {
	if m := rowTagRegex.FindStringSubmatch(xml.RowText(tr)); m != nil {
		d, ok := ParseDirective(m[1])
		d.Scope = ScopeRow
		return d, ok
	}

	cells := xml.Cells(tr)
	if len(cells) == 0 {
		return Directive{}, false
	}
	d, ok := DetectTextDirective(xml.CellText(cells[0]))
	if !ok {
		return Directive{}, false
	}
	for _, tc := range cells[1:] {
		if strings.TrimSpace(xml.CellText(tc)) != "" {
			return Directive{}, false
		}
	}
	d.Scope = ScopeBlock
	return d, true
}

// ContainsRowTag reports whether text carries a {%tr %} tag.
func ContainsRowTag(text string) bool {
	return rowTagRegex.MatchString(text)
}
