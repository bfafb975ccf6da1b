package render

import (
	"strings"

	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// MergeRuns merges adjacent runs of a paragraph that share formatting, then
// joins runs that together form one template tag even if their formatting
// differs. Only runs holding plain text are touched.
func MergeRuns(p *xml.Node) {
	containers := []*xml.Node{p}
	for _, c := range p.Children {
		if c.Is("w:hyperlink") || c.Is("w:smartTag") || c.Is("w:ins") {
			containers = append(containers, c)
		}
	}
	for _, c := range containers {
		dropProofMarks(c)
		mergeEquivalentRuns(c)
		mergeTemplateExpressionRuns(c)
	}
}

func dropProofMarks(container *xml.Node) {
	container.RemoveNamed("w:proofErr")
}

// isTextRun reports whether r only holds properties and text.
func isTextRun(r *xml.Node) bool {
	if !r.Is(xml.TagRun) {
		return false
	}
	for _, c := range r.Children {
		if c.Kind != xml.ElementNode {
			continue
		}
		if !c.Is(xml.TagRunProps) && !c.Is(xml.TagText) {
			return false
		}
	}
	return true
}

func runPropertiesKey(r *xml.Node) string {
	rpr := r.Child(xml.TagRunProps)
	if rpr == nil {
		return ""
	}
	return rpr.String()
}

func mergeEquivalentRuns(container *xml.Node) {
	var prev *xml.Node
	kept := make([]*xml.Node, 0, len(container.Children))
	for _, c := range container.Children {
		if prev != nil && isTextRun(c) && runPropertiesKey(prev) == runPropertiesKey(c) {
			xml.SetRunText(prev, xml.RunText(prev)+xml.RunText(c))
			continue
		}
		kept = append(kept, c)
		if isTextRun(c) {
			prev = c
		} else {
			prev = nil
		}
	}
	container.Children = kept
}

func mergeTemplateExpressionRuns(container *xml.Node) {
	kept := make([]*xml.Node, 0, len(container.Children))
	var open *xml.Node
	for _, c := range container.Children {
		if open != nil && isTextRun(c) {
			text := xml.RunText(open) + xml.RunText(c)
			xml.SetRunText(open, text)
			if !hasUnclosedTemplateMarker(text) {
				open = nil
			}
			continue
		}
		open = nil
		kept = append(kept, c)
		if isTextRun(c) && hasUnclosedTemplateMarker(xml.RunText(c)) {
			open = c
		}
	}
	container.Children = kept
}

// hasUnclosedTemplateMarker reports whether s opens a {{ or {% tag it does not
// close, or ends with a lone "{" that may start one.
func hasUnclosedTemplateMarker(s string) bool {
	depth := 0
	for i := 0; i < len(s)-1; i++ {
		switch {
		case s[i] == '{' && (s[i+1] == '{' || s[i+1] == '%'):
			depth++
			i++
		case (s[i] == '}' || s[i] == '%') && s[i+1] == '}':
			if depth > 0 {
				depth--
			}
			i++
		}
	}
	return depth > 0 || strings.HasSuffix(s, "{") && !strings.HasSuffix(s, "{{")
}
