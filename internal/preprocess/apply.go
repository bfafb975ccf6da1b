package preprocess

import (
	"strings"

	"github.com/sistemadual/docgen/internal/marker"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

func containsText(text, s string) bool {
	return s != "" && strings.Contains(text, s)
}

// Apply performs the planned operations. Rows scheduled for deletion are
// unlinked last and receive no other operation.
func (p *Plan) Apply() Stats {
	var stats Stats

	deleted := make(map[RowID]bool)
	for _, op := range p.Ops {
		if op.Kind == OpDelete {
			deleted[op.Row] = true
		}
	}

	for _, op := range p.Ops {
		if deleted[op.Row] {
			continue
		}
		row := p.Rows[op.Row]
		switch op.Kind {
		case OpRewrite:
			rewriteRow(row.node, op.Family)
			stats.Loops++
		case OpInsertBefore:
			row.table.InsertBefore(row.node, directiveRow(row.node, op.Directive))
		case OpInsertAfter:
			row.table.InsertAfter(row.node, directiveRow(row.node, op.Directive))
		case OpPageBreak:
			insertPageBreak(row.node, op.Paragraph)
			stats.PageBreaks++
		}
	}

	for _, op := range p.Ops {
		if op.Kind == OpDelete {
			row := p.Rows[op.Row]
			if row.table.Remove(row.node) {
				stats.Deleted++
			}
		}
	}
	return stats
}

// directiveRow clones tr, keeping its cell layout, empties every cell and puts
// text in the first paragraph of the first cell.
func directiveRow(tr *xml.Node, text string) *xml.Node {
	clone := tr.Clone()
	cells := xml.Cells(clone)
	for _, tc := range cells {
		xml.ClearParagraphs(tc)
	}
	if len(cells) > 0 {
		paras := xml.Paragraphs(cells[0])
		if len(paras) == 0 {
			p := xml.NewElement(xml.TagParagraph)
			cells[0].Append(p)
			paras = append(paras, p)
		}
		xml.SetParagraphText(paras[0], text)
	}
	return clone
}

// rewriteRow points the family placeholders of a marker row at the loop item.
func rewriteRow(tr *xml.Node, family marker.Family) {
	for _, p := range xml.CellParagraphs(tr) {
		text := xml.ParagraphText(p)
		if !strings.Contains(text, "{{") {
			continue
		}
		if rewritten := family.Rewrite(text); rewritten != text {
			xml.SetParagraphText(p, rewritten)
		}
	}
}

// insertPageBreak puts a page break paragraph immediately before p inside the
// cell of tr that holds it.
func insertPageBreak(tr *xml.Node, p *xml.Node) {
	for _, tc := range xml.Cells(tr) {
		if tc.InsertBefore(p, xml.NewPageBreakParagraph()) {
			return
		}
	}
}

// StripGhostTags removes tags matched by the profile's ghost pattern from
// every paragraph under body. It returns the number of paragraphs changed.
func StripGhostTags(body *xml.Node, profile marker.Profile) int {
	if profile.GhostTags == nil {
		return 0
	}
	changed := 0
	for _, p := range xml.AllParagraphs(body) {
		text := xml.ParagraphText(p)
		if !profile.GhostTags.MatchString(text) {
			continue
		}
		xml.SetParagraphText(p, profile.GhostTags.ReplaceAllString(text, ""))
		changed++
	}
	return changed
}

// Run strips ghost tags, then builds and applies the row plan for body.
func Run(body *xml.Node, profile marker.Profile, tracker *marker.Tracker) (Stats, error) {
	ghosts := StripGhostTags(body, profile)
	plan, err := Build(body, profile, tracker)
	if err != nil {
		return Stats{}, err
	}
	stats := plan.Apply()
	stats.GhostTags = ghosts
	return stats, nil
}
