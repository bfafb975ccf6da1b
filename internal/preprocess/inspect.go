package preprocess

import (
	"fmt"

	"github.com/sistemadual/docgen/internal/marker"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// Finding is a marker found in a template.
type Finding struct {
	Location string
	Kind     marker.Kind
	Text     string
}

// Inspect lists the markers of a template body without changing it: row
// markers first, then cell-level synthesizer markers, each in document order.
func Inspect(body *xml.Node, profile marker.Profile) []Finding {
	var findings []Finding
	for _, row := range Classify(body, profile) {
		for _, kind := range row.Kinds {
			findings = append(findings, Finding{
				Location: fmt.Sprintf("table %d row %d", row.Table+1, row.Index+1),
				Kind:     kind,
				Text:     row.Text,
			})
		}
	}
	for ti, tbl := range xml.AllTables(body) {
		for ri, tr := range xml.Rows(tbl) {
			for ci, tc := range xml.Cells(tr) {
				for _, p := range xml.Paragraphs(tc) {
					text := xml.ParagraphText(p)
					for _, kind := range profile.ClassifyParagraph(text) {
						findings = append(findings, Finding{
							Location: fmt.Sprintf("table %d row %d cell %d", ti+1, ri+1, ci+1),
							Kind:     kind,
							Text:     text,
						})
					}
				}
			}
		}
	}
	return findings
}
