// Package preprocess rewrites marker rows of a template into row loop
// directives before the render pass.
//
// The document is first classified: every table row gets its marker kinds.
// A Plan of operations against stable row ids is then built, and applied in a
// single pass once the scan is complete, so no table is modified while it is
// being iterated.
package preprocess

import (
	"fmt"

	"github.com/sistemadual/docgen/internal/marker"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// RowID identifies a row within one Plan.
type RowID int

// Row is a classified table row.
type Row struct {
	ID    RowID
	Table int
	Index int
	Text  string
	Kinds []marker.Kind

	table *xml.Node
	node  *xml.Node
}

// Has reports whether the row carries kind.
func (r *Row) Has(kind marker.Kind) bool {
	for _, k := range r.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// OpKind is the kind of a planned operation.
type OpKind int

const (
	OpRewrite OpKind = iota
	OpInsertBefore
	OpInsertAfter
	OpPageBreak
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpRewrite:
		return "rewrite"
	case OpInsertBefore:
		return "insert-before"
	case OpInsertAfter:
		return "insert-after"
	case OpPageBreak:
		return "page-break"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Op is one planned change to a row.
type Op struct {
	Kind OpKind
	Row  RowID
	// Directive is the text of an inserted directive row.
	Directive string
	// Family drives OpRewrite.
	Family marker.Family
	// Paragraph is the paragraph that receives a page break before it.
	Paragraph *xml.Node
}

// Plan is the ordered list of operations for one document.
type Plan struct {
	Rows []*Row
	Ops  []Op
}

// Stats summarizes an applied plan.
type Stats struct {
	GhostTags  int `json:"ghost_tags"`
	Loops      int `json:"loops"`
	PageBreaks int `json:"page_breaks"`
	Deleted    int `json:"deleted"`
}

// Classify assigns marker kinds to every row of every table under body, in
// document order. Nested tables are included.
func Classify(body *xml.Node, profile marker.Profile) []*Row {
	var rows []*Row
	for ti, tbl := range xml.AllTables(body) {
		for ri, tr := range xml.Rows(tbl) {
			text := xml.RowText(tr)
			rows = append(rows, &Row{
				ID:    RowID(len(rows)),
				Table: ti,
				Index: ri,
				Text:  text,
				Kinds: profile.ClassifyRow(text),
				table: tbl,
				node:  tr,
			})
		}
	}
	return rows
}

// Build plans the row operations for body. Once-only markers are claimed on
// tracker. A row family found twice in the same table is ErrDuplicateMarker.
func Build(body *xml.Node, profile marker.Profile, tracker *marker.Tracker) (*Plan, error) {
	plan := &Plan{Rows: Classify(body, profile)}

	seen := make(map[int]map[marker.Kind]int)
	deleting := make(map[int]bool)

	for _, row := range plan.Rows {
		for _, kind := range row.Kinds {
			switch {
			case kind.IsRowFamily():
				if seen[row.Table] == nil {
					seen[row.Table] = make(map[marker.Kind]int)
				}
				if first, dup := seen[row.Table][kind]; dup {
					return nil, fmt.Errorf("%w: %s in table %d rows %d and %d",
						marker.ErrDuplicateMarker, kind, row.Table+1, first+1, row.Index+1)
				}
				seen[row.Table][kind] = row.Index

				family, _ := profile.Family(kind)
				plan.Ops = append(plan.Ops,
					Op{Kind: OpInsertBefore, Row: row.ID, Directive: family.Begin()},
					Op{Kind: OpInsertAfter, Row: row.ID, Directive: family.End()},
					Op{Kind: OpRewrite, Row: row.ID, Family: family},
				)

			case kind == marker.SignatureBlock:
				if tracker.State(marker.SignatureBlock) == marker.Processed {
					continue
				}
				if p := findParagraph(row.node, profile.Signature); p != nil && tracker.Claim(marker.SignatureBlock) {
					plan.Ops = append(plan.Ops, Op{Kind: OpPageBreak, Row: row.ID, Paragraph: p})
				}

			case kind == marker.DeletionStart:
				deleting[row.Table] = true
			case kind == marker.DeletionEnd:
				deleting[row.Table] = false
			}
		}
		if deleting[row.Table] && !row.Has(marker.DeletionStart) {
			plan.Ops = append(plan.Ops, Op{Kind: OpDelete, Row: row.ID})
		}
	}
	return plan, nil
}

// findParagraph returns the first paragraph in the row's cells whose text
// contains s.
func findParagraph(tr *xml.Node, s string) *xml.Node {
	for _, p := range xml.CellParagraphs(tr) {
		if containsText(xml.ParagraphText(p), s) {
			return p
		}
	}
	return nil
}
