// Package synth builds tables from context data in place of cell sentinels
// such as [[TABLA_COMPETENCIAS]] and [[TABLA_EVALUACION]].
//
// Layout is fixed: every grid width is an absolute twip value and every merge
// depends only on the number of records, so the same input always yields the
// same XML.
package synth

import (
	"fmt"
	"strings"

	"github.com/sistemadual/docgen/internal/marker"
	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// Context keys read by the builders.
const (
	CompetencesKey = "lista_competencias"
	EvaluationsKey = "evaluaciones"
)

const (
	// ContentWidth is the usable page width in twips (7.5 in).
	ContentWidth = 10800

	HeaderFill = "BFBFBF"
	Font       = "Helvetica"
	// TextSize is 10pt in half points.
	TextSize = 20
	// SignatureHeaderSize is 7.5pt in half points.
	SignatureHeaderSize = 15
)

// Stats counts what Synthesize built: competence blocks (the competence
// table with its two summary tables) and evaluation matrices.
type Stats struct {
	CompetenceTables int `json:"competence_tables"`
	EvaluationTables int `json:"evaluation_tables"`
}

type target struct {
	cell  *xml.Node
	para  *xml.Node
	kinds []marker.Kind
}

// Synthesize replaces the cell sentinels of profile under body with generated
// tables. Every sentinel occurrence is removed from its paragraph; tables are
// built only for the first occurrence of each kind, as recorded on tracker.
// Targets are collected before any table is added, so generated tables are
// never scanned.
func Synthesize(body *xml.Node, profile marker.Profile, data docgen.Data, tracker *marker.Tracker) (Stats, error) {
	var stats Stats
	if profile.CompetenceTable == "" && profile.EvaluationTable == "" {
		return stats, nil
	}

	var targets []target
	for _, tbl := range xml.AllTables(body) {
		for _, tr := range xml.Rows(tbl) {
			for _, tc := range xml.Cells(tr) {
				for _, p := range xml.Paragraphs(tc) {
					if kinds := profile.ClassifyParagraph(xml.ParagraphText(p)); len(kinds) > 0 {
						targets = append(targets, target{cell: tc, para: p, kinds: kinds})
					}
				}
			}
		}
	}

	for _, t := range targets {
		for _, kind := range t.kinds {
			sentinel := profile.Sentinel(kind)
			xml.SetParagraphText(t.para, strings.ReplaceAll(xml.ParagraphText(t.para), sentinel, ""))
			if !tracker.Claim(kind) {
				continue
			}

			var (
				blocks []*xml.Node
				err    error
			)
			switch kind {
			case marker.CompetenceTable:
				blocks, err = competenceBlocks(data[CompetencesKey])
				if err == nil {
					stats.CompetenceTables++
				}
			case marker.EvaluationTable:
				var n int
				blocks, n, err = evaluationBlocks(data[EvaluationsKey])
				stats.EvaluationTables += n
			}
			if err != nil {
				return stats, fmt.Errorf("synthesize %s: %w", kind, err)
			}
			t.cell.Append(blocks...)
			xml.EnsureTrailingParagraph(t.cell)
		}
	}
	return stats, nil
}

func headerCell(text string, props xml.CellProps, size int) *xml.Node {
	props.Fill = HeaderFill
	return xml.NewCell(props, xml.NewTextParagraph(text,
		xml.ParaProps{Align: "center"},
		xml.RunProps{Bold: true, Font: Font, HalfPoints: size},
	))
}

func dataCell(text string, props xml.CellProps, align string) *xml.Node {
	return xml.NewCell(props, xml.NewTextParagraph(text,
		xml.ParaProps{Align: align},
		xml.RunProps{Font: Font, HalfPoints: TextSize},
	))
}
