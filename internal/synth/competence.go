package synth

import (
	"strings"

	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// CompetenceGrid is the column layout of the competence table.
var CompetenceGrid = []int{720, 5040, 5040}

// Section titles of the single-column tables following the competence table.
const (
	TheoryTitle     = "MARCO TEÓRICO O ANTECEDENTES"
	ActivitiesTitle = "DESCRIPCIÓN DE LAS ACTIVIDADES REALIZADAS"
)

// competenceBlocks builds the competence table (one header row plus one row
// per competence) and the theory and activity summary tables, separated by
// spacer paragraphs.
func competenceBlocks(v any) ([]*xml.Node, error) {
	competences, err := Records(v)
	if err != nil {
		return nil, err
	}

	tbl := xml.NewTable(CompetenceGrid)
	tbl.Append(xml.NewRow(
		headerCell("No.", xml.CellProps{Width: CompetenceGrid[0]}, TextSize),
		headerCell("COMPETENCIAS A DESARROLLAR", xml.CellProps{Width: CompetenceGrid[1]}, TextSize),
		headerCell("ASIGNATURAS", xml.CellProps{Width: CompetenceGrid[2]}, TextSize),
	))

	var theory, activities []string
	for _, c := range competences {
		name := c.Text("competencia_desarrollada")
		tbl.Append(xml.NewRow(
			dataCell(c.Text("numero_consecutivo"), xml.CellProps{Width: CompetenceGrid[0]}, ""),
			dataCell(name, xml.CellProps{Width: CompetenceGrid[1]}, ""),
			dataCell(c.Text("asignaturas_cubre"), xml.CellProps{Width: CompetenceGrid[2]}, "center"),
		))
		if s := c.Text("conocimientos_teoricos"); s != "" {
			theory = append(theory, name+":\n"+s)
		}
		if s := c.Text("descripcion_actividades"); s != "" {
			activities = append(activities, name+":\n"+s)
		}
	}

	return []*xml.Node{
		tbl,
		xml.NewSpacerParagraph(),
		summaryTable(TheoryTitle, strings.Join(theory, "\n\n")),
		xml.NewSpacerParagraph(),
		summaryTable(ActivitiesTitle, strings.Join(activities, "\n\n")),
	}, nil
}

// summaryTable is a full-width table with a header row and one text row.
func summaryTable(title, text string) *xml.Node {
	full := xml.CellProps{Width: ContentWidth}
	return xml.NewTable([]int{ContentWidth}).Append(
		xml.NewRow(headerCell(title, full, TextSize)),
		xml.NewRow(dataCell(text, full, "")),
	)
}
