package synth

import (
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// EvaluationGrid is the nine-column layout of an evaluation matrix: activity,
// evidence, hours, five performance levels and the mentor signature.
var EvaluationGrid = []int{2160, 2160, 1008, 576, 576, 576, 576, 576, 2592}

// Levels are the performance level columns and the activity fields marking them.
var Levels = []struct {
	Title string
	Field string
}{
	{"0%", "p0"},
	{"70%", "p70"},
	{"80%", "p80"},
	{"90%", "p90"},
	{"100%", "p100"},
}

// SignatureTitle heads the signature column.
const SignatureTitle = "NOMBRE,\nFIRMA Y\nFECHA DE\nEVALUACIÓN\nDEL\nMENTOR DE\nLA UE"

const signatureCol = 8

func span(from, to int) int {
	w := 0
	for _, c := range EvaluationGrid[from:to] {
		w += c
	}
	return w
}

// evaluationBlocks builds one matrix per evaluation with at least one
// activity, each followed by an empty paragraph.
func evaluationBlocks(v any) ([]*xml.Node, int, error) {
	evaluations, err := Records(v)
	if err != nil {
		return nil, 0, err
	}
	var blocks []*xml.Node
	for _, ev := range evaluations {
		activities, err := ev.List("actividades")
		if err != nil {
			return nil, 0, err
		}
		if len(activities) == 0 {
			continue
		}
		blocks = append(blocks, evaluationTable(ev, activities), xml.NewElement(xml.TagParagraph))
	}
	return blocks, len(blocks) / 2, nil
}

// evaluationTable lays out three header rows and one row per activity. The
// activity, evidence, hours and signature headers span header rows two and
// three; the signature value spans every activity row.
func evaluationTable(ev Record, activities []Record) *xml.Node {
	g := EvaluationGrid
	tbl := xml.NewTable(g)

	tbl.Append(xml.NewRow(
		headerCell("COMPETENCIA", xml.CellProps{Width: span(0, 2), GridSpan: 2}, TextSize),
		dataCell(ev.Text("competencia_alcanzada"), xml.CellProps{Width: span(2, 9), GridSpan: 7}, ""),
	))

	tbl.Append(xml.NewRow(
		headerCell("ACTIVIDADES", xml.CellProps{Width: g[0], VMerge: "restart"}, TextSize),
		headerCell("EVIDENCIAS O PRODUCTOS", xml.CellProps{Width: g[1], VMerge: "restart"}, TextSize),
		headerCell("HORAS DE DEDICACIÓN", xml.CellProps{Width: g[2], VMerge: "restart"}, TextSize),
		headerCell("NIVEL DE DESEMPEÑO", xml.CellProps{Width: span(3, 8), GridSpan: 5}, TextSize),
		headerCell(SignatureTitle, xml.CellProps{Width: g[signatureCol], VMerge: "restart"}, SignatureHeaderSize),
	))

	levels := []*xml.Node{
		continued(g[0], HeaderFill),
		continued(g[1], HeaderFill),
		continued(g[2], HeaderFill),
	}
	for i, l := range Levels {
		levels = append(levels, headerCell(l.Title, xml.CellProps{Width: g[3+i]}, TextSize))
	}
	levels = append(levels, continued(g[signatureCol], HeaderFill))
	tbl.Append(xml.NewRow(levels...))

	for i, act := range activities {
		cells := []*xml.Node{
			dataCell(act.Text("descripcion_actividad"), xml.CellProps{Width: g[0]}, ""),
			dataCell(act.Text("evidencia"), xml.CellProps{Width: g[1]}, ""),
			dataCell(act.Text("horas"), xml.CellProps{Width: g[2]}, "center"),
		}
		for j, l := range Levels {
			cells = append(cells, dataCell(act.Text(l.Field), xml.CellProps{Width: g[3+j]}, "center"))
		}
		if i == 0 {
			cells = append(cells, dataCell(ev.Text("firma_y_fecha"),
				xml.CellProps{Width: g[signatureCol], VMerge: "restart"}, "center"))
		} else {
			cells = append(cells, continued(g[signatureCol], ""))
		}
		tbl.Append(xml.NewRow(cells...))
	}
	return tbl
}

// continued is the lower part of a vertically merged cell.
func continued(width int, fill string) *xml.Node {
	return xml.NewCell(xml.CellProps{Width: width, VMerge: "continue", Fill: fill})
}
