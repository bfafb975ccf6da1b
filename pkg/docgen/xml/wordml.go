package xml

import "strings"

// WordprocessingML element names as Word writes them.
const (
	TagDocument   = "w:document"
	TagBody       = "w:body"
	TagParagraph  = "w:p"
	TagParaProps  = "w:pPr"
	TagRun        = "w:r"
	TagRunProps   = "w:rPr"
	TagText       = "w:t"
	TagTab        = "w:tab"
	TagBreak      = "w:br"
	TagCarriage   = "w:cr"
	TagTable      = "w:tbl"
	TagTableProps = "w:tblPr"
	TagTableGrid  = "w:tblGrid"
	TagGridCol    = "w:gridCol"
	TagRow        = "w:tr"
	TagCell       = "w:tc"
	TagCellProps  = "w:tcPr"
	TagSectProps  = "w:sectPr"
)

// Body returns the w:body element of a document root.
func Body(root *Node) *Node {
	if root == nil {
		return nil
	}
	if root.Is(TagBody) {
		return root
	}
	return root.Child(TagBody)
}

// Paragraphs returns the paragraphs directly inside a body or cell.
func Paragraphs(container *Node) []*Node {
	return container.ChildrenNamed(TagParagraph)
}

// Tables returns the tables directly inside a body or cell.
func Tables(container *Node) []*Node {
	return container.ChildrenNamed(TagTable)
}

// Rows returns the rows of a table.
func Rows(tbl *Node) []*Node {
	return tbl.ChildrenNamed(TagRow)
}

// Cells returns the cells of a row.
func Cells(row *Node) []*Node {
	return row.ChildrenNamed(TagCell)
}

// Runs returns the runs of a paragraph in document order, including runs
// wrapped in hyperlinks, smart tags or revision marks.
func Runs(p *Node) []*Node {
	var out []*Node
	for _, c := range p.Children {
		c.Walk(func(n *Node) bool {
			if n.Is(TagRun) {
				out = append(out, n)
				return false
			}
			return n.Kind == ElementNode && !n.Is(TagParaProps)
		})
	}
	return out
}

// RunText returns the visible text of a run. Tabs become "\t", line and
// carriage breaks become "\n".
func RunText(r *Node) string {
	var sb strings.Builder
	for _, c := range r.Children {
		switch {
		case c.Is(TagText):
			for _, t := range c.Children {
				if t.Kind == TextNode {
					sb.WriteString(t.Text)
				}
			}
		case c.Is(TagTab):
			sb.WriteByte('\t')
		case c.Is(TagBreak):
			if v, _ := c.Attr("w:type"); v == "" || v == "textWrapping" {
				sb.WriteByte('\n')
			}
		case c.Is(TagCarriage):
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// SetRunText replaces the text content of a run, keeping its properties and
// any non-text content such as drawings.
func SetRunText(r *Node, text string) {
	kept := r.Children[:0]
	for _, c := range r.Children {
		if c.Is(TagText) || c.Is(TagTab) || c.Is(TagCarriage) {
			continue
		}
		if c.Is(TagBreak) {
			if v, _ := c.Attr("w:type"); v == "" || v == "textWrapping" {
				continue
			}
		}
		kept = append(kept, c)
	}
	r.Children = kept
	r.Children = append(r.Children, textNodes(text)...)
}

func textNodes(text string) []*Node {
	if text == "" {
		return nil
	}
	var out []*Node
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out = append(out, NewElement(TagBreak))
		}
		if line == "" {
			continue
		}
		t := NewElement(TagText, Attr{Name: "xml:space", Value: "preserve"})
		t.Append(NewText(line))
		out = append(out, t)
	}
	return out
}

// ParagraphText returns the concatenated text of all runs in a paragraph.
func ParagraphText(p *Node) string {
	var sb strings.Builder
	for _, r := range Runs(p) {
		sb.WriteString(RunText(r))
	}
	return sb.String()
}

// SetParagraphText puts text into the first run of the paragraph and empties
// the rest. A run is created when the paragraph has none.
func SetParagraphText(p *Node, text string) {
	runs := Runs(p)
	if len(runs) == 0 {
		r := NewElement(TagRun)
		SetRunText(r, text)
		p.Append(r)
		return
	}
	SetRunText(runs[0], text)
	for _, r := range runs[1:] {
		SetRunText(r, "")
	}
}

// CellText returns the text of a cell's paragraphs joined by newlines.
func CellText(tc *Node) string {
	paras := Paragraphs(tc)
	parts := make([]string, len(paras))
	for i, p := range paras {
		parts[i] = ParagraphText(p)
	}
	return strings.Join(parts, "\n")
}

// RowText returns the concatenated text of every cell in a row.
func RowText(tr *Node) string {
	var sb strings.Builder
	for _, tc := range Cells(tr) {
		sb.WriteString(CellText(tc))
	}
	return sb.String()
}

// AllTables returns every table under container in document order, including
// tables nested inside cells.
func AllTables(container *Node) []*Node {
	var out []*Node
	for _, c := range container.Children {
		c.Walk(func(n *Node) bool {
			if n.Is(TagTable) {
				out = append(out, n)
			}
			return n.Kind == ElementNode && !n.Is(TagParagraph)
		})
	}
	return out
}

// AllParagraphs returns every paragraph under container in document order,
// descending into table cells at any depth.
func AllParagraphs(container *Node) []*Node {
	var out []*Node
	for _, c := range container.Children {
		c.Walk(func(n *Node) bool {
			if n.Is(TagParagraph) {
				out = append(out, n)
				return false
			}
			return n.Kind == ElementNode
		})
	}
	return out
}

// CellParagraphs returns the paragraphs of every cell in a row.
func CellParagraphs(tr *Node) []*Node {
	var out []*Node
	for _, tc := range Cells(tr) {
		out = append(out, Paragraphs(tc)...)
	}
	return out
}

// CellProperty returns the named child of a cell's w:tcPr, or nil.
func CellProperty(tc *Node, name string) *Node {
	pr := tc.Child(TagCellProps)
	if pr == nil {
		return nil
	}
	return pr.Child(name)
}

// GridSpan returns the number of grid columns a cell spans.
func GridSpan(tc *Node) int {
	gs := CellProperty(tc, "w:gridSpan")
	if gs == nil {
		return 1
	}
	v, _ := gs.Attr("w:val")
	n := 0
	for _, ch := range v {
		if ch < '0' || ch > '9' {
			return 1
		}
		n = n*10 + int(ch-'0')
	}
	if n < 1 {
		return 1
	}
	return n
}

// VMerge returns "restart", "continue" or "" for a cell's vertical merge state.
func VMerge(tc *Node) string {
	vm := CellProperty(tc, "w:vMerge")
	if vm == nil {
		return ""
	}
	if v, _ := vm.Attr("w:val"); v == "restart" {
		return "restart"
	}
	return "continue"
}

// GridColumns returns the column widths from a table's w:tblGrid.
func GridColumns(tbl *Node) []string {
	grid := tbl.Child(TagTableGrid)
	if grid == nil {
		return nil
	}
	var out []string
	for _, col := range grid.ChildrenNamed(TagGridCol) {
		w, _ := col.Attr("w:w")
		out = append(out, w)
	}
	return out
}

// ClearParagraphs empties the text of every paragraph directly inside a cell,
// keeping paragraph and run properties.
func ClearParagraphs(tc *Node) {
	for _, p := range Paragraphs(tc) {
		SetParagraphText(p, "")
	}
}
