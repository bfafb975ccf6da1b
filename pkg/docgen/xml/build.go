package xml

import "strconv"

// RunProps describes the formatting of a built run.
type RunProps struct {
	Bold bool
	Font string
	// HalfPoints is the font size in half points (w:sz); 0 leaves it unset.
	HalfPoints int
}

// ParaProps describes a built paragraph.
type ParaProps struct {
	// Align is a w:jc value such as "center"; empty leaves it unset.
	Align string
	// SpaceAfter is the spacing after the paragraph in twips; 0 leaves it unset.
	SpaceAfter int
}

// CellProps describes a built table cell. Width is in twips.
type CellProps struct {
	Width    int
	GridSpan int
	// VMerge is "restart", "continue" or empty.
	VMerge string
	// Fill is a hex shading colour such as "BFBFBF".
	Fill   string
	VAlign string
}

func val(name, v string) *Node {
	return NewElement(name, Attr{Name: "w:val", Value: v})
}

// NewRun builds a run holding text with the given formatting. Newlines become
// line breaks.
func NewRun(text string, props RunProps) *Node {
	r := NewElement(TagRun)
	if rpr := runProperties(props); rpr != nil {
		r.Append(rpr)
	}
	r.Append(textNodes(text)...)
	return r
}

func runProperties(props RunProps) *Node {
	if !props.Bold && props.Font == "" && props.HalfPoints == 0 {
		return nil
	}
	rpr := NewElement(TagRunProps)
	if props.Font != "" {
		rpr.Append(NewElement("w:rFonts",
			Attr{Name: "w:ascii", Value: props.Font},
			Attr{Name: "w:hAnsi", Value: props.Font},
			Attr{Name: "w:cs", Value: props.Font},
		))
	}
	if props.Bold {
		rpr.Append(NewElement("w:b"), NewElement("w:bCs"))
	}
	if props.HalfPoints > 0 {
		sz := strconv.Itoa(props.HalfPoints)
		rpr.Append(val("w:sz", sz), val("w:szCs", sz))
	}
	return rpr
}

// NewParagraph builds a paragraph from runs.
func NewParagraph(props ParaProps, runs ...*Node) *Node {
	p := NewElement(TagParagraph)
	if ppr := paragraphProperties(props); ppr != nil {
		p.Append(ppr)
	}
	return p.Append(runs...)
}

// NewTextParagraph builds a paragraph holding a single formatted run.
func NewTextParagraph(text string, pp ParaProps, rp RunProps) *Node {
	if text == "" {
		return NewParagraph(pp)
	}
	return NewParagraph(pp, NewRun(text, rp))
}

func paragraphProperties(props ParaProps) *Node {
	if props.Align == "" && props.SpaceAfter <= 0 {
		return nil
	}
	ppr := NewElement(TagParaProps)
	if props.SpaceAfter > 0 {
		ppr.Append(NewElement("w:spacing", Attr{Name: "w:after", Value: strconv.Itoa(props.SpaceAfter)}))
	}
	if props.Align != "" {
		ppr.Append(val("w:jc", props.Align))
	}
	return ppr
}

// SetParagraphAlign sets w:jc on an existing paragraph.
func SetParagraphAlign(p *Node, align string) {
	ppr := p.Child(TagParaProps)
	if ppr == nil {
		ppr = NewElement(TagParaProps)
		p.InsertAt(0, ppr)
	}
	if jc := ppr.Child("w:jc"); jc != nil {
		jc.SetAttr("w:val", align)
		return
	}
	// w:jc sits before w:rPr and the section/revision children
	idx := len(ppr.Children)
	for i, c := range ppr.Children {
		if c.Is("w:textDirection") || c.Is("w:textAlignment") || c.Is(TagRunProps) || c.Is(TagSectProps) || c.Is("w:pPrChange") {
			idx = i
			break
		}
	}
	ppr.InsertAt(idx, val("w:jc", align))
}

// NewPageBreakParagraph builds an empty paragraph whose only run forces a page break.
func NewPageBreakParagraph() *Node {
	r := NewElement(TagRun).Append(NewElement(TagBreak, Attr{Name: "w:type", Value: "page"}))
	return NewElement(TagParagraph).Append(r)
}

// NewSpacerParagraph builds the thin paragraph placed between two adjacent
// tables so that Word does not join them: a 2pt non-breaking space with 12pt
// of spacing after.
func NewSpacerParagraph() *Node {
	return NewParagraph(ParaProps{SpaceAfter: 240}, NewRun("\u00a0", RunProps{HalfPoints: 4}))
}

// NewTable builds an empty bordered table with a fixed layout and the given
// grid column widths in twips.
func NewTable(widths []int) *Node {
	total := 0
	grid := NewElement(TagTableGrid)
	for _, w := range widths {
		total += w
		grid.Append(NewElement(TagGridCol, Attr{Name: "w:w", Value: strconv.Itoa(w)}))
	}

	borders := NewElement("w:tblBorders")
	for _, side := range []string{"w:top", "w:left", "w:bottom", "w:right", "w:insideH", "w:insideV"} {
		borders.Append(NewElement(side,
			Attr{Name: "w:val", Value: "single"},
			Attr{Name: "w:sz", Value: "4"},
			Attr{Name: "w:space", Value: "0"},
			Attr{Name: "w:color", Value: "000000"},
		))
	}

	tblPr := NewElement(TagTableProps).Append(
		NewElement("w:tblW", Attr{Name: "w:w", Value: strconv.Itoa(total)}, Attr{Name: "w:type", Value: "dxa"}),
		borders,
		NewElement("w:tblLayout", Attr{Name: "w:type", Value: "fixed"}),
		NewElement("w:tblLook",
			Attr{Name: "w:val", Value: "04A0"},
			Attr{Name: "w:firstRow", Value: "1"},
			Attr{Name: "w:lastRow", Value: "0"},
			Attr{Name: "w:firstColumn", Value: "1"},
			Attr{Name: "w:lastColumn", Value: "0"},
			Attr{Name: "w:noHBand", Value: "0"},
			Attr{Name: "w:noVBand", Value: "1"},
		),
	)
	return NewElement(TagTable).Append(tblPr, grid)
}

// NewRow builds a table row from cells.
func NewRow(cells ...*Node) *Node {
	return NewElement(TagRow).Append(cells...)
}

// NewCell builds a table cell. A cell must end with a paragraph, so an empty
// one is added when paras is empty.
func NewCell(props CellProps, paras ...*Node) *Node {
	tcPr := NewElement(TagCellProps)
	if props.Width > 0 {
		tcPr.Append(NewElement("w:tcW", Attr{Name: "w:w", Value: strconv.Itoa(props.Width)}, Attr{Name: "w:type", Value: "dxa"}))
	}
	if props.GridSpan > 1 {
		tcPr.Append(val("w:gridSpan", strconv.Itoa(props.GridSpan)))
	}
	switch props.VMerge {
	case "restart":
		tcPr.Append(val("w:vMerge", "restart"))
	case "continue":
		tcPr.Append(NewElement("w:vMerge"))
	}
	if props.Fill != "" {
		tcPr.Append(NewElement("w:shd",
			Attr{Name: "w:val", Value: "clear"},
			Attr{Name: "w:color", Value: "auto"},
			Attr{Name: "w:fill", Value: props.Fill},
		))
	}
	if props.VAlign != "" {
		tcPr.Append(val("w:vAlign", props.VAlign))
	}

	tc := NewElement(TagCell)
	if len(tcPr.Children) > 0 {
		tc.Append(tcPr)
	}
	tc.Append(paras...)
	if len(paras) == 0 || !paras[len(paras)-1].Is(TagParagraph) {
		tc.Append(NewElement(TagParagraph))
	}
	return tc
}

// EnsureTrailingParagraph appends an empty paragraph to a cell whose last
// block child is not a paragraph.
func EnsureTrailingParagraph(tc *Node) {
	els := tc.Elements()
	if len(els) == 0 || !els[len(els)-1].Is(TagParagraph) {
		tc.Append(NewElement(TagParagraph))
	}
}
