package docgen

import (
	"fmt"
	"strconv"

	"github.com/sistemadual/docgen/pkg/docgen/render"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

// renderContext carries per-render state shared by every part.
type renderContext struct {
	pkg       *Package
	part      string
	nextDocPr int
}

func newRenderContext(pkg *Package) *renderContext {
	rc := &renderContext{pkg: pkg, nextDocPr: 1}
	for _, name := range append([]string{DocumentPart}, pkg.HeaderFooterParts()...) {
		t, err := pkg.Tree(name)
		if err != nil {
			continue
		}
		t.Root().Walk(func(n *xml.Node) bool {
			if n.Is("wp:docPr") {
				v, _ := n.Attr("id")
				if id, err := strconv.Atoi(v); err == nil && id >= rc.nextDocPr {
					rc.nextDocPr = id + 1
				}
			}
			return true
		})
	}
	return rc
}

// renderPart renders one XML part in place.
func (rc *renderContext) renderPart(name string, data Data) error {
	t, err := rc.pkg.Tree(name)
	if err != nil {
		return err
	}
	container := t.Root()
	if body := xml.Body(container); body != nil {
		container = body
	}
	rc.part = name
	children, err := rc.renderBlocks(container.Children, data)
	if err != nil {
		return err
	}
	container.Children = children
	return nil
}

func paragraphDirective(n *xml.Node) (render.Directive, bool) {
	if !n.Is(xml.TagParagraph) {
		return render.Directive{}, false
	}
	return render.DetectParagraphDirective(n)
}

func rowDirective(n *xml.Node) (render.Directive, bool) {
	if !n.Is(xml.TagRow) {
		return render.Directive{}, false
	}
	return render.DetectRowDirective(n)
}

// renderBlocks renders the block content of a body, cell or content control.
// Paragraphs that hold only a control directive repeat or select the
// paragraphs and tables up to the matching end.
func (rc *renderContext) renderBlocks(nodes []*xml.Node, data Data) ([]*xml.Node, error) {
	out := make([]*xml.Node, 0, len(nodes))
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		switch {
		case n.Is(xml.TagParagraph):
			if d, ok := paragraphDirective(n); ok {
				end, rendered, err := rc.expandDirective(nodes, i, d, data, paragraphDirective, rc.renderBlocks)
				if err != nil {
					return nil, err
				}
				out = append(out, rendered...)
				i = end
				continue
			}
			if err := rc.renderParagraph(n, data); err != nil {
				return nil, err
			}
		case n.Is(xml.TagTable):
			if err := rc.renderTable(n, data); err != nil {
				return nil, err
			}
		case n.Is("w:sdt"):
			if content := n.Child("w:sdtContent"); content != nil {
				children, err := rc.renderBlocks(content.Children, data)
				if err != nil {
					return nil, err
				}
				content.Children = children
			}
		}
		out = append(out, n)
	}
	return out, nil
}

func (rc *renderContext) renderTable(tbl *xml.Node, data Data) error {
	children, err := rc.renderRows(tbl.Children, data)
	if err != nil {
		return err
	}
	tbl.Children = children
	return nil
}

// renderRows renders table children. Directive rows are consumed and the rows
// between a directive and its end are repeated or selected.
func (rc *renderContext) renderRows(nodes []*xml.Node, data Data) ([]*xml.Node, error) {
	out := make([]*xml.Node, 0, len(nodes))
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if !n.Is(xml.TagRow) {
			out = append(out, n)
			continue
		}
		if d, ok := rowDirective(n); ok {
			end, rendered, err := rc.expandDirective(nodes, i, d, data, rowDirective, rc.renderRows)
			if err != nil {
				return nil, err
			}
			out = append(out, rendered...)
			i = end
			continue
		}
		for _, tc := range xml.Cells(n) {
			children, err := rc.renderBlocks(tc.Children, data)
			if err != nil {
				return nil, err
			}
			tc.Children = children
			xml.EnsureTrailingParagraph(tc)
		}
		out = append(out, n)
	}
	return out, nil
}

type renderFunc func(nodes []*xml.Node, data Data) ([]*xml.Node, error)

// expandDirective handles the block directive d found at nodes[start]. It
// returns the index of the matching end and the rendered replacement nodes.
func (rc *renderContext) expandDirective(
	nodes []*xml.Node,
	start int,
	d render.Directive,
	data Data,
	detect func(*xml.Node) (render.Directive, bool),
	fn renderFunc,
) (int, []*xml.Node, error) {
	switch d.Kind {
	case "for", "if", "unless":
	default:
		return 0, nil, NewTemplateError(fmt.Sprintf("unexpected %s without matching opening tag", d.Kind), 0, 0)
	}

	end, branches, err := render.FindMatchingEnd(len(nodes), func(i int) (render.Directive, bool) {
		return detect(nodes[i])
	}, start)
	if err != nil {
		return 0, nil, NewTemplateError(fmt.Sprintf("%s %q: missing end tag", d.Kind, d.Expr), 0, 0)
	}

	if d.Kind == "for" {
		if len(branches) > 0 {
			return 0, nil, NewTemplateError("else is not allowed inside for", 0, 0)
		}
		rendered, err := rc.expandLoop(d.Expr, nodes[start+1:end], data, fn)
		return end, rendered, err
	}

	body, err := selectBranch(d, nodes, start, end, branches, data)
	if err != nil {
		return 0, nil, err
	}
	rendered, err := fn(cloneNodes(body), data)
	return end, rendered, err
}

func (rc *renderContext) expandLoop(expr string, body []*xml.Node, data Data, fn renderFunc) ([]*xml.Node, error) {
	loop, err := ParseForSyntax(expr)
	if err != nil {
		return nil, err
	}
	items, err := evalCollection(loop.Collection, data)
	if err != nil {
		return nil, err
	}
	var out []*xml.Node
	for i, item := range items {
		rendered, err := fn(cloneNodes(body), loop.scope(data, i, len(items), item))
		if err != nil {
			return nil, err
		}
		out = append(out, rendered...)
	}
	return out, nil
}

// selectBranch returns the nodes of the if/unless branch that applies.
func selectBranch(d render.Directive, nodes []*xml.Node, start, end int, branches []render.Branch, data Data) ([]*xml.Node, error) {
	bounds := make([]int, 0, len(branches)+2)
	bounds = append(bounds, start)
	for _, b := range branches {
		bounds = append(bounds, b.Index)
	}
	bounds = append(bounds, end)

	for k := 0; k < len(bounds)-1; k++ {
		take := true
		switch {
		case k == 0:
			v, err := evaluateCondition(d.Expr, data)
			if err != nil {
				return nil, err
			}
			take = v
			if d.Kind == "unless" {
				take = !v
			}
		case branches[k-1].Kind == "elsif":
			v, err := evaluateCondition(branches[k-1].Expr, data)
			if err != nil {
				return nil, err
			}
			take = v
		}
		if take {
			return nodes[bounds[k]+1 : bounds[k+1]], nil
		}
	}
	return nil, nil
}

func evaluateCondition(expr string, data Data) (bool, error) {
	node, err := ParseExpression(expr)
	if err != nil {
		return false, err
	}
	v, err := node.Evaluate(data)
	if err != nil {
		return false, NewEvaluationError(expr, err)
	}
	return isTruthy(v), nil
}

func cloneNodes(nodes []*xml.Node) []*xml.Node {
	out := make([]*xml.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// renderParagraph substitutes the tags of a paragraph. Each run is rendered
// on its own when its tags are self-contained; otherwise the paragraph text
// is gathered into the first run and rendered there.
func (rc *renderContext) renderParagraph(p *xml.Node, data Data) error {
	render.MergeRuns(p)
	if !HasTemplateTokens(xml.ParagraphText(p)) {
		return nil
	}

	runs := xml.Runs(p)
	parsed := make([][]ControlStructure, len(runs))
	for i, r := range runs {
		text := xml.RunText(r)
		if !HasTemplateTokens(text) {
			continue
		}
		structures, err := ParseControlStructures(text)
		if err != nil {
			parsed = nil
			break
		}
		parsed[i] = structures
	}
	if parsed == nil {
		xml.SetParagraphText(p, xml.ParagraphText(p))
		runs = xml.Runs(p)[:1]
		structures, err := ParseControlStructures(xml.RunText(runs[0]))
		if err != nil {
			return err
		}
		parsed = [][]ControlStructure{structures}
	}

	for i, r := range runs {
		if parsed[i] == nil {
			continue
		}
		var out output
		if err := renderControlBody(parsed[i], data, &out); err != nil {
			return err
		}
		if err := rc.writeRun(p, r, &out); err != nil {
			return err
		}
	}
	return nil
}

// writeRun puts rendered output into r. Images split the run: each fragment
// after the first gets a new run with the same properties.
func (rc *renderContext) writeRun(p, r *xml.Node, out *output) error {
	if !out.hasImages() {
		xml.SetRunText(r, out.String())
		return nil
	}
	parent := parentOf(p, r)
	xml.SetRunText(r, "")
	prev := r
	for i, frag := range out.parts {
		target := r
		if i > 0 {
			target = xml.NewElement(xml.TagRun)
			if rpr := r.Child(xml.TagRunProps); rpr != nil {
				target.Append(rpr.Clone())
			}
			parent.InsertAfter(prev, target)
			prev = target
		}
		if frag.image == nil {
			xml.SetRunText(target, frag.text)
			continue
		}
		drawing, err := rc.drawing(frag.image)
		if err != nil {
			return err
		}
		target.Append(drawing)
	}
	return nil
}

func parentOf(root, child *xml.Node) *xml.Node {
	var parent *xml.Node
	root.Walk(func(n *xml.Node) bool {
		if parent != nil {
			return false
		}
		if n.IndexOf(child) >= 0 {
			parent = n
			return false
		}
		return n.Kind == xml.ElementNode
	})
	return parent
}

const drawingTemplate = `<w:drawing>` +
	`<wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
	`<wp:extent cx="%[1]d" cy="%[2]d"/>` +
	`<wp:effectExtent l="0" t="0" r="0" b="0"/>` +
	`<wp:docPr id="%[3]d" name="Picture %[3]d"/>` +
	`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
	`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">` +
	`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:nvPicPr><pic:cNvPr id="%[3]d" name="Picture %[3]d"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%[4]s" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
	`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`

// drawing embeds img into the package and returns the w:drawing element.
func (rc *renderContext) drawing(img *Image) (*xml.Node, error) {
	relID, err := rc.pkg.AddImage(rc.part, img)
	if err != nil {
		return nil, err
	}
	id := rc.nextDocPr
	rc.nextDocPr++
	t, err := xml.ParseBytes([]byte(fmt.Sprintf(drawingTemplate, img.WidthEMU, img.HeightEMU, id, relID)))
	if err != nil {
		return nil, err
	}
	return t.Root(), nil
}
