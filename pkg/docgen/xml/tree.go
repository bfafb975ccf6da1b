package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Tree is a parsed XML part. Doc is a DocumentNode whose children are the
// prolog (declaration, comments) and the root element.
type Tree struct {
	Doc *Node
}

// Root returns the document element.
func (t *Tree) Root() *Node {
	if t == nil || t.Doc == nil {
		return nil
	}
	for _, c := range t.Doc.Children {
		if c.Kind == ElementNode {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	return &Tree{Doc: t.Doc.Clone()}
}

// Parse reads an XML document keeping prefixes, attribute order and character
// data exactly as written.
func Parse(r io.Reader) (*Tree, error) {
	dec := xml.NewDecoder(r)
	doc := &Node{Kind: DocumentNode}
	stack := []*Node{doc}

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode xml: %w", err)
		}

		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Kind: ElementNode, Name: qualify(t.Name)}
			if len(t.Attr) > 0 {
				el.Attrs = make([]Attr, len(t.Attr))
				for i, a := range t.Attr {
					el.Attrs[i] = Attr{Name: qualify(a.Name), Value: a.Value}
				}
			}
			top.Children = append(top.Children, el)
			stack = append(stack, el)
		case xml.EndElement:
			name := qualify(t.Name)
			if len(stack) < 2 || top.Name != name {
				return nil, fmt.Errorf("unexpected closing tag </%s>", name)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if top == doc && len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			top.Children = append(top.Children, &Node{Kind: TextNode, Text: string(t)})
		case xml.Comment:
			top.Children = append(top.Children, &Node{Kind: CommentNode, Text: string(t)})
		case xml.ProcInst:
			top.Children = append(top.Children, &Node{Kind: ProcInstNode, Name: t.Target, Text: string(t.Inst)})
		case xml.Directive:
			top.Children = append(top.Children, &Node{Kind: DirectiveNode, Text: string(t)})
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name)
	}
	return &Tree{Doc: doc}, nil
}

// ParseBytes parses an in-memory XML part.
func ParseBytes(b []byte) (*Tree, error) {
	return Parse(bytes.NewReader(b))
}

func qualify(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Bytes serializes the tree. The same tree always yields the same bytes.
func (t *Tree) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = t.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo serializes the tree to w.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for i, c := range t.Doc.Children {
		writeNode(&buf, c)
		if c.Kind == ProcInstNode && i < len(t.Doc.Children)-1 {
			buf.WriteString("\r\n")
		}
	}
	return buf.WriteTo(w)
}

// String serializes a single subtree, mostly useful in tests and logs.
func (n *Node) String() string {
	var buf bytes.Buffer
	writeNode(&buf, n)
	return buf.String()
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
)

func writeNode(buf *bytes.Buffer, n *Node) {
	switch n.Kind {
	case DocumentNode:
		for _, c := range n.Children {
			writeNode(buf, c)
		}
	case TextNode:
		textEscaper.WriteString(buf, n.Text)
	case CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(n.Text)
		buf.WriteString("-->")
	case ProcInstNode:
		buf.WriteString("<?")
		buf.WriteString(n.Name)
		if n.Text != "" {
			buf.WriteByte(' ')
			buf.WriteString(n.Text)
		}
		buf.WriteString("?>")
	case DirectiveNode:
		buf.WriteString("<!")
		buf.WriteString(n.Text)
		buf.WriteByte('>')
	case ElementNode:
		buf.WriteByte('<')
		buf.WriteString(n.Name)
		for _, a := range n.Attrs {
			buf.WriteByte(' ')
			buf.WriteString(a.Name)
			buf.WriteString(`="`)
			attrEscaper.WriteString(buf, a.Value)
			buf.WriteByte('"')
		}
		if len(n.Children) == 0 {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for _, c := range n.Children {
			writeNode(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(n.Name)
		buf.WriteByte('>')
	}
}
