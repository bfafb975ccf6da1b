package xml

import "strings"

// NodeKind identifies what a Node holds.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
	CommentNode
	ProcInstNode
	DirectiveNode
	DocumentNode
)

// Attr is an attribute with its qualified name ("w:val", "xmlns:w").
type Attr struct {
	Name  string
	Value string
}

// Node is a single XML node. Element nodes carry Name, Attrs and Children;
// text, comment, directive and processing-instruction nodes carry Text (for a
// processing instruction, Name holds the target).
type Node struct {
	Kind     NodeKind
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// NewElement creates an element node.
func NewElement(name string, attrs ...Attr) *Node {
	return &Node{Kind: ElementNode, Name: name, Attrs: attrs}
}

// NewText creates a character data node.
func NewText(text string) *Node {
	return &Node{Kind: TextNode, Text: text}
}

// Is reports whether n is an element with the given qualified name.
func (n *Node) Is(name string) bool {
	return n != nil && n.Kind == ElementNode && n.Name == name
}

// Local returns the element name without its prefix.
func (n *Node) Local() string {
	if i := strings.IndexByte(n.Name, ':'); i >= 0 {
		return n.Name[i+1:]
	}
	return n.Name
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute, keeping attribute order stable.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// Child returns the first child element with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Is(name) {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct child elements with the given name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Is(name) {
			out = append(out, c)
		}
	}
	return out
}

// Elements returns the direct element children.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Append adds children at the end.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// InsertAt inserts children at index i (clamped to the valid range).
func (n *Node) InsertAt(i int, children ...*Node) {
	if i < 0 {
		i = 0
	}
	if i > len(n.Children) {
		i = len(n.Children)
	}
	out := make([]*Node, 0, len(n.Children)+len(children))
	out = append(out, n.Children[:i]...)
	out = append(out, children...)
	out = append(out, n.Children[i:]...)
	n.Children = out
}

// IndexOf returns the position of child among n's children, or -1.
func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// InsertBefore inserts nodes immediately before ref. It reports false when ref
// is not a child of n.
func (n *Node) InsertBefore(ref *Node, nodes ...*Node) bool {
	i := n.IndexOf(ref)
	if i < 0 {
		return false
	}
	n.InsertAt(i, nodes...)
	return true
}

// InsertAfter inserts nodes immediately after ref.
func (n *Node) InsertAfter(ref *Node, nodes ...*Node) bool {
	i := n.IndexOf(ref)
	if i < 0 {
		return false
	}
	n.InsertAt(i+1, nodes...)
	return true
}

// Remove unlinks child from n.
func (n *Node) Remove(child *Node) bool {
	i := n.IndexOf(child)
	if i < 0 {
		return false
	}
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	return true
}

// RemoveNamed unlinks every direct child element with one of the given names.
func (n *Node) RemoveNamed(names ...string) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		drop := false
		for _, name := range names {
			if c.Is(name) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	n.Children = kept
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Name: n.Name, Text: n.Text}
	if n.Attrs != nil {
		c.Attrs = make([]Attr, len(n.Attrs))
		copy(c.Attrs, n.Attrs)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Walk visits n and its descendants depth first in document order. When fn
// returns false the children of that node are skipped.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns every descendant element with the given name, in document order.
func (n *Node) Find(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		c.Walk(func(x *Node) bool {
			if x.Is(name) {
				out = append(out, x)
			}
			return true
		})
	}
	return out
}
