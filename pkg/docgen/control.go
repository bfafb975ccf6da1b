package docgen

import (
	"fmt"
	"strings"
)

// fragment is a piece of rendered output: text or an inline image.
type fragment struct {
	text  string
	image *Image
}

// output collects rendered fragments, merging adjacent text.
type output struct {
	parts []fragment
}

func (o *output) WriteString(s string) {
	if s == "" {
		return
	}
	if n := len(o.parts); n > 0 && o.parts[n-1].image == nil {
		o.parts[n-1].text += s
		return
	}
	o.parts = append(o.parts, fragment{text: s})
}

func (o *output) WriteImage(img *Image) {
	o.parts = append(o.parts, fragment{image: img})
}

func (o *output) String() string {
	var sb strings.Builder
	for _, p := range o.parts {
		sb.WriteString(p.text)
	}
	return sb.String()
}

func (o *output) hasImages() bool {
	for _, p := range o.parts {
		if p.image != nil {
			return true
		}
	}
	return false
}

// ControlStructure is a node of a parsed inline template.
type ControlStructure interface {
	Render(data Data, out *output) error
	String() string
}

// TextNode is literal text.
type TextNode struct {
	Content string
}

func (n *TextNode) String() string { return fmt.Sprintf("Text(%q)", n.Content) }

func (n *TextNode) Render(_ Data, out *output) error {
	out.WriteString(n.Content)
	return nil
}

// ExpressionContentNode writes the value of an expression.
type ExpressionContentNode struct {
	Source     string
	Expression ExpressionNode
}

func (n *ExpressionContentNode) String() string {
	return fmt.Sprintf("Expression(%s)", n.Expression.String())
}

func (n *ExpressionContentNode) Render(data Data, out *output) error {
	value, err := n.Expression.Evaluate(data)
	if err != nil {
		return NewEvaluationError(n.Source, err)
	}
	if img, ok := value.(*Image); ok && img != nil {
		out.WriteImage(img)
		return nil
	}
	out.WriteString(FormatValue(value))
	return nil
}

// IfNode is an if statement with optional elsif and else branches.
type IfNode struct {
	Condition ExpressionNode
	ThenBody  []ControlStructure
	ElsIfs    []*ElsIfNode
	ElseBody  []ControlStructure
}

// ElsIfNode is an elsif branch.
type ElsIfNode struct {
	Condition ExpressionNode
	Body      []ControlStructure
}

func (n *IfNode) String() string {
	parts := []string{fmt.Sprintf("If(%s)", n.Condition.String())}
	for _, elsif := range n.ElsIfs {
		parts = append(parts, fmt.Sprintf("ElsIf(%s)", elsif.Condition.String()))
	}
	if len(n.ElseBody) > 0 {
		parts = append(parts, "Else")
	}
	return strings.Join(parts, " ")
}

func (n *IfNode) Render(data Data, out *output) error {
	condValue, err := n.Condition.Evaluate(data)
	if err != nil {
		return fmt.Errorf("failed to evaluate if condition: %w", err)
	}
	if isTruthy(condValue) {
		return renderControlBody(n.ThenBody, data, out)
	}
	for _, elsif := range n.ElsIfs {
		v, err := elsif.Condition.Evaluate(data)
		if err != nil {
			return fmt.Errorf("failed to evaluate elsif condition: %w", err)
		}
		if isTruthy(v) {
			return renderControlBody(elsif.Body, data, out)
		}
	}
	return renderControlBody(n.ElseBody, data, out)
}

// UnlessNode is a negated if.
type UnlessNode struct {
	Condition ExpressionNode
	ThenBody  []ControlStructure
	ElseBody  []ControlStructure
}

func (n *UnlessNode) String() string { return fmt.Sprintf("Unless(%s)", n.Condition.String()) }

func (n *UnlessNode) Render(data Data, out *output) error {
	condValue, err := n.Condition.Evaluate(data)
	if err != nil {
		return fmt.Errorf("failed to evaluate unless condition: %w", err)
	}
	if !isTruthy(condValue) {
		return renderControlBody(n.ThenBody, data, out)
	}
	return renderControlBody(n.ElseBody, data, out)
}

// ForNode is a loop over a collection.
type ForNode struct {
	Variable   string
	IndexVar   string
	Collection ExpressionNode
	Body       []ControlStructure
}

func (n *ForNode) String() string {
	if n.IndexVar != "" {
		return fmt.Sprintf("For(%s, %s in %s)", n.IndexVar, n.Variable, n.Collection.String())
	}
	return fmt.Sprintf("For(%s in %s)", n.Variable, n.Collection.String())
}

func (n *ForNode) Render(data Data, out *output) error {
	items, err := evalCollection(n.Collection, data)
	if err != nil {
		return err
	}
	for i, item := range items {
		if err := renderControlBody(n.Body, n.scope(data, i, len(items), item), out); err != nil {
			return err
		}
	}
	return nil
}

// scope returns the context for iteration i: the item under the loop
// variable, the optional 0-based index variable, and a "loop" record.
func (n *ForNode) scope(data Data, i, length int, item any) Data {
	loopData := make(Data, len(data)+3)
	for k, v := range data {
		loopData[k] = v
	}
	loopData[n.Variable] = item
	if n.IndexVar != "" {
		loopData[n.IndexVar] = i
	}
	loopData["loop"] = map[string]any{
		"index":     i + 1,
		"index0":    i,
		"first":     i == 0,
		"last":      i == length-1,
		"length":    length,
		"revindex":  length - i,
		"revindex0": length - i - 1,
	}
	return loopData
}

// evalCollection evaluates a loop collection. A collection whose root name is
// missing from the context is an UndefinedError; nil iterates zero times.
func evalCollection(expr ExpressionNode, data Data) ([]any, error) {
	if root := rootName(expr); root != "" {
		if _, ok := data[root]; !ok {
			return nil, &UndefinedError{Name: root}
		}
	}
	val, err := expr.Evaluate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate collection: %w", err)
	}
	items, err := toSlice(val)
	if err != nil {
		return nil, fmt.Errorf("collection is not iterable: %w", err)
	}
	return items, nil
}

func renderControlBody(body []ControlStructure, data Data, out *output) error {
	for _, item := range body {
		if err := item.Render(data, out); err != nil {
			return err
		}
	}
	return nil
}

// RenderString renders an inline template string against data.
func RenderString(content string, data Data) (string, error) {
	structures, err := ParseControlStructures(content)
	if err != nil {
		return "", err
	}
	var out output
	if err := renderControlBody(structures, data, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// ControlParser parses tokens into control structures.
type ControlParser struct {
	tokens []Token
	pos    int
}

// ParseControlStructures tokenizes and parses an inline template.
func ParseControlStructures(content string) ([]ControlStructure, error) {
	parser := &ControlParser{tokens: Tokenize(content)}
	body, err := parser.parseBodyUntil()
	if err != nil {
		return nil, err
	}
	if parser.pos < len(parser.tokens) {
		tok := parser.current()
		return nil, NewTemplateError(fmt.Sprintf("unexpected %s without matching opening tag", tok.Type), 0, 0)
	}
	return body, nil
}

func (p *ControlParser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenText}
	}
	return p.tokens[p.pos]
}

func (p *ControlParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *ControlParser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

// parseBodyUntil parses structures until one of the stop tokens (or, with no
// stop tokens, until a closing token or the end of input).
func (p *ControlParser) parseBodyUntil(stopTokens ...TokenType) ([]ControlStructure, error) {
	var body []ControlStructure
	for !p.atEnd() {
		current := p.current()
		for _, stop := range stopTokens {
			if current.Type == stop {
				return body, nil
			}
		}

		switch current.Type {
		case TokenText:
			if current.Value != "" {
				body = append(body, &TextNode{Content: current.Value})
			}
			p.advance()
		case TokenVariable:
			expr, err := ParseExpression(current.Value)
			if err != nil {
				return nil, fmt.Errorf("failed to parse expression %s: %w", current.Value, err)
			}
			body = append(body, &ExpressionContentNode{Source: current.Value, Expression: expr})
			p.advance()
		case TokenIf:
			node, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			body = append(body, node)
		case TokenUnless:
			node, err := p.parseUnless()
			if err != nil {
				return nil, err
			}
			body = append(body, node)
		case TokenFor:
			node, err := p.parseFor()
			if err != nil {
				return nil, err
			}
			body = append(body, node)
		default:
			if len(stopTokens) == 0 {
				return body, nil
			}
			return nil, NewTemplateError(fmt.Sprintf("unexpected %s", current.Type), 0, 0)
		}
	}
	if len(stopTokens) > 0 {
		return nil, NewTemplateError("missing end tag", 0, 0)
	}
	return body, nil
}

func (p *ControlParser) parseCondition(kind string) (ExpressionNode, error) {
	expr, err := ParseExpression(p.current().Value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s condition: %w", kind, err)
	}
	p.advance()
	return expr, nil
}

func (p *ControlParser) parseIf() (*IfNode, error) {
	condition, err := p.parseCondition("if")
	if err != nil {
		return nil, err
	}
	node := &IfNode{Condition: condition}
	if node.ThenBody, err = p.parseBodyUntil(TokenElse, TokenElsif, TokenEnd); err != nil {
		return nil, err
	}
	for p.current().Type == TokenElsif {
		cond, err := p.parseCondition("elsif")
		if err != nil {
			return nil, err
		}
		body, err := p.parseBodyUntil(TokenElse, TokenElsif, TokenEnd)
		if err != nil {
			return nil, err
		}
		node.ElsIfs = append(node.ElsIfs, &ElsIfNode{Condition: cond, Body: body})
	}
	if p.current().Type == TokenElse {
		p.advance()
		if node.ElseBody, err = p.parseBodyUntil(TokenEnd); err != nil {
			return nil, err
		}
	}
	p.advance() // end
	return node, nil
}

func (p *ControlParser) parseUnless() (*UnlessNode, error) {
	condition, err := p.parseCondition("unless")
	if err != nil {
		return nil, err
	}
	node := &UnlessNode{Condition: condition}
	if node.ThenBody, err = p.parseBodyUntil(TokenElse, TokenEnd); err != nil {
		return nil, err
	}
	if p.current().Type == TokenElse {
		p.advance()
		if node.ElseBody, err = p.parseBodyUntil(TokenEnd); err != nil {
			return nil, err
		}
	}
	p.advance() // end
	return node, nil
}

func (p *ControlParser) parseFor() (*ForNode, error) {
	node, err := ParseForSyntax(p.current().Value)
	if err != nil {
		return nil, err
	}
	p.advance()
	if node.Body, err = p.parseBodyUntil(TokenEnd); err != nil {
		return nil, err
	}
	p.advance() // end
	return node, nil
}

// ParseForSyntax parses "item in items" or "i, item in items".
func ParseForSyntax(forStr string) (*ForNode, error) {
	forStr = strings.TrimSpace(forStr)
	inIndex := strings.Index(forStr, " in ")
	if inIndex == -1 {
		return nil, NewParseError("invalid for loop syntax: missing 'in' keyword", forStr, 0)
	}
	varsStr := strings.TrimSpace(forStr[:inIndex])
	collection, err := ParseExpression(strings.TrimSpace(forStr[inIndex+4:]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse collection expression: %w", err)
	}

	if strings.Contains(varsStr, ",") {
		parts := strings.Split(varsStr, ",")
		if len(parts) != 2 {
			return nil, NewParseError("invalid indexed for loop syntax", varsStr, 0)
		}
		return &ForNode{
			IndexVar:   strings.TrimSpace(parts[0]),
			Variable:   strings.TrimSpace(parts[1]),
			Collection: collection,
		}, nil
	}
	if varsStr == "" {
		return nil, NewParseError("missing loop variable", forStr, 0)
	}
	return &ForNode{Variable: varsStr, Collection: collection}, nil
}
