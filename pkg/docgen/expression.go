package docgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ExpressionNode is a node of a parsed tag expression.
type ExpressionNode interface {
	String() string
	Evaluate(data Data) (any, error)
}

// LiteralNode is a string, number, boolean or nil literal.
type LiteralNode struct {
	Value any
}

func (n *LiteralNode) String() string {
	if str, ok := n.Value.(string); ok {
		return fmt.Sprintf("Literal(%q)", str)
	}
	return fmt.Sprintf("Literal(%v)", n.Value)
}

func (n *LiteralNode) Evaluate(Data) (any, error) {
	return n.Value, nil
}

// VariableNode references a name in the render context.
type VariableNode struct {
	Name string
}

func (n *VariableNode) String() string {
	return fmt.Sprintf("Variable(%s)", n.Name)
}

func (n *VariableNode) Evaluate(data Data) (any, error) {
	if data == nil {
		return nil, nil
	}
	return data[n.Name], nil
}

// BinaryOpNode is a binary operation.
type BinaryOpNode struct {
	Left     ExpressionNode
	Operator string
	Right    ExpressionNode
}

func (n *BinaryOpNode) String() string {
	return fmt.Sprintf("BinaryOp(%s %s %s)", n.Left.String(), n.Operator, n.Right.String())
}

func (n *BinaryOpNode) Evaluate(data Data) (any, error) {
	leftVal, err := n.Left.Evaluate(data)
	if err != nil {
		return nil, err
	}
	// short circuit so that "x and x.y" style guards work
	switch n.Operator {
	case "&":
		if !isTruthy(leftVal) {
			return false, nil
		}
	case "|":
		if isTruthy(leftVal) {
			return true, nil
		}
	}
	rightVal, err := n.Right.Evaluate(data)
	if err != nil {
		return nil, err
	}
	return EvaluateBinaryOperation(leftVal, n.Operator, rightVal)
}

// UnaryOpNode is a unary operation.
type UnaryOpNode struct {
	Operator string
	Operand  ExpressionNode
}

func (n *UnaryOpNode) String() string {
	return fmt.Sprintf("UnaryOp(%s %s)", n.Operator, n.Operand.String())
}

func (n *UnaryOpNode) Evaluate(data Data) (any, error) {
	operandVal, err := n.Operand.Evaluate(data)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "!":
		return !isTruthy(operandVal), nil
	case "-":
		num, ok := toFloat64(operandVal)
		if !ok {
			return nil, fmt.Errorf("cannot apply unary minus to %T", operandVal)
		}
		if isInteger(operandVal) {
			return -int(num), nil
		}
		return -num, nil
	case "+":
		num, ok := toFloat64(operandVal)
		if !ok {
			return nil, fmt.Errorf("cannot apply unary plus to %T", operandVal)
		}
		if isInteger(operandVal) {
			return int(num), nil
		}
		return num, nil
	}
	return nil, fmt.Errorf("unknown unary operator: %s", n.Operator)
}

// FieldAccessNode is obj.field.
type FieldAccessNode struct {
	Object ExpressionNode
	Field  string
}

func (n *FieldAccessNode) String() string {
	return fmt.Sprintf("FieldAccess(%s.%s)", n.Object.String(), n.Field)
}

func (n *FieldAccessNode) Evaluate(data Data) (any, error) {
	obj, err := n.Object.Evaluate(data)
	if err != nil {
		return nil, err
	}
	return accessMapField(obj, n.Field), nil
}

// IndexAccessNode is obj[index].
type IndexAccessNode struct {
	Object ExpressionNode
	Index  ExpressionNode
}

func (n *IndexAccessNode) String() string {
	return fmt.Sprintf("IndexAccess(%s[%s])", n.Object.String(), n.Index.String())
}

func (n *IndexAccessNode) Evaluate(data Data) (any, error) {
	obj, err := n.Object.Evaluate(data)
	if err != nil {
		return nil, err
	}
	indexVal, err := n.Index.Evaluate(data)
	if err != nil {
		return nil, err
	}
	switch idx := indexVal.(type) {
	case int:
		return accessArrayIndex(obj, idx), nil
	case string:
		return accessMapField(obj, idx), nil
	case float64:
		return accessArrayIndex(obj, int(idx)), nil
	}
	return nil, fmt.Errorf("invalid index type: %T", indexVal)
}

// FunctionCallNode is name(args...).
type FunctionCallNode struct {
	Name string
	Args []ExpressionNode
}

func (n *FunctionCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("FunctionCall(%s, [%s])", n.Name, strings.Join(args, ", "))
}

func (n *FunctionCallNode) Evaluate(data Data) (any, error) {
	registry := registryFrom(data)
	fn, exists := registry.GetFunction(n.Name)
	if !exists {
		return nil, fmt.Errorf("unknown function: %s", n.Name)
	}
	args := make([]any, len(n.Args))
	for i, arg := range n.Args {
		val, err := arg.Evaluate(data)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate argument %d for function %s: %w", i, n.Name, err)
		}
		args[i] = val
	}
	return fn.Call(args...)
}

// rootName returns the context name an expression starts from, or "" when it
// does not start from a variable.
func rootName(node ExpressionNode) string {
	switch n := node.(type) {
	case *VariableNode:
		return n.Name
	case *FieldAccessNode:
		return rootName(n.Object)
	case *IndexAccessNode:
		return rootName(n.Object)
	}
	return ""
}

// ExpressionToken is a lexical token of an expression.
type ExpressionToken struct {
	Type  ExpressionTokenType
	Value string
	Pos   int
}

type ExpressionTokenType int

const (
	ExprTokenIdentifier ExpressionTokenType = iota
	ExprTokenNumber
	ExprTokenString
	ExprTokenOperator
	ExprTokenLeftParen
	ExprTokenRightParen
	ExprTokenComma
	ExprTokenEOF
)

var (
	identifierRegex  = regexp.MustCompile(`^[\p{L}_][\p{L}0-9_]*`)
	numberRegex      = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`)
	stringRegex      = regexp.MustCompile(`^"([^"\\]|\\.)*"`)
	singleQuoteRegex = regexp.MustCompile(`^'([^'\\]|\\.)*'`)
	operatorRegex    = regexp.MustCompile(`^(==|!=|<=|>=|&&|\|\||\+|\-|\*|\/|\%|\&|\||\!|<|>|\.|\[|\])`)
)

// word operators map onto the symbolic ones
var keywordOperators = map[string]string{
	"and": "&",
	"or":  "|",
	"not": "!",
}

// TokenizeExpression splits an expression into tokens.
func TokenizeExpression(expr string) ([]ExpressionToken, error) {
	var tokens []ExpressionToken
	pos := 0

	for pos < len(expr) {
		if expr[pos] == ' ' || expr[pos] == '\t' || expr[pos] == '\n' {
			pos++
			continue
		}
		remaining := expr[pos:]

		if match := identifierRegex.FindString(remaining); match != "" {
			if op, ok := keywordOperators[match]; ok {
				tokens = append(tokens, ExpressionToken{Type: ExprTokenOperator, Value: op, Pos: pos})
			} else {
				tokens = append(tokens, ExpressionToken{Type: ExprTokenIdentifier, Value: match, Pos: pos})
			}
			pos += len(match)
			continue
		}

		if match := numberRegex.FindString(remaining); match != "" {
			tokens = append(tokens, ExpressionToken{Type: ExprTokenNumber, Value: match, Pos: pos})
			pos += len(match)
			continue
		}

		if match := stringRegex.FindString(remaining); match != "" {
			value := match[1 : len(match)-1]
			value = strings.ReplaceAll(value, `\"`, `"`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{Type: ExprTokenString, Value: value, Pos: pos})
			pos += len(match)
			continue
		}

		if match := singleQuoteRegex.FindString(remaining); match != "" {
			value := match[1 : len(match)-1]
			value = strings.ReplaceAll(value, `\'`, `'`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{Type: ExprTokenString, Value: value, Pos: pos})
			pos += len(match)
			continue
		}

		if match := operatorRegex.FindString(remaining); match != "" {
			op := match
			switch match {
			case "&&":
				op = "&"
			case "||":
				op = "|"
			}
			tokens = append(tokens, ExpressionToken{Type: ExprTokenOperator, Value: op, Pos: pos})
			pos += len(match)
			continue
		}

		switch expr[pos] {
		case '(':
			tokens = append(tokens, ExpressionToken{Type: ExprTokenLeftParen, Value: "(", Pos: pos})
		case ')':
			tokens = append(tokens, ExpressionToken{Type: ExprTokenRightParen, Value: ")", Pos: pos})
		case ',':
			tokens = append(tokens, ExpressionToken{Type: ExprTokenComma, Value: ",", Pos: pos})
		default:
			return nil, NewParseError("unexpected character", string(expr[pos]), pos)
		}
		pos++
	}

	tokens = append(tokens, ExpressionToken{Type: ExprTokenEOF, Pos: pos})
	return tokens, nil
}

// ParseExpression parses an expression string into an AST. Trailing tokens
// are rejected.
func ParseExpression(expr string) (ExpressionNode, error) {
	tokens, err := TokenizeExpression(expr)
	if err != nil {
		return nil, err
	}
	parser := &ExpressionParser{tokens: tokens}
	node, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := parser.current(); tok.Type != ExprTokenEOF {
		return nil, NewParseError("unexpected trailing token", tok.Value, tok.Pos)
	}
	return node, nil
}

// ExpressionParser is a recursive descent parser over expression tokens.
type ExpressionParser struct {
	tokens []ExpressionToken
	pos    int
}

func (p *ExpressionParser) current() ExpressionToken {
	if p.pos >= len(p.tokens) {
		return ExpressionToken{Type: ExprTokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *ExpressionParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *ExpressionParser) atOperator(ops ...string) bool {
	tok := p.current()
	if tok.Type != ExprTokenOperator {
		return false
	}
	for _, op := range ops {
		if tok.Value == op {
			return true
		}
	}
	return false
}

func (p *ExpressionParser) parseExpression() (ExpressionNode, error) {
	return p.parseBinary(0)
}

// precedence levels, lowest first
var binaryLevels = [][]string{
	{"|"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *ExpressionParser) parseBinary(level int) (ExpressionNode, error) {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.atOperator(binaryLevels[level]...) {
		op := p.current().Value
		p.advance()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *ExpressionParser) parseUnary() (ExpressionNode, error) {
	if p.atOperator("!", "-", "+") {
		op := p.current().Value
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: op, Operand: operand}, nil
	}
	return p.parseFieldAccess()
}

func (p *ExpressionParser) parseFieldAccess() (ExpressionNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atOperator("."):
			p.advance()
			tok := p.current()
			if tok.Type != ExprTokenIdentifier && tok.Type != ExprTokenNumber {
				return nil, NewParseError("expected identifier after '.'", tok.Value, tok.Pos)
			}
			p.advance()
			left = &FieldAccessNode{Object: left, Field: tok.Value}
		case p.atOperator("["):
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.atOperator("]") {
				return nil, NewParseError("expected ']' after index", p.current().Value, p.current().Pos)
			}
			p.advance()
			left = &IndexAccessNode{Object: left, Index: index}
		default:
			return left, nil
		}
	}
}

func (p *ExpressionParser) parsePrimary() (ExpressionNode, error) {
	token := p.current()

	switch token.Type {
	case ExprTokenNumber:
		p.advance()
		if intVal, err := strconv.Atoi(token.Value); err == nil {
			return &LiteralNode{Value: intVal}, nil
		}
		floatVal, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, NewParseError("invalid number", token.Value, token.Pos)
		}
		return &LiteralNode{Value: floatVal}, nil

	case ExprTokenString:
		p.advance()
		return &LiteralNode{Value: token.Value}, nil

	case ExprTokenIdentifier:
		p.advance()
		switch token.Value {
		case "true", "True":
			return &LiteralNode{Value: true}, nil
		case "false", "False":
			return &LiteralNode{Value: false}, nil
		case "null", "nil", "None":
			return &LiteralNode{Value: nil}, nil
		}
		if p.current().Type == ExprTokenLeftParen {
			return p.parseFunctionCall(token.Value)
		}
		return &VariableNode{Name: token.Value}, nil

	case ExprTokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Type != ExprTokenRightParen {
			return nil, NewParseError("expected ')' after expression", p.current().Value, p.current().Pos)
		}
		p.advance()
		return expr, nil
	}
	return nil, NewParseError("unexpected token", token.Value, token.Pos)
}

func (p *ExpressionParser) parseFunctionCall(name string) (ExpressionNode, error) {
	p.advance() // '('
	var args []ExpressionNode
	if p.current().Type == ExprTokenRightParen {
		p.advance()
		return &FunctionCallNode{Name: name, Args: args}, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch p.current().Type {
		case ExprTokenComma:
			p.advance()
			continue
		case ExprTokenRightParen:
			p.advance()
			return &FunctionCallNode{Name: name, Args: args}, nil
		}
		return nil, NewParseError("expected ',' or ')' in function arguments", p.current().Value, p.current().Pos)
	}
}
