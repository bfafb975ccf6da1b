package docgen

import (
	"regexp"
	"strings"
)

// TokenType represents the type of a template token.
type TokenType int

const (
	TokenText TokenType = iota
	TokenVariable
	TokenIf
	TokenElse
	TokenElsif
	TokenUnless
	TokenFor
	TokenEnd
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenVariable:
		return "variable"
	case TokenIf:
		return "if"
	case TokenElse:
		return "else"
	case TokenElsif:
		return "elsif"
	case TokenUnless:
		return "unless"
	case TokenFor:
		return "for"
	case TokenEnd:
		return "end"
	}
	return "unknown"
}

// Token represents a parsed template token.
type Token struct {
	Type  TokenType
	Value string
}

// Matches {{ expression }} and {% statement %} tags.
var tokenRegex = regexp.MustCompile(`\{\{([^}]*)\}\}|\{%-?([^%]*?)-?%\}`)

// Tokenize splits a template string into text and tag tokens.
func Tokenize(input string) []Token {
	var tokens []Token
	lastEnd := 0

	matches := tokenRegex.FindAllStringSubmatchIndex(input, -1)
	for _, match := range matches {
		if match[0] > lastEnd {
			tokens = append(tokens, Token{Type: TokenText, Value: input[lastEnd:match[0]]})
		}

		var token Token
		if match[2] >= 0 {
			token = parseExpressionTag(strings.TrimSpace(input[match[2]:match[3]]), input[match[0]:match[1]])
		} else {
			token = parseStatementTag(strings.TrimSpace(input[match[4]:match[5]]), input[match[0]:match[1]])
		}
		tokens = append(tokens, token)
		lastEnd = match[1]
	}

	if lastEnd < len(input) {
		tokens = append(tokens, Token{Type: TokenText, Value: input[lastEnd:]})
	}

	Logger().Debug("tokenized", "input_length", len(input), "tokens", len(tokens))
	return tokens
}

// parseExpressionTag classifies the content of a {{ }} tag. Control keywords
// are accepted here for templates written in the {{for x in xs}} style.
func parseExpressionTag(content, raw string) Token {
	if content == "" {
		return Token{Type: TokenText, Value: raw}
	}
	if tok, ok := parseKeyword(content); ok {
		return tok
	}
	return Token{Type: TokenVariable, Value: content}
}

// parseStatementTag classifies the content of a {% %} tag. Row and paragraph
// scope prefixes are dropped; unknown statements are kept as literal text.
func parseStatementTag(content, raw string) Token {
	for _, prefix := range []string{"tr ", "p "} {
		if strings.HasPrefix(content, prefix) {
			content = strings.TrimSpace(content[len(prefix):])
			break
		}
	}
	if tok, ok := parseKeyword(content); ok {
		return tok
	}
	return Token{Type: TokenText, Value: raw}
}

func parseKeyword(content string) (Token, bool) {
	parts := strings.Fields(content)
	if len(parts) == 0 {
		return Token{}, false
	}
	keyword := parts[0]
	rest := strings.TrimSpace(strings.TrimPrefix(content, keyword))

	switch keyword {
	case "if":
		return Token{Type: TokenIf, Value: rest}, true
	case "else":
		return Token{Type: TokenElse}, true
	case "elsif", "elseif", "elif":
		return Token{Type: TokenElsif, Value: rest}, true
	case "unless":
		return Token{Type: TokenUnless, Value: rest}, true
	case "for":
		return Token{Type: TokenFor, Value: rest}, true
	case "end", "endfor", "endif", "endunless":
		return Token{Type: TokenEnd}, true
	}
	return Token{}, false
}

// FindTemplateTokens returns every tag in a string.
func FindTemplateTokens(input string) []string {
	matches := tokenRegex.FindAllString(input, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// HasTemplateTokens reports whether s contains any tag.
func HasTemplateTokens(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}
