package sexy

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeList:
		return "list"
	default:
		return fmt.Sprintf("node type %d", int(t))
	}
}

// Pos is a 1-based source position
type Pos struct {
	Line   int
	Column int
}

// Node is one datum of an s-expression
type Node struct {
	Type NodeType
	// NodeSymbol, NodeString, NodeInteger
	Text string
	// NodeList
	Items []*Node
	Pos   Pos
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
	}
}

// Helper constructors for common node types
func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type != NodeList
}

// IsSymbol reports whether n is the symbol name
func (n *Node) IsSymbol(name string) bool {
	return n.Type == NodeSymbol && n.Text == name
}

// Head returns the leading symbol of a list, or "" if there is none
func (n *Node) Head() string {
	if n.Type != NodeList || len(n.Items) == 0 || n.Items[0].Type != NodeSymbol {
		return ""
	}
	return n.Items[0].Text
}

// ErrIncomplete is returned when the input ends inside a list or string.
// Interactive readers use it to ask for more input.
var ErrIncomplete = errors.New("incomplete input")

// SyntaxError is a lexing or parsing failure at a position
type SyntaxError struct {
	Pos     Pos
	Message string
	// set when more input could complete the datum
	incomplete bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrIncomplete && e.incomplete
}

type parser struct {
	lexer        *lexer
	currentToken token
}

// Parse parses exactly one datum
func Parse(input string) (*Node, error) {
	nodes, err := ParseAll(input)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected exactly one datum but got %d", len(nodes))
	}
	return nodes[0], nil
}

// ParseAll parses every datum in the input
func ParseAll(input string) ([]*Node, error) {
	p := &parser{lexer: newLexer(input)}
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	var nodes []*Node
	for p.currentToken.Type != tokenEOF {
		node, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (p *parser) nextToken() error {
	tok, err := p.lexer.nextToken()
	if err != nil {
		return err
	}
	p.currentToken = tok
	return nil
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenSymbol:
		return &Node{Type: NodeSymbol, Text: tok.Value, Pos: tok.Pos}, p.nextToken()
	case tokenString:
		return &Node{Type: NodeString, Text: tok.Value, Pos: tok.Pos}, p.nextToken()
	case tokenInteger:
		return &Node{Type: NodeInteger, Text: tok.Value, Pos: tok.Pos}, p.nextToken()
	case tokenLParen:
		return p.parseList()
	case tokenRParen:
		return nil, &SyntaxError{Pos: tok.Pos, Message: "unexpected ')'"}
	default:
		return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected token: %s", tok.Type)}
	}
}

func (p *parser) parseList() (*Node, error) {
	list := &Node{Type: NodeList, Pos: p.currentToken.Pos}
	if err := p.nextToken(); err != nil { // consume '('
		return nil, err
	}

	for p.currentToken.Type != tokenRParen {
		if p.currentToken.Type == tokenEOF {
			return nil, &SyntaxError{Pos: list.Pos, Message: "unclosed '('", incomplete: true}
		}
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}

	return list, p.nextToken() // consume ')'
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenLParen
	tokenRParen
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type  tokenType
	Value string
	Pos   Pos
}

type lexer struct {
	input  []rune
	offset int
	line   int
	column int
}

func newLexer(input string) *lexer {
	return &lexer{input: []rune(input), line: 1, column: 1}
}

func (l *lexer) current() rune {
	if l.offset >= len(l.input) {
		return 0
	}
	return l.input[l.offset]
}

func (l *lexer) peekChar() rune {
	if l.offset+1 >= len(l.input) {
		return 0
	}
	return l.input[l.offset+1]
}

func (l *lexer) readChar() {
	if l.current() == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.offset++
}

func (l *lexer) pos() Pos {
	return Pos{Line: l.line, Column: l.column}
}

func (l *lexer) skipWhitespaceAndComments() {
	for {
		c := l.current()
		switch {
		case c != 0 && unicode.IsSpace(c):
			l.readChar()
		case c == ';':
			for l.current() != '\n' && l.current() != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *lexer) readWhile(pred func(rune) bool) string {
	start := l.offset
	for l.current() != 0 && pred(l.current()) {
		l.readChar()
	}
	return string(l.input[start:l.offset])
}

func (l *lexer) readString() (string, error) {
	start := l.pos()
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.current() != '"' {
		switch l.current() {
		case 0:
			return "", &SyntaxError{Pos: start, Message: "unterminated string", incomplete: true}
		case '\\':
			l.readChar()
			switch l.current() {
			case '"':
				result.WriteRune('"')
			case '\\':
				result.WriteRune('\\')
			default:
				return "", &SyntaxError{Pos: l.pos(), Message: fmt.Sprintf("invalid escape sequence: \\%c", l.current())}
			}
		default:
			result.WriteRune(l.current())
		}
		l.readChar()
	}
	l.readChar() // skip closing quote

	return result.String(), nil
}

func (l *lexer) nextToken() (token, error) {
	l.skipWhitespaceAndComments()
	pos := l.pos()

	c := l.current()
	switch {
	case c == 0:
		return token{Type: tokenEOF, Pos: pos}, nil
	case c == '(':
		l.readChar()
		return token{Type: tokenLParen, Value: "(", Pos: pos}, nil
	case c == ')':
		l.readChar()
		return token{Type: tokenRParen, Value: ")", Pos: pos}, nil
	case c == '"':
		str, err := l.readString()
		if err != nil {
			return token{}, err
		}
		return token{Type: tokenString, Value: str, Pos: pos}, nil
	case unicode.IsDigit(c) || ((c == '+' || c == '-') && unicode.IsDigit(l.peekChar())):
		start := l.offset
		l.readChar()
		l.readWhile(unicode.IsDigit)
		if isSymbolChar(l.current()) {
			return token{}, &SyntaxError{Pos: pos, Message: fmt.Sprintf("malformed number '%s'", string(l.input[start:l.offset])+string(l.current()))}
		}
		return token{Type: tokenInteger, Value: string(l.input[start:l.offset]), Pos: pos}, nil
	case isSymbolChar(c):
		return token{Type: tokenSymbol, Value: l.readWhile(isSymbolChar), Pos: pos}, nil
	default:
		return token{}, &SyntaxError{Pos: pos, Message: fmt.Sprintf("unexpected character '%c'", c)}
	}
}

func isSymbolChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_-+*/%<>=!.?$:", r)
}
