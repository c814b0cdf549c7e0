package condition

import (
	"fmt"
	"strconv"
)

// ParseError describes why an expression failed to parse.
type ParseError struct {
	Input string
	Pos   int // byte offset into Input
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s (offset %d)", e.Input, e.Msg, e.Pos)
}

// Token kinds. Keywords `and` and `or` arrive as words and are
// recognized by position, so a metric could never shadow them.
const (
	tokWord = iota
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind int
	text string
	pos  int
}

// Parse compiles input into an expression tree. metrics is the set of
// recognized metric names; a comparison over any other name is a parse
// error. Literals must be non-negative integers and the whole input
// must form a single expression.
func Parse(input string, metrics []string) (Expr, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, &ParseError{Input: input, Msg: "empty expression"}
	}

	known := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		known[m] = true
	}

	p := &parser{input: input, tokens: tokens, known: known}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok {
		return nil, p.errorf(t.pos, "unexpected %q after expression", t.text)
	}
	return expr, nil
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case c == '>' || c == '<' || c == '=':
			start := i
			op := string(c)
			if i+1 < len(input) && input[i+1] == '=' {
				op += "="
				i += 2
			} else {
				i++
			}
			if op == "=" {
				return nil, &ParseError{Input: input, Pos: start, Msg: "single '=' is not an operator"}
			}
			tokens = append(tokens, token{tokOp, op, start})
		case isDigit(c):
			start := i
			for i < len(input) && isDigit(input[i]) {
				i++
			}
			tokens = append(tokens, token{tokNumber, input[start:i], start})
		case isWordStart(c):
			start := i
			for i < len(input) && isWordPart(input[i]) {
				i++
			}
			tokens = append(tokens, token{tokWord, input[start:i], start})
		default:
			return nil, &ParseError{Input: input, Pos: i, Msg: fmt.Sprintf("unexpected character %q", rune(c))}
		}
	}
	return tokens, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordPart(c byte) bool { return isWordStart(c) || isDigit(c) }

type parser struct {
	input  string
	tokens []token
	pos    int
	known  map[string]bool
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &ParseError{Input: p.input, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// parseExpr := term ('or' expr)?
// `or` binds loosest and is right-associative: the recursion folds
// `a or b or c` into a or (b or c).
func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok && t.kind == tokWord && t.text == "or" {
		p.pos++
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Logical{Op: "or", Left: left, Right: right}, nil
	}
	return left, nil
}

// parseTerm := factor ('and' factor)*
// `and` is left-associative.
func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokWord || t.text != "and" {
			break
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

// parseFactor := '(' expr ')' | comparison
func (p *parser) parseFactor() (Expr, error) {
	t, ok := p.peek()
	if !ok {
		return nil, p.errorf(len(p.input), "unexpected end of expression")
	}
	if t.kind == tokLParen {
		p.pos++
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, p.errorf(t.pos, "missing closing parenthesis")
		}
		p.pos++
		return expr, nil
	}
	return p.parseComparison()
}

// parseComparison := METRIC OP INTEGER
func (p *parser) parseComparison() (Expr, error) {
	name, ok := p.next()
	if !ok || name.kind != tokWord {
		return nil, p.errorf(name.pos, "expected metric name, got %q", name.text)
	}
	if !p.known[name.text] {
		return nil, p.errorf(name.pos, "unknown metric %q", name.text)
	}

	op, ok := p.next()
	if !ok || op.kind != tokOp {
		return nil, p.errorf(name.pos, "expected comparison operator after %q", name.text)
	}

	lit, ok := p.next()
	if !ok || lit.kind != tokNumber {
		return nil, p.errorf(op.pos, "expected non-negative integer after %q", op.text)
	}
	value, err := strconv.Atoi(lit.text)
	if err != nil {
		return nil, p.errorf(lit.pos, "integer %q out of range", lit.text)
	}

	return &Comparison{Metric: name.text, Op: op.text, Value: value}, nil
}
