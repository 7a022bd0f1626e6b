package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operator is a comparison operator.
type Operator string

const (
	OpEq       Operator = "=="
	OpNeq      Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
)

// node is one element of a compiled query.
type node interface {
	eval(f Fields) (bool, error)
}

type andNode struct{ left, right node }
type orNode struct{ left, right node }
type notNode struct{ inner node }

// cmpNode compares a field with a literal.
type cmpNode struct {
	path  []string
	op    Operator
	value any            // string, float64 or bool
	re    *regexp.Regexp // set for OpMatches
}

// Query is a compiled search expression.
type Query struct {
	src  string
	root node
}

func (q *Query) String() string { return q.src }

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokWord && strings.EqualFold(t.val, kw) {
		p.pos++
		return true
	}
	return false
}

// Compile parses src. The grammar is
//
//	or   = and { "OR" and }
//	and  = not { "AND" not }
//	not  = "NOT" not | "(" or ")" | cmp
//	cmp  = field op literal
//
// where op is one of == != > >= < <= contains matches and literal is a
// quoted string, a number, true or false. Keywords are case-insensitive.
func Compile(src string) (*Query, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", src, err)
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", src, err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("query %q: position %d: unexpected %q", src, t.pos, t.val)
	}
	return &Query{src: src, root: root}, nil
}

// MustCompile is Compile for queries known to be valid.
func MustCompile(src string) *Query {
	q, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return q
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.keyword("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, fmt.Errorf("position %d: expected ')' but got %q", t.pos, t.val)
		}
		return inner, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, error) {
	field := p.next()
	if field.kind != tokWord {
		return nil, fmt.Errorf("position %d: expected field name but got %q", field.pos, field.val)
	}
	path := strings.Split(field.val, ".")
	for _, part := range path {
		if part == "" {
			return nil, fmt.Errorf("position %d: malformed field %q", field.pos, field.val)
		}
	}

	var op Operator
	switch t := p.next(); {
	case t.kind == tokOp:
		op = Operator(t.val)
	case t.kind == tokWord && strings.EqualFold(t.val, "contains"):
		op = OpContains
	case t.kind == tokWord && strings.EqualFold(t.val, "matches"):
		op = OpMatches
	default:
		return nil, fmt.Errorf("position %d: expected comparison operator but got %q", t.pos, t.val)
	}

	lit := p.next()
	n := &cmpNode{path: path, op: op}
	switch lit.kind {
	case tokString:
		n.value = lit.val
	case tokNumber:
		f, err := strconv.ParseFloat(lit.val, 64)
		if err != nil {
			return nil, fmt.Errorf("position %d: invalid number %q", lit.pos, lit.val)
		}
		n.value = f
	case tokWord:
		switch strings.ToLower(lit.val) {
		case "true":
			n.value = true
		case "false":
			n.value = false
		default:
			return nil, fmt.Errorf("position %d: expected a literal but got %q (quote strings)", lit.pos, lit.val)
		}
	default:
		return nil, fmt.Errorf("position %d: expected a literal but got %q", lit.pos, lit.val)
	}

	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		if _, ok := n.value.(float64); !ok {
			return nil, fmt.Errorf("position %d: %s needs a number", lit.pos, op)
		}
	case OpMatches:
		pattern, ok := n.value.(string)
		if !ok {
			return nil, fmt.Errorf("position %d: matches needs a quoted pattern", lit.pos)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("position %d: invalid pattern: %w", lit.pos, err)
		}
		n.re = re
	}
	return n, nil
}
