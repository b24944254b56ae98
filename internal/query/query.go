// Package query implements the boolean mini-grammar used by the SQL gazette
// backend's text filters. The wire format is fixed: `&` is AND, `!` is an
// AND-NOT continuation negating the term that follows it, `|` is OR, and
// parentheses group. A literal may carry a trailing `! annotation` suffix
// that is a human note, stripped before parsing.
//
// Parsing and SQL generation are separate stages: the parser produces an AST
// of And/Or/Not/Literal nodes and the compiler turns the AST into an
// accent-insensitive, case-insensitive whole-word SQL predicate.
package query

import (
	"fmt"
	"strings"
)

// Kind discriminates AST nodes.
type Kind int

const (
	Literal Kind = iota
	And
	Or
	Not
)

// Node is one AST node. Literal nodes carry Term; And/Or carry two or more
// Kids; Not carries exactly one.
type Node struct {
	Kind Kind
	Term string
	Kids []*Node
}

type tokenKind int

const (
	tokTerm tokenKind = iota
	tokAnd
	tokNot
	tokOr
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

// Parse tokenizes and parses one filter expression. An empty expression or
// one whose annotation strips to nothing returns (nil, nil).
func Parse(input string) (*Node, error) {
	input = stripAnnotation(input)
	toks := tokenize(input)
	if len(toks) == 0 {
		return nil, nil
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q at end of filter expression", p.toks[p.pos].text)
	}
	return n, nil
}

// stripAnnotation truncates a plain literal at its trailing `!` comment.
// Expressions that actually use the grammar (any of & | ( ) present) are
// left untouched; there `!` is the AND-NOT operator.
func stripAnnotation(s string) string {
	if strings.ContainsAny(s, "&|()") {
		return s
	}
	if i := strings.Index(s, "!"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func tokenize(input string) []token {
	var toks []token
	var cur strings.Builder
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			toks = append(toks, token{kind: tokTerm, text: t})
		}
		cur.Reset()
	}
	for _, r := range input {
		switch r {
		case '&':
			flush()
			toks = append(toks, token{kind: tokAnd, text: "&"})
		case '!':
			flush()
			toks = append(toks, token{kind: tokNot, text: "!"})
		case '|':
			flush()
			toks = append(toks, token{kind: tokOr, text: "|"})
		case '(':
			flush()
			toks = append(toks, token{kind: tokOpen, text: "("})
		case ')':
			flush()
			toks = append(toks, token{kind: tokClose, text: ")"})
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

// parseOr := parseAnd ( '|' parseAnd )*
func (p *parser) parseOr() (*Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	kids := []*Node{left}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			break
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		kids = append(kids, right)
	}
	if len(kids) == 1 {
		return left, nil
	}
	return &Node{Kind: Or, Kids: kids}, nil
}

// parseAnd := parseUnary ( ('&'|'!') parseUnary )*  — '!' negates its right
// operand; it is only valid as a continuation, never as a prefix.
func (p *parser) parseAnd() (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	kids := []*Node{left}
	for {
		t, ok := p.peek()
		if !ok || (t.kind != tokAnd && t.kind != tokNot) {
			break
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if t.kind == tokNot {
			right = &Node{Kind: Not, Kids: []*Node{right}}
		}
		kids = append(kids, right)
	}
	if len(kids) == 1 {
		return left, nil
	}
	return &Node{Kind: And, Kids: kids}, nil
}

func (p *parser) parseUnary() (*Node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("filter expression ends where a term was expected")
	}
	switch t.kind {
	case tokOpen:
		p.pos++
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		c, ok := p.peek()
		if !ok || c.kind != tokClose {
			return nil, fmt.Errorf("unbalanced parenthesis in filter expression")
		}
		p.pos++
		return n, nil
	case tokTerm:
		p.pos++
		return &Node{Kind: Literal, Term: t.text}, nil
	}
	return nil, fmt.Errorf("unexpected %q in filter expression", t.text)
}

// Literals returns the positive literal terms of the expression in
// left-to-right order. Negated literals are skipped; they should never be
// highlighted in result excerpts.
func Literals(n *Node) []string {
	var out []string
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case Literal:
			out = append(out, n.Term)
		case Not:
			return
		default:
			for _, k := range n.Kids {
				walk(k)
			}
		}
	}
	walk(n)
	return out
}
