package expr

import (
	"fmt"
	"strconv"
	"strings"

	"bild-story/variables"
)

// maxDepth limita l'annidamento: input patologici falliscono in fase di parsing
const maxDepth = 64

// Program è un'espressione compilata, valutabile più volte su store diversi
type Program struct {
	source string
	root   node
}

// Source restituisce il testo originale
func (p *Program) Source() string { return p.source }

// Eval valuta il programma sullo store indicato
func (p *Program) Eval(store *variables.Store) (variables.Value, error) {
	return p.root.eval(store)
}

// Compile analizza un'espressione secondo la grammatica:
//
//	expr       := or ( "?" expr ":" expr )?
//	or         := and ( "||" and )*
//	and        := equality ( "&&" equality )*
//	equality   := comparison ( ("==" | "!=" | "===" | "!==") comparison )*
//	comparison := additive ( ("<" | "<=" | ">" | ">=") additive )*
//	additive   := term ( ("+" | "-") term )*
//	term       := unary ( ("*" | "/" | "%") unary )*
//	unary      := ("!" | "-" | "+") unary | primary
//	primary    := NUMBER | STRING | true | false | IDENT | "(" expr ")"
func Compile(src string) (*Program, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}

	return &Program{source: src, root: root}, nil
}

type parser struct {
	tokens []token
	pos    int
	depth  int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// acceptOp consuma il token se è uno degli operatori indicati
func (p *parser) acceptOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != tokOperator {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return &SyntaxError{Pos: p.peek().pos, Msg: "expression nested too deeply"}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseExpr() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokQuestion {
		return cond, nil
	}
	p.next()

	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.next(); tok.kind != tokColon {
		return nil, &SyntaxError{Pos: tok.pos, Msg: "expected ':' in conditional expression"}
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &conditional{cond: cond, then: then, els: els}, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("||"); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logical{op: "||", l: left, r: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			return left, nil
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &logical{op: "&&", l: left, r: right}
	}
}

// parseBinaryLevel gestisce i livelli associativi a sinistra
func (p *parser) parseBinaryLevel(sub func() (node, error), ops ...string) (node, error) {
	left, err := sub()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := sub()
		if err != nil {
			return nil, err
		}
		left = &binary{op: op, l: left, r: right}
	}
}

func (p *parser) parseEquality() (node, error) {
	return p.parseBinaryLevel(p.parseComparison, "===", "!==", "==", "!=")
}

func (p *parser) parseComparison() (node, error) {
	return p.parseBinaryLevel(p.parseAdditive, "<=", ">=", "<", ">")
}

func (p *parser) parseAdditive() (node, error) {
	return p.parseBinaryLevel(p.parseTerm, "+", "-")
}

func (p *parser) parseTerm() (node, error) {
	return p.parseBinaryLevel(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseUnary() (node, error) {
	op, ok := p.acceptOp("!", "-", "+")
	if !ok {
		return p.parsePrimary()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &unary{op: op, x: operand}, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()

	switch tok.kind {
	case tokNumber:
		num, err := parseNumberLiteral(tok.text)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("invalid number %q", tok.text)}
		}
		return &literal{v: variables.NumberValue(num)}, nil

	case tokString:
		return &literal{v: variables.StringValue(tok.text)}, nil

	case tokIdent:
		switch tok.text {
		case "true":
			return &literal{v: variables.BoolValue(true)}, nil
		case "false":
			return &literal{v: variables.BoolValue(false)}, nil
		}
		if p.peek().kind == tokLParen {
			return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("function calls are not supported: %s(...)", tok.text)}
		}
		return &ident{name: tok.text}, nil

	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Msg: "expected ')'"}
		}
		return inner, nil

	case tokEOF:
		return nil, &SyntaxError{Pos: tok.pos, Msg: "unexpected end of expression"}

	default:
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}
}

func parseNumberLiteral(text string) (float64, error) {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") {
		n, err := strconv.ParseUint(lower[2:], 16, 64)
		return float64(n), err
	}
	return strconv.ParseFloat(text, 64)
}
