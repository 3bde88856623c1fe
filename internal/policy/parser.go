package policy

import (
	"fmt"
	"strconv"
	"unicode"
)

// ParseExpr parses an applicability expression into its AST. The grammar:
//
//	expr       := or
//	or         := and ("||" and)*
//	and        := unary ("&&" unary)*
//	unary      := "!" unary | primary
//	primary    := "(" expr ")" | membership | comparison
//	membership := STRING "in" IDENT
//	comparison := IDENT ("==" | "!=") (STRING | BOOL)
//	           |  IDENT (">" | ">=" | "<" | "<=") NUMBER
//	           |  IDENT                            (bare boolean field)
//
// Field names are not checked against Facts here; resolution happens at
// evaluation time so an unknown field is a hard evaluation error.
func ParseExpr(input string) (Expr, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", input, err)
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", input, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("parse %q: unexpected token %q", input, p.peek().text)
	}
	return expr, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota // zero value, returned by peek past the end
	tokIdent
	tokString
	tokNumber
	tokBool
	tokOp     // == != > >= < <= && || !
	tokLParen
	tokRParen
	tokIn
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == '"':
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			tokens = append(tokens, token{tokString, string(runes[i+1 : j])})
			i = j + 1
		case c == '&' || c == '|':
			if i+1 >= len(runes) || runes[i+1] != c {
				return nil, fmt.Errorf("unexpected character %q", c)
			}
			tokens = append(tokens, token{tokOp, string([]rune{c, c})})
			i += 2
		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokOp, string([]rune{c, '='})})
				i += 2
			} else if c == '=' {
				return nil, fmt.Errorf("single '=' is not an operator, use '=='")
			} else {
				tokens = append(tokens, token{tokOp, string(c)})
				i++
			}
		case unicode.IsDigit(c):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, string(runes[i:j])})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			switch word {
			case "in":
				tokens = append(tokens, token{tokIn, word})
			case "true", "false":
				tokens = append(tokens, token{tokBool, word})
			default:
				tokens = append(tokens, token{tokIdent, word})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) done() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token {
	if p.done() {
		return token{}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) acceptOp(text string) bool {
	if !p.done() && p.peek().kind == tokOp && p.peek().text == text {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("&&") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.acceptOp("!") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.done() {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	t := p.peek()
	switch t.kind {
	case tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.next()
		return inner, nil
	case tokString:
		// membership: "DE" in targetMarkets
		value := p.next().text
		if p.peek().kind != tokIn {
			return nil, fmt.Errorf("expected 'in' after string literal %q", value)
		}
		p.next()
		if p.peek().kind != tokIdent {
			return nil, fmt.Errorf("expected field name after 'in'")
		}
		field := p.next().text
		return &In{Value: value, Field: field}, nil
	case tokIdent:
		return p.parseComparison()
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

func (p *parser) parseComparison() (Expr, error) {
	field := p.next().text
	if p.done() || p.peek().kind != tokOp || !isComparisonOp(p.peek().text) {
		// Bare boolean field: isCaspInvolved
		return &Equals{Field: field, Value: true}, nil
	}
	op := p.next().text
	switch op {
	case "==", "!=":
		t := p.next()
		var value any
		switch t.kind {
		case tokString:
			value = t.text
		case tokBool:
			value = t.text == "true"
		default:
			return nil, fmt.Errorf("expected string or boolean literal after %q", op)
		}
		return &Equals{Field: field, Value: value, Negate: op == "!="}, nil
	case ">", ">=", "<", "<=":
		t := p.next()
		if t.kind != tokNumber {
			return nil, fmt.Errorf("expected numeric literal after %q", op)
		}
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.text, err)
		}
		return &Compare{Field: field, Op: CompareOp(op), Value: n}, nil
	default:
		return nil, fmt.Errorf("unexpected operator %q after field %q", op, field)
	}
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", ">", ">=", "<", "<=":
		return true
	}
	return false
}
