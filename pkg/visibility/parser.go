package visibility

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type node interface {
	eval(scope Scope) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(scope Scope) bool { return n.left.eval(scope) || n.right.eval(scope) }

type andNode struct{ left, right node }

func (n andNode) eval(scope Scope) bool { return n.left.eval(scope) && n.right.eval(scope) }

type notNode struct{ inner node }

func (n notNode) eval(scope Scope) bool { return !n.inner.eval(scope) }

type truthyNode struct{ name string }

func (n truthyNode) eval(scope Scope) bool {
	value, _ := Lookup(scope, n.name)
	return truthy(value)
}

// compareNode tests a name against a literal. The literal's type decides how
// the looked-up value is coerced.
type compareNode struct {
	name    string
	negate  bool
	literal any
}

func (n compareNode) eval(scope Scope) bool {
	value, _ := Lookup(scope, n.name)
	return equal(value, n.literal) != n.negate
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

func (p *parser) accept(k kind) bool {
	if p.done() || p.tokens[p.pos].kind != k {
		return false
	}
	p.pos++
	return true
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(kindOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept(kindAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.accept(kindNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	if p.accept(kindOpen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(kindClose) {
			return nil, errors.New("visibility: missing ')'")
		}
		return inner, nil
	}
	return p.parseTerm()
}

func (p *parser) parseTerm() (node, error) {
	if p.done() {
		return nil, errors.New("visibility: rule ends early")
	}
	tok := p.tokens[p.pos]
	if tok.kind != kindName {
		return nil, fmt.Errorf("visibility: expected a field name at offset %d, got %q", tok.pos, tok.text)
	}
	p.pos++

	negate := false
	switch {
	case p.accept(kindEq):
	case p.accept(kindNeq):
		negate = true
	default:
		return truthyNode{name: tok.text}, nil
	}
	literal, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return compareNode{name: tok.text, negate: negate, literal: literal}, nil
}

func (p *parser) parseLiteral() (any, error) {
	if p.done() {
		return nil, errors.New("visibility: comparison is missing a value")
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.kind {
	case kindString, kindName:
		// bare words compare as strings: status == draft
		return tok.text, nil
	case kindNumber:
		value, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("visibility: bad number %q", tok.text)
		}
		return value, nil
	case kindTrue:
		return true, nil
	case kindFalse:
		return false, nil
	case kindNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("visibility: expected a value at offset %d, got %q", tok.pos, tok.text)
	}
}

func equal(value, literal any) bool {
	switch want := literal.(type) {
	case nil:
		return value == nil
	case bool:
		return asBool(value) == want
	case float64:
		got, ok := asNumber(value)
		return ok && got == want
	case string:
		if value == nil {
			return want == ""
		}
		return fmt.Sprint(value) == want
	default:
		return false
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func asBool(value any) bool {
	if s, ok := value.(string); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed
		}
	}
	return truthy(value)
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
