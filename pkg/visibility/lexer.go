package visibility

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type kind int

const (
	kindName kind = iota
	kindString
	kindNumber
	kindTrue
	kindFalse
	kindNull
	kindEq
	kindNeq
	kindAnd
	kindOr
	kindNot
	kindOpen
	kindClose
)

type token struct {
	kind kind
	text string
	pos  int
}

var operators = []struct {
	text string
	kind kind
}{
	{"==", kindEq},
	{"!=", kindNeq},
	{"&&", kindAnd},
	{"||", kindOr},
	{"!", kindNot},
	{"(", kindOpen},
	{")", kindClose},
}

func lex(src string) ([]token, error) {
	var tokens []token
	pos := 0
	for pos < len(src) {
		ch := rune(src[pos])
		if unicode.IsSpace(ch) {
			pos++
			continue
		}
		if tok, ok := lexOperator(src, pos); ok {
			tokens = append(tokens, tok)
			pos += len(tok.text)
			continue
		}
		switch {
		case ch == '"' || ch == '\'':
			tok, next, err := lexString(src, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			pos = next
		case strings.ContainsRune("=&|", ch):
			return nil, fmt.Errorf("visibility: stray %q at offset %d", ch, pos)
		default:
			start := pos
			for pos < len(src) && isWordByte(src[pos]) {
				pos++
			}
			if start == pos {
				return nil, fmt.Errorf("visibility: unexpected %q at offset %d", ch, pos)
			}
			tokens = append(tokens, word(src[start:pos], start))
		}
	}
	return tokens, nil
}

func lexOperator(src string, pos int) (token, bool) {
	for _, op := range operators {
		if strings.HasPrefix(src[pos:], op.text) {
			return token{kind: op.kind, text: op.text, pos: pos}, true
		}
	}
	return token{}, false
}

func lexString(src string, start int) (token, int, error) {
	quote := src[start]
	for pos := start + 1; pos < len(src); pos++ {
		switch src[pos] {
		case '\\':
			pos++
		case quote:
			body := src[start+1 : pos]
			if quote == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return token{}, 0, fmt.Errorf("visibility: bad string at offset %d: %w", start, err)
			}
			return token{kind: kindString, text: value, pos: start}, pos + 1, nil
		}
	}
	return token{}, 0, fmt.Errorf("visibility: unterminated string at offset %d", start)
}

func isWordByte(b byte) bool {
	return b == '_' || b == '$' || b == '.' || b == '-' || b == '+' ||
		(b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func word(text string, pos int) token {
	switch strings.ToLower(text) {
	case "true":
		return token{kind: kindTrue, text: text, pos: pos}
	case "false":
		return token{kind: kindFalse, text: text, pos: pos}
	case "null", "nil":
		return token{kind: kindNull, text: text, pos: pos}
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return token{kind: kindNumber, text: text, pos: pos}
	}
	return token{kind: kindName, text: text, pos: pos}
}
