// Package visibility evaluates the small boolean rules carried by the
// ui:visibleIf hint. A rule reads form data and decides whether a field is
// shown:
//
//	subscribe
//	!archived
//	plan == "pro" && seats != 1
//	(role == "admin" || $root.owner == true) && email != null
//
// Names resolve against the object that holds the field. The $root prefix
// reads from the top of the form data instead. Dotted names walk nested
// objects and numeric segments index arrays.
package visibility

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// RootPrefix selects the top-level form data in a rule name.
const RootPrefix = "$root"

// Scope supplies the data a rule reads.
type Scope struct {
	// Local is the object holding the field being tested.
	Local any
	// Root is the whole form data.
	Root any
}

// Rule is a compiled visibility expression.
type Rule struct {
	source string
	expr   node
}

// Compile parses a rule. The empty rule always holds.
func Compile(source string) (*Rule, error) {
	trimmed := strings.TrimSpace(source)
	rule := &Rule{source: trimmed}
	if trimmed == "" {
		return rule, nil
	}
	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("visibility: unexpected %q at offset %d", p.peek().text, p.peek().pos)
	}
	rule.expr = expr
	return rule, nil
}

// MustCompile is Compile for rules known at build time.
func MustCompile(source string) *Rule {
	rule, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return rule
}

// Visible evaluates the rule.
func (r *Rule) Visible(scope Scope) bool {
	if r == nil || r.expr == nil {
		return true
	}
	return r.expr.eval(scope)
}

func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Cache compiles each distinct rule once. The zero value is ready to use
// and safe for concurrent callers.
type Cache struct {
	mu    sync.Mutex
	rules map[string]*Rule
}

// Visible compiles (or reuses) source and evaluates it.
func (c *Cache) Visible(source string, scope Scope) (bool, error) {
	rule, err := c.rule(source)
	if err != nil {
		return true, err
	}
	return rule.Visible(scope), nil
}

func (c *Cache) rule(source string) (*Rule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rule, ok := c.rules[source]; ok {
		return rule, nil
	}
	rule, err := Compile(source)
	if err != nil {
		return nil, err
	}
	if c.rules == nil {
		c.rules = make(map[string]*Rule)
	}
	c.rules[source] = rule
	return rule, nil
}

// Lookup resolves a rule name against scope.
func Lookup(scope Scope, name string) (any, bool) {
	name = strings.TrimSpace(name)
	current := scope.Local
	switch {
	case name == RootPrefix:
		return scope.Root, scope.Root != nil
	case strings.HasPrefix(name, RootPrefix+"."):
		current = scope.Root
		name = name[len(RootPrefix)+1:]
	}
	if name == "" {
		return nil, false
	}
	if obj, ok := current.(map[string]any); ok {
		if value, ok := obj[name]; ok {
			return value, true
		}
	}
	for _, segment := range strings.Split(name, ".") {
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(typed) {
				return nil, false
			}
			current = typed[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
