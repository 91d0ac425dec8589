package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard stands for "every property not listed" inside ui:order.
const Wildcard = "*"

// ErrOrderWildcards reports a ui:order list with more than one wildcard.
var ErrOrderWildcards = errors.New("engine: ui:order contains more than one wildcard item")

// OrderProperties arranges names according to order. Entries naming unknown
// properties are ignored. Properties missing from order are placed at the
// wildcard; without a wildcard they are an error. A nil order returns names
// unchanged.
func OrderProperties(names []string, order []string) ([]string, error) {
	if order == nil {
		return names, nil
	}
	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}

	filtered := make([]string, 0, len(order))
	listed := make(map[string]struct{}, len(order))
	wildcard := -1
	for _, entry := range order {
		if entry == Wildcard {
			if wildcard >= 0 {
				return nil, ErrOrderWildcards
			}
			wildcard = len(filtered)
			filtered = append(filtered, entry)
			continue
		}
		if _, ok := known[entry]; !ok {
			continue
		}
		if _, dup := listed[entry]; dup {
			continue
		}
		listed[entry] = struct{}{}
		filtered = append(filtered, entry)
	}

	var rest []string
	for _, name := range names {
		if _, ok := listed[name]; !ok {
			rest = append(rest, name)
		}
	}

	if wildcard < 0 {
		if len(rest) > 0 {
			return nil, fmt.Errorf("engine: ui:order does not contain %s", describeMissing(rest))
		}
		return filtered, nil
	}

	out := make([]string, 0, len(names))
	out = append(out, filtered[:wildcard]...)
	out = append(out, rest...)
	return append(out, filtered[wildcard+1:]...), nil
}

func describeMissing(names []string) string {
	if len(names) == 1 {
		return fmt.Sprintf("property '%s'", names[0])
	}
	return fmt.Sprintf("properties '%s'", strings.Join(names, "', '"))
}
