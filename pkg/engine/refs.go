package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
)

var (
	// ErrRefNotFound reports a $ref whose target does not exist in the root.
	ErrRefNotFound = errors.New("engine: $ref target not found")
	// ErrRefCycle reports a $ref chain that points back at itself.
	ErrRefCycle = errors.New("engine: $ref cycle")
	// ErrRefUnsupported reports refs to other documents or malformed refs.
	ErrRefUnsupported = errors.New("engine: unsupported $ref")
)

// trail is the list of refs expanded on the current resolution path. It is
// copied on extension so sibling branches never see each other's entries.
type trail []string

func (t trail) has(ref string) bool {
	for _, entry := range t {
		if entry == ref {
			return true
		}
	}
	return false
}

func (t trail) with(ref string) trail {
	out := make(trail, len(t), len(t)+1)
	copy(out, t)
	return append(out, ref)
}

// FindDefinition returns the schema a $ref points at. It accepts local JSON
// pointers ("#/definitions/User", "#/components/schemas/User") and bare names
// ("User", looked up under definitions then $defs). Targets that are
// themselves refs are followed; siblings declared next to such a $ref
// override the keywords of what it points at.
func FindDefinition(ref string, root map[string]any) (map[string]any, error) {
	return findDefinition(ref, root, nil)
}

func findDefinition(ref string, root map[string]any, seen trail) (map[string]any, error) {
	ref = strings.TrimSpace(ref)
	if seen.has(ref) {
		return nil, fmt.Errorf("%w: %s via %s", ErrRefCycle, ref, strings.Join(seen, " -> "))
	}

	target, err := lookupRef(ref, root)
	if err != nil {
		return nil, err
	}

	next, ok := target[schema.KeyRef].(string)
	if !ok {
		return target, nil
	}
	inner, err := findDefinition(next, root, seen.with(ref))
	if err != nil {
		return nil, err
	}
	return overlayRef(inner, target), nil
}

func lookupRef(ref string, root map[string]any) (map[string]any, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: %s (no root schema)", ErrRefNotFound, ref)
	}
	switch {
	case strings.HasPrefix(ref, "#"):
		pointer, err := decodeFragment(ref[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRefUnsupported, ref, err)
		}
		return lookupPointer(root, pointer, ref)
	case ref != "" && !strings.ContainsAny(ref, "/#:"):
		for _, container := range []string{schema.KeyDefinitions, schema.KeyDefs} {
			defs, ok := schema.Child(root, container)
			if !ok {
				continue
			}
			if target, ok := schema.Node(defs[ref]); ok {
				return target, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrRefNotFound, ref)
	default:
		return nil, fmt.Errorf("%w: %s", ErrRefUnsupported, ref)
	}
}

func decodeFragment(fragment string) (string, error) {
	if fragment == "" || strings.HasPrefix(fragment, "/") {
		return fragment, nil
	}
	return "", errors.New("anchors are not supported")
}

func lookupPointer(root map[string]any, pointer, ref string) (map[string]any, error) {
	var current any = root
	if pointer != "" {
		for _, part := range strings.Split(pointer, "/")[1:] {
			segment, err := schema.UnescapePointer(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrRefUnsupported, ref, err)
			}
			switch typed := current.(type) {
			case map[string]any:
				value, ok := typed[segment]
				if !ok {
					return nil, fmt.Errorf("%w: %s", ErrRefNotFound, ref)
				}
				current = value
			case []any:
				idx, err := strconv.Atoi(segment)
				if err != nil || idx < 0 || idx >= len(typed) {
					return nil, fmt.Errorf("%w: %s", ErrRefNotFound, ref)
				}
				current = typed[idx]
			default:
				return nil, fmt.Errorf("%w: %s", ErrRefNotFound, ref)
			}
		}
	}
	target, ok := schema.Node(current)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not point at a schema object", ErrRefUnsupported, ref)
	}
	return target, nil
}

// overlayRef splices a ref target in place of refNode: the target's keywords
// first, then every sibling of $ref on top.
func overlayRef(target, refNode map[string]any) map[string]any {
	out := make(map[string]any, len(target)+len(refNode))
	for key, value := range target {
		out[key] = value
	}
	for key, value := range refNode {
		if key == schema.KeyRef {
			continue
		}
		out[key] = value
	}
	return out
}

// expandRef replaces the $ref of node (if any) with its target. Chained refs
// are followed; trail guards against cycles across nested calls.
func (e *Engine) expandRef(node map[string]any, root map[string]any, seen trail) (map[string]any, trail, Resolution) {
	res := resolved(node)
	ref, ok := node[schema.KeyRef].(string)
	if !ok {
		return node, seen, res
	}
	ref = strings.TrimSpace(ref)
	if seen.has(ref) {
		res.degrade(Truncated, "ref cycle at "+ref)
		return node, seen, res
	}
	if len(seen) >= e.opts.MaxRefDepth {
		res.degrade(Truncated, fmt.Sprintf("ref depth exceeds %d at %s", e.opts.MaxRefDepth, ref))
		return node, seen, res
	}

	target, err := findDefinition(ref, root, nil)
	if err != nil {
		outcome := Unsupported
		if errors.Is(err, ErrRefCycle) {
			outcome = Truncated
		}
		e.opts.Logger.Debug("engine: $ref not expanded", "ref", ref, "error", err)
		res.degrade(outcome, err.Error())
		return node, seen, res
	}
	expanded := overlayRef(target, node)
	res.Schema = expanded
	return expanded, seen.with(ref), res
}

// ResolveRefs expands every $ref in node against root until none is left or
// a cycle stops expansion. Definitions containers are left as they are.
// Nodes without refs come back structurally equal to the input.
func (e *Engine) ResolveRefs(node map[string]any, root map[string]any) Resolution {
	res := resolved(nil)
	if node == nil {
		res.degrade(Unsupported, "schema is not an object")
		return res
	}
	res.Schema = e.expandAllRefs(node, root, nil, &res)
	return res
}

func (e *Engine) expandAllRefs(node map[string]any, root map[string]any, seen trail, res *Resolution) map[string]any {
	expanded, next, step := e.expandRef(node, root, seen)
	res.absorb(step)
	if _, still := expanded[schema.KeyRef]; still {
		return expanded
	}

	out := make(map[string]any, len(expanded))
	for key, value := range expanded {
		switch key {
		case schema.KeyProperties, "patternProperties":
			props, ok := schema.Node(value)
			if !ok {
				out[key] = value
				continue
			}
			children := make(map[string]any, len(props))
			for name, child := range props {
				children[name] = e.expandChild(child, root, next, res)
			}
			out[key] = children
		case schema.KeyDependencies:
			deps, ok := schema.Node(value)
			if !ok {
				out[key] = value
				continue
			}
			children := make(map[string]any, len(deps))
			for name, child := range deps {
				children[name] = e.expandChild(child, root, next, res)
			}
			out[key] = children
		case schema.KeyItems:
			if list, ok := value.([]any); ok {
				out[key] = e.expandList(list, root, next, res)
				continue
			}
			out[key] = e.expandChild(value, root, next, res)
		case schema.KeyOneOf, schema.KeyAnyOf, schema.KeyAllOf:
			list, ok := value.([]any)
			if !ok {
				out[key] = value
				continue
			}
			out[key] = e.expandList(list, root, next, res)
		case schema.KeyAdditionalProperties, schema.KeyAdditionalItems,
			schema.KeyIf, schema.KeyThen, schema.KeyElse, "not", "contains":
			out[key] = e.expandChild(value, root, next, res)
		default:
			out[key] = value
		}
	}
	return out
}

func (e *Engine) expandChild(value any, root map[string]any, seen trail, res *Resolution) any {
	child, ok := schema.Node(value)
	if !ok {
		return value
	}
	return e.expandAllRefs(child, root, seen, res)
}

func (e *Engine) expandList(list []any, root map[string]any, seen trail, res *Resolution) []any {
	out := make([]any, len(list))
	for idx, entry := range list {
		out[idx] = e.expandChild(entry, root, seen, res)
	}
	return out
}
