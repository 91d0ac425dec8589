package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Transformer mutates a normalized root schema before the engine sees it.
// Implementations receive their own copy and may rewrite it freely.
type Transformer interface {
	Transform(ctx context.Context, root *schema.RootSchema) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, root *schema.RootSchema) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, root *schema.RootSchema) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, root)
}

// PresetTransformer overlays declarative keyword patches onto a schema. The
// document (JSON or YAML) looks like:
//
//	schema:
//	  title: Signup
//	fields:
//	  address.city:
//	    default: Paris
//	  tags.items:
//	    enum: [a, b]
//
// Field paths are dotted property names; "items" steps into array items.
// Patched keywords replace the schema's own, and a patch on a $ref node
// becomes a sibling of the ref.
type PresetTransformer struct {
	schema map[string]any
	fields map[string]map[string]any
}

// NewPresetTransformer parses a preset document.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	value, err := schema.Decode(data, "")
	if err != nil {
		return nil, fmt.Errorf("preset transformer: %w", err)
	}
	doc, ok := value.(map[string]any)
	if !ok {
		return nil, errors.New("preset transformer: document must be an object")
	}

	preset := &PresetTransformer{fields: make(map[string]map[string]any)}
	if raw, ok := doc["schema"]; ok {
		node, ok := schema.Node(raw)
		if !ok {
			return nil, errors.New("preset transformer: schema must be an object")
		}
		preset.schema = node
	}
	if raw, ok := doc["fields"]; ok {
		fields, ok := schema.Node(raw)
		if !ok {
			return nil, errors.New("preset transformer: fields must be an object")
		}
		for path, value := range fields {
			patch, ok := schema.Node(value)
			if !ok {
				return nil, fmt.Errorf("preset transformer: field %q patch must be an object", path)
			}
			preset.fields[strings.TrimSpace(path)] = patch
		}
	}
	return preset, nil
}

// NewPresetTransformerFromFS loads a preset document from fsys.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the patches. Unknown field paths are an error.
func (t *PresetTransformer) Transform(ctx context.Context, root *schema.RootSchema) error {
	if root == nil || root.Schema == nil {
		return errors.New("preset transformer: schema is nil")
	}
	for key, value := range t.schema {
		root.Schema[key] = schema.Clone(value)
	}

	for _, path := range schema.SortedKeys(t.fields) {
		if err := ctx.Err(); err != nil {
			return err
		}
		node, err := locate(root.Schema, root.Root, strings.Split(path, "."))
		if err != nil {
			return fmt.Errorf("preset transformer: field %q: %w", path, err)
		}
		for key, value := range t.fields[path] {
			node[key] = schema.Clone(value)
		}
	}
	return nil
}

// locate walks segments below node. $ref nodes that must be descended are
// replaced in place by a copy of their target so patches stay local.
func locate(node, root map[string]any, segments []string) (map[string]any, error) {
	current := node
	for _, segment := range segments {
		if segment == "" {
			return nil, errors.New("empty path segment")
		}
		if err := materialize(current, root); err != nil {
			return nil, err
		}

		var (
			container map[string]any
			key       string
		)
		switch {
		case segment == schema.KeyItems:
			container, key = current, schema.KeyItems
		default:
			props, ok := schema.Child(current, schema.KeyProperties)
			if !ok {
				return nil, fmt.Errorf("%q has no properties", segment)
			}
			container, key = props, segment
		}

		child, ok := schema.Node(container[key])
		if !ok {
			return nil, fmt.Errorf("%q not found", segment)
		}
		child = schema.CloneNode(child)
		container[key] = child
		current = child
	}
	return current, nil
}

func materialize(node, root map[string]any) error {
	ref := schema.String(node, schema.KeyRef)
	if ref == "" {
		return nil
	}
	target, err := engine.FindDefinition(ref, root)
	if err != nil {
		return err
	}
	delete(node, schema.KeyRef)
	for key, value := range schema.CloneNode(target) {
		if _, sibling := node[key]; !sibling {
			node[key] = value
		}
	}
	return nil
}
