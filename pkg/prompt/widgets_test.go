package prompt

import (
	"testing"

	"github.com/goliatone/go-formstate/pkg/engine"
)

func TestWidgetRegistry_Resolve(t *testing.T) {
	root := map[string]any{
		"type": "object",
		"definitions": map[string]any{
			"color": map[string]any{"enum": []any{"red", "blue"}},
		},
		"properties": map[string]any{
			"agree":   map[string]any{"type": "boolean"},
			"colors":  map[string]any{"type": "array", "uniqueItems": true, "items": map[string]any{"$ref": "#/definitions/color"}},
			"tags":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"role":    map[string]any{"type": "string", "enum": []any{"a", "b"}},
			"secret":  map[string]any{"type": "string", "format": "password"},
			"config":  map[string]any{"type": "string", "format": "yaml"},
			"name":    map[string]any{"type": "string"},
			"bio":     map[string]any{"type": "string"},
			"choice":  map[string]any{"type": "string", "enum": []any{"x"}},
			"special": map[string]any{"type": "string"},
		},
	}
	ui := map[string]any{
		"bio":     map[string]any{"ui:widget": "textarea"},
		"choice":  map[string]any{"ui:widget": "radio"},
		"special": map[string]any{"ui:widget": "fancy-color-wheel"},
	}
	tree := engine.New().Resolve(engine.Input{Schema: root, UISchema: ui}).Root

	want := map[string]string{
		"agree":   WidgetConfirm,
		"colors":  WidgetMultiSelect,
		"tags":    WidgetInput,
		"role":    WidgetSelect,
		"secret":  WidgetPassword,
		"config":  WidgetTextArea,
		"name":    WidgetInput,
		"bio":     WidgetTextArea,
		"choice":  WidgetSelect,
		"special": WidgetInput,
	}
	reg := NewWidgetRegistry()
	for _, field := range tree.Properties {
		name := field.Name()
		if got := reg.Resolve(field, root); got != want[name] {
			t.Fatalf("%s: got widget %q, want %q", name, got, want[name])
		}
	}
}

func TestWidgetRegistry_CustomMatcher(t *testing.T) {
	reg := NewWidgetRegistry()
	reg.Register(WidgetTextArea, 100, func(field *engine.Field, _ map[string]any) bool {
		return field.Name() == "notes"
	})
	reg.Register("", 200, func(*engine.Field, map[string]any) bool { return true })
	reg.Register("ignored", 300, nil)

	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"notes": map[string]any{"type": "boolean"}},
	}
	tree := engine.New().Resolve(engine.Input{Schema: schema}).Root
	if got := reg.Resolve(tree.Properties[0], schema); got != WidgetTextArea {
		t.Fatalf("expected custom matcher to win, got %q", got)
	}

	var empty *WidgetRegistry
	if got := empty.Resolve(tree.Properties[0], schema); got != WidgetInput {
		t.Fatalf("nil registry should fall back to input, got %q", got)
	}
}
