package engine_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/engine"
)

func itemsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}

func TestIDSchema_ArrayElementIDs(t *testing.T) {
	node := itemsSchema()
	ids := engine.New().IDSchema(node, node, map[string]any{"items": []any{"a", "b"}})

	if ids.ID != "root" {
		t.Fatalf("root id = %q", ids.ID)
	}
	second, ok := ids.Lookup("items", "1")
	if !ok {
		t.Fatalf("missing id for second element: %#v", ids)
	}
	if second.ID != "root_items_1" {
		t.Fatalf("second element id = %q, want root_items_1", second.ID)
	}
	if second.Name() != "items.1" {
		t.Fatalf("second element name = %q", second.Name())
	}
}

func TestIDSchema_ItemIDWithoutData(t *testing.T) {
	node := itemsSchema()
	ids := engine.New().IDSchema(node, node, nil)
	list, ok := ids.Lookup("items")
	if !ok {
		t.Fatalf("missing items id")
	}
	if len(list.Items) != 0 {
		t.Fatalf("no element ids expected without data, got %d", len(list.Items))
	}
	if got := list.ItemID(1); got != "root_items_1" {
		t.Fatalf("ItemID(1) = %q", got)
	}
}

func TestIDSchema_PrefixAndSeparator(t *testing.T) {
	node := itemsSchema()
	e := engine.New(engine.WithIDPrefix("form"), engine.WithIDSeparator("."))
	ids := e.IDSchema(node, node, map[string]any{"items": []any{"a"}})
	first, _ := ids.Lookup("items", "0")
	if first == nil || first.ID != "form.items.0" {
		t.Fatalf("unexpected id %#v", first)
	}
}

func TestIDSchema_DistinctLocationsNeverCollide(t *testing.T) {
	node := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a_b": map[string]any{"type": "string"},
			"a": map[string]any{
				"type":       "object",
				"properties": map[string]any{"b": map[string]any{"type": "string"}},
			},
			"list": map[string]any{
				"type":  "array",
				"items": []any{map[string]any{"type": "string"}, map[string]any{"type": "object", "properties": map[string]any{"0": map[string]any{}}}},
			},
		},
	}
	result := engine.New().Resolve(engine.Input{Schema: node})

	seen := map[string][]string{}
	result.Root.Walk(func(field *engine.Field) bool {
		if prev, dup := seen[field.ID]; dup {
			t.Fatalf("id %q shared by %v and %v", field.ID, prev, field.Path)
		}
		seen[field.ID] = field.Path
		return true
	})

	underscored, _ := result.IDSchema.Lookup("a_b")
	nested, _ := result.IDSchema.Lookup("a", "b")
	if underscored.ID == nested.ID {
		t.Fatalf("ids collide: %q", nested.ID)
	}
	if nested.ID != "root_a_b" {
		t.Fatalf("plain segments should not be escaped, got %q", nested.ID)
	}
}

func TestIDSchema_CustomSeparatorsNeverCollide(t *testing.T) {
	str := map[string]any{"type": "string"}
	obj := func(props map[string]any) map[string]any {
		return map[string]any{"type": "object", "properties": props}
	}
	node := obj(map[string]any{
		"a_":   obj(map[string]any{"b": str}),
		"a%":   obj(map[string]any{"25b": str, "b": str}),
		"a%b":  str,
		"a__b": str,
		"a-b":  str,
		"a::b": str,
		"a": obj(map[string]any{
			"_b":  str,
			"25b": str,
			"-b":  str,
			":b":  str,
			"b":   str,
			"_":   obj(map[string]any{"b": str}),
		}),
	})

	cases := []struct {
		separator string
		nested    string
	}{
		{separator: "_", nested: "root_a_b"},
		{separator: "__", nested: "root__a__b"},
		{separator: "-", nested: "root-a-b"},
		{separator: "::", nested: "root::a::b"},
		{separator: "b", nested: "rootbab%62"},
		{separator: "%", nested: "root_a_b"},
		{separator: "%2", nested: "root_a_b"},
		{separator: "-1", nested: "root_a_b"},
	}
	for _, tc := range cases {
		t.Run(tc.separator, func(t *testing.T) {
			result := engine.New(engine.WithIDSeparator(tc.separator)).Resolve(engine.Input{Schema: node})

			seen := map[string][]string{}
			result.Root.Walk(func(field *engine.Field) bool {
				if prev, dup := seen[field.ID]; dup {
					t.Fatalf("id %q shared by %v and %v", field.ID, prev, field.Path)
				}
				seen[field.ID] = field.Path
				return true
			})
			if len(seen) != 18 {
				t.Fatalf("expected 18 fields, got %d", len(seen))
			}
			nested, _ := result.IDSchema.Lookup("a", "b")
			if nested.ID != tc.nested {
				t.Fatalf("nested id = %q, want %q", nested.ID, tc.nested)
			}
		})
	}
}

func TestIDSchema_MarshalJSON(t *testing.T) {
	node := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"tags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
	ids := engine.New().IDSchema(node, node, map[string]any{"tags": []any{"x"}})
	raw, err := json.Marshal(ids)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"$id":   "root",
		"$name": "",
		"name":  map[string]any{"$id": "root_name", "$name": "name"},
		"tags": map[string]any{
			"$id":   "root_tags",
			"$name": "tags",
			"0":     map[string]any{"$id": "root_tags_0", "$name": "tags.0"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}
}

func TestIDSchema_RecursiveSchemaFollowsData(t *testing.T) {
	root := map[string]any{
		"definitions": map[string]any{
			"node": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"children": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/definitions/node"}},
				},
			},
		},
		"$ref": "#/definitions/node",
	}
	data := map[string]any{"children": []any{
		map[string]any{"children": []any{map[string]any{}}},
	}}
	ids := engine.New().IDSchema(root, root, data)
	deepest, ok := ids.Lookup("children", "0", "children", "0", "children")
	if !ok {
		t.Fatalf("expected ids along the data path")
	}
	if deepest.ID != "root_children_0_children_0_children" {
		t.Fatalf("unexpected id %q", deepest.ID)
	}
	if len(deepest.Items) != 0 {
		t.Fatalf("no element ids expected past the data")
	}
}
