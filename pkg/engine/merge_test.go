package engine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/schema"
)

func TestMergeSchemas_RequiredUnion(t *testing.T) {
	a := map[string]any{"type": "object", "required": []any{"a", "b"}}
	b := map[string]any{"type": "object", "required": []any{"b", "c"}}

	got := engine.MergeSchemas(a, b)
	if diff := cmp.Diff([]any{"a", "b", "c"}, got["required"]); diff != "" {
		t.Fatalf("required union mismatch (-want +got):\n%s", diff)
	}

	reversed := engine.MergeSchemas(b, a)
	if diff := cmp.Diff([]any{"b", "c", "a"}, reversed["required"]); diff != "" {
		t.Fatalf("reversed union mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeSchemas_DisjointRequired(t *testing.T) {
	a := map[string]any{"properties": map[string]any{"x": map[string]any{}}, "required": []any{"x"}}
	b := map[string]any{"required": []any{"y", "x", "y"}}

	got := engine.MergeSchemas(a, b)
	if diff := cmp.Diff([]any{"x", "y"}, got["required"]); diff != "" {
		t.Fatalf("union mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeSchemas_RightWinsOutsideObjects(t *testing.T) {
	a := map[string]any{"required": []any{"x"}, "title": "A", "enum": []any{1.0, 2.0}}
	b := map[string]any{"required": []any{"y"}, "title": "B", "enum": []any{3.0}}

	got := engine.MergeSchemas(a, b)
	want := map[string]any{"required": []any{"y"}, "title": "B", "enum": []any{3.0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeSchemas_RecursesIntoObjects(t *testing.T) {
	a := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "title": "A"},
			"age":  map[string]any{"type": "integer"},
		},
	}
	b := map[string]any{
		"properties": map[string]any{
			"name":  map[string]any{"title": "B"},
			"email": map[string]any{"type": "string"},
		},
	}
	before := schema.CloneNode(a)

	got := engine.MergeSchemas(a, b)
	want := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string", "title": "B"},
			"age":   map[string]any{"type": "integer"},
			"email": map[string]any{"type": "string"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, a); diff != "" {
		t.Fatalf("left input mutated (-before +after):\n%s", diff)
	}
}

func TestMergeObjects(t *testing.T) {
	a := map[string]any{"a": 1.0, "nested": map[string]any{"x": 1.0}, "list": []any{1.0}}
	b := map[string]any{"b": 2.0, "nested": map[string]any{"y": 2.0}, "list": []any{2.0}}

	replaced := engine.MergeObjects(a, b, false)
	want := map[string]any{
		"a": 1.0, "b": 2.0,
		"nested": map[string]any{"x": 1.0, "y": 2.0},
		"list":   []any{2.0},
	}
	if diff := cmp.Diff(want, replaced); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}

	concatenated := engine.MergeObjects(a, b, true)
	if diff := cmp.Diff([]any{1.0, 2.0}, concatenated["list"]); diff != "" {
		t.Fatalf("concat mismatch (-want +got):\n%s", diff)
	}
}
