package engine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/schema"
)

func TestMergeDefaultsWithFormData(t *testing.T) {
	cases := []struct {
		name       string
		defaults   any
		formData   any
		mergeExtra bool
		want       any
	}{
		{
			name:     "object keys overlay defaults",
			defaults: map[string]any{"a": 1.0, "b": 2.0},
			formData: map[string]any{"b": 3.0, "c": 4.0},
			want:     map[string]any{"a": 1.0, "b": 3.0, "c": 4.0},
		},
		{
			name:     "nested objects merge",
			defaults: map[string]any{"addr": map[string]any{"city": "Paris", "zip": "75001"}},
			formData: map[string]any{"addr": map[string]any{"city": "Lyon"}},
			want:     map[string]any{"addr": map[string]any{"city": "Lyon", "zip": "75001"}},
		},
		{
			name:     "array length follows form data",
			defaults: []any{"a", "b", "c", "d", "e"},
			formData: []any{"x", "y"},
			want:     []any{"x", "y"},
		},
		{
			name:       "extra defaults appended when asked",
			defaults:   []any{"a", "b", "c"},
			formData:   []any{"x"},
			mergeExtra: true,
			want:       []any{"x", "b", "c"},
		},
		{
			name:     "array elements merge by index",
			defaults: []any{map[string]any{"n": "z", "m": 1.0}},
			formData: []any{map[string]any{"n": "q"}, map[string]any{"n": "r"}},
			want:     []any{map[string]any{"n": "q", "m": 1.0}, map[string]any{"n": "r"}},
		},
		{
			name:     "scalar form data wins",
			defaults: "default",
			formData: "typed",
			want:     "typed",
		},
		{
			name:     "type mismatch keeps form data",
			defaults: map[string]any{"a": 1.0},
			formData: "text",
			want:     "text",
		},
		{
			name:     "null form data wins over default",
			defaults: map[string]any{"a": 1.0},
			formData: map[string]any{"a": nil},
			want:     map[string]any{"a": nil},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defaultsBefore := schema.Clone(tc.defaults)
			formBefore := schema.Clone(tc.formData)

			got := engine.MergeDefaultsWithFormData(tc.defaults, tc.formData, tc.mergeExtra)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("merge mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(defaultsBefore, tc.defaults); diff != "" {
				t.Fatalf("defaults mutated (-before +after):\n%s", diff)
			}
			if diff := cmp.Diff(formBefore, tc.formData); diff != "" {
				t.Fatalf("form data mutated (-before +after):\n%s", diff)
			}
		})
	}
}

func TestMergeDefaultsWithFormData_Idempotent(t *testing.T) {
	defaults := map[string]any{
		"name":  "x",
		"tags":  []any{"a", "b"},
		"inner": map[string]any{"list": []any{map[string]any{"k": 1.0}}, "flag": true},
		"none":  nil,
	}
	got := engine.MergeDefaultsWithFormData(defaults, schema.Clone(defaults), false)
	if diff := cmp.Diff(defaults, got); diff != "" {
		t.Fatalf("merge(defaults, defaults) != defaults (-want +got):\n%s", diff)
	}
}

func TestMergeDefaultsWithFormData_LengthTwoAgainstFive(t *testing.T) {
	defaults := []any{1.0, 2.0, 3.0, 4.0, 5.0}
	got, ok := engine.MergeDefaultsWithFormData(defaults, []any{9.0, 8.0}, false).([]any)
	if !ok || len(got) != 2 {
		t.Fatalf("expected two entries, got %#v", got)
	}
}
