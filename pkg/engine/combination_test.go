package engine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/schema"
)

type validatorFunc func(node map[string]any, data any, root map[string]any) bool

func (f validatorFunc) IsValid(node map[string]any, data any, root map[string]any) bool {
	return f(node, data, root)
}

func kvOptions() []any {
	return []any{
		map[string]any{"properties": map[string]any{
			"k": map[string]any{"const": 1.0},
			"v": map[string]any{"type": "string"},
		}},
		map[string]any{"properties": map[string]any{
			"k": map[string]any{"const": 2.0},
			"v": map[string]any{"type": "number"},
		}},
	}
}

func TestRetrieve_OneOfSelectsMatchingBranch(t *testing.T) {
	node := map[string]any{"oneOf": kvOptions()}
	formData := map[string]any{"k": 2.0, "v": 10.0}

	res := engine.New().Retrieve(node, node, formData)
	if res.Option != 1 {
		t.Fatalf("expected option 1, got %d", res.Option)
	}
	if schema.Has(res.Schema, schema.KeyOneOf) {
		t.Fatalf("oneOf should be consumed: %#v", res.Schema)
	}
	v, _ := schema.Property(res.Schema, "v")
	if schema.TypeOf(v) != schema.TypeNumber {
		t.Fatalf("expected number branch to be merged, got %#v", res.Schema)
	}
}

func TestFirstMatchingOption(t *testing.T) {
	e := engine.New()
	options := kvOptions()
	cases := []struct {
		name     string
		formData any
		want     int
	}{
		{name: "absent data", formData: nil, want: 0},
		{name: "first branch", formData: map[string]any{"k": 1.0, "v": "x"}, want: 0},
		{name: "second branch", formData: map[string]any{"k": 2.0, "v": 10.0}, want: 1},
		{name: "go int data", formData: map[string]any{"k": 2}, want: 1},
		{name: "no match falls back", formData: map[string]any{"k": 9.0}, want: 0},
		{name: "partial data", formData: map[string]any{"v": 3.0}, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.FirstMatchingOption(tc.formData, options, nil, ""); got != tc.want {
				t.Fatalf("FirstMatchingOption = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestFirstMatchingOption_TiesGoToFirst(t *testing.T) {
	e := engine.New(engine.WithValidator(validatorFunc(func(map[string]any, any, map[string]any) bool {
		return true
	})))
	if got := e.FirstMatchingOption(map[string]any{"k": 1.0}, kvOptions(), nil, ""); got != 0 {
		t.Fatalf("expected first listed option, got %d", got)
	}
}

func TestFirstMatchingOption_Discriminator(t *testing.T) {
	never := validatorFunc(func(map[string]any, any, map[string]any) bool { return false })
	e := engine.New(engine.WithValidator(never))
	root := map[string]any{
		"definitions": map[string]any{
			"card": map[string]any{"properties": map[string]any{"kind": map[string]any{"enum": []any{"visa", "amex"}}}},
		},
	}
	options := []any{
		map[string]any{"properties": map[string]any{"kind": map[string]any{"const": "cash"}}},
		map[string]any{"$ref": "#/definitions/card"},
	}

	if got := e.FirstMatchingOption(map[string]any{"kind": "amex"}, options, root, "kind"); got != 1 {
		t.Fatalf("expected discriminator to select option 1, got %d", got)
	}
	if got := e.FirstMatchingOption(map[string]any{"kind": "cheque"}, options, root, "kind"); got != 0 {
		t.Fatalf("expected fallback to option 0, got %d", got)
	}
}

func TestRetrieve_AllOfMerges(t *testing.T) {
	node := map[string]any{
		"type": "object",
		"allOf": []any{
			map[string]any{"properties": map[string]any{"a": map[string]any{"type": "string"}}, "required": []any{"a"}},
			map[string]any{"$ref": "#/definitions/b"},
		},
		"definitions": map[string]any{
			"b": map[string]any{"properties": map[string]any{"b": map[string]any{"type": "number"}}, "required": []any{"b"}},
		},
	}
	res := engine.New().Retrieve(node, node, nil)
	if res.Outcome != engine.Resolved {
		t.Fatalf("unexpected outcome %s: %s", res.Outcome, res.Reason)
	}
	if schema.Has(res.Schema, schema.KeyAllOf) {
		t.Fatalf("allOf should be consumed")
	}
	if diff := cmp.Diff([]string{"a", "b"}, schema.Required(res.Schema)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, schema.SortedKeys(schema.Properties(res.Schema))); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieve_PropertyDependencies(t *testing.T) {
	node := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"card":    map[string]any{"type": "string"},
			"billing": map[string]any{"type": "string"},
		},
		"dependencies": map[string]any{"card": []any{"billing"}},
	}
	e := engine.New()

	with := e.Retrieve(node, node, map[string]any{"card": "4242"})
	if diff := cmp.Diff([]string{"billing"}, schema.Required(with.Schema)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	without := e.Retrieve(node, node, map[string]any{})
	if schema.Has(without.Schema, schema.KeyRequired) {
		t.Fatalf("dependency applied without trigger key: %#v", without.Schema)
	}
	if schema.Has(without.Schema, schema.KeyDependencies) {
		t.Fatalf("dependencies should be consumed")
	}
}

func TestRetrieve_SchemaDependencyWithOneOf(t *testing.T) {
	node := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pet": map[string]any{"enum": []any{"cat", "dog"}},
		},
		"dependencies": map[string]any{
			"pet": map[string]any{
				"oneOf": []any{
					map[string]any{"properties": map[string]any{
						"pet":   map[string]any{"const": "cat"},
						"lives": map[string]any{"type": "integer"},
					}},
					map[string]any{"properties": map[string]any{
						"pet":  map[string]any{"const": "dog"},
						"bark": map[string]any{"type": "boolean"},
					}, "required": []any{"bark"}},
				},
			},
		},
	}
	res := engine.New().Retrieve(node, node, map[string]any{"pet": "dog"})
	props := schema.Properties(res.Schema)
	if diff := cmp.Diff([]string{"bark", "pet"}, schema.SortedKeys(props)); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}
	pet, _ := schema.Property(res.Schema, "pet")
	if !schema.Has(pet, schema.KeyEnum) || schema.Has(pet, schema.KeyConst) {
		t.Fatalf("condition property must keep its declared schema, got %#v", pet)
	}
	if diff := cmp.Diff([]string{"bark"}, schema.Required(res.Schema)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieve_SchemaDependencyIgnoredWithoutSingleMatch(t *testing.T) {
	node := map[string]any{
		"type":       "object",
		"properties": map[string]any{"pet": map[string]any{"type": "string"}},
		"dependencies": map[string]any{
			"pet": map[string]any{"oneOf": []any{
				map[string]any{"properties": map[string]any{"pet": map[string]any{"type": "string"}, "a": map[string]any{}}},
				map[string]any{"properties": map[string]any{"pet": map[string]any{"type": "string"}, "b": map[string]any{}}},
			}},
		},
	}
	res := engine.New().Retrieve(node, node, map[string]any{"pet": "any"})
	if diff := cmp.Diff([]string{"pet"}, schema.SortedKeys(schema.Properties(res.Schema))); diff != "" {
		t.Fatalf("ambiguous branches must be ignored (-want +got):\n%s", diff)
	}
}

func TestRetrieve_IfThenElse(t *testing.T) {
	node := map[string]any{
		"type":       "object",
		"properties": map[string]any{"country": map[string]any{"type": "string"}},
		"if":         map[string]any{"properties": map[string]any{"country": map[string]any{"const": "US"}}},
		"then":       map[string]any{"properties": map[string]any{"zip": map[string]any{"type": "string"}}},
		"else":       map[string]any{"properties": map[string]any{"postal": map[string]any{"type": "string"}}},
	}
	e := engine.New()

	us := e.Retrieve(node, node, map[string]any{"country": "US"})
	if _, ok := schema.Property(us.Schema, "zip"); !ok {
		t.Fatalf("expected then branch: %#v", us.Schema)
	}
	ca := e.Retrieve(node, node, map[string]any{"country": "CA"})
	if _, ok := schema.Property(ca.Schema, "postal"); !ok {
		t.Fatalf("expected else branch: %#v", ca.Schema)
	}
	for _, key := range []string{"if", "then", "else"} {
		if schema.Has(ca.Schema, key) {
			t.Fatalf("%s should be consumed", key)
		}
	}
}

func TestRetrieve_StubsAdditionalProperties(t *testing.T) {
	node := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"a": map[string]any{"type": "string"}},
		"additionalProperties": map[string]any{"type": "number"},
	}
	res := engine.New().Retrieve(node, node, map[string]any{"a": "x", "extra": 3.0})
	extra, ok := schema.Property(res.Schema, "extra")
	if !ok {
		t.Fatalf("expected stub for extra: %#v", res.Schema)
	}
	want := map[string]any{"type": "number", schema.AdditionalPropertyFlag: true}
	if diff := cmp.Diff(want, extra); diff != "" {
		t.Fatalf("stub mismatch (-want +got):\n%s", diff)
	}
	if _, ok := schema.Property(node, "extra"); ok {
		t.Fatalf("input schema mutated")
	}

	open := map[string]any{"type": "object", "additionalProperties": true}
	guessed := engine.New().Retrieve(open, open, map[string]any{"flag": true})
	flag, _ := schema.Property(guessed.Schema, "flag")
	if schema.String(flag, "type") != "boolean" {
		t.Fatalf("expected guessed boolean type, got %#v", flag)
	}
}
