package orchestrator_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	internalLoader "github.com/goliatone/go-formstate/internal/loader"
	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/jsonschema"
	"github.com/goliatone/go-formstate/pkg/orchestrator"
	"github.com/goliatone/go-formstate/pkg/schema"
)

const signupSchema = `{
  "$id": "signup",
  "type": "object",
  "definitions": {
    "address": {
      "type": "object",
      "properties": {"city": {"type": "string"}, "zip": {"type": "string"}}
    }
  },
  "properties": {
    "name": {"type": "string", "default": "anon"},
    "address": {"$ref": "#/definitions/address"},
    "age": {"type": "integer"}
  }
}`

func files() fstest.MapFS {
	return fstest.MapFS{
		"schemas/signup.json": {Data: []byte(signupSchema)},
		"data/signup.yaml":    {Data: []byte("age: 30\n")},
		"ui/signup.json":      {Data: []byte(`{"ui:order": ["age", "*"]}`)},
		"schemas/list.json":   {Data: []byte(`[1, 2, 3]`)},
	}
}

func newOrchestrator(t *testing.T, options ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	fsys := files()
	loader := internalLoader.New(schema.NewLoaderOptions(schema.WithFileSystem(fsys)))
	base := []orchestrator.Option{
		orchestrator.WithLoader(loader),
		orchestrator.WithAdapters(jsonschema.NewAdapter(loader)),
	}
	return orchestrator.New(append(base, options...)...)
}

func fieldNames(fields []*engine.Field) []string {
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name())
	}
	return names
}

func TestOrchestrator_Resolve(t *testing.T) {
	uiFS, _ := files().Sub("ui")
	orch := newOrchestrator(t, orchestrator.WithUISchemaFS(uiFS))

	result, err := orch.Resolve(context.Background(), orchestrator.Request{
		Source:         schema.SourceFromFS("schemas/signup.json"),
		FormDataSource: schema.SourceFromFS("data/signup.yaml"),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Name != "signup" {
		t.Fatalf("unexpected form name %q", result.Name)
	}
	if diff := cmp.Diff(map[string]any{"name": "anon", "age": 30.0}, result.State.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"age", "address", "name"}, fieldNames(result.State.Root.Properties)); diff != "" {
		t.Fatalf("ui:order from the store not applied (-want +got):\n%s", diff)
	}
	if result.State.Outcome != engine.Resolved {
		t.Fatalf("unexpected outcome %s", result.State.Outcome)
	}
}

func TestOrchestrator_InlineDocumentAndExplicitInputs(t *testing.T) {
	orch := newOrchestrator(t)
	doc := schema.MustNewDocument(schema.SourceInline("request"), []byte(signupSchema))

	result, err := orch.Resolve(context.Background(), orchestrator.Request{
		Document: &doc,
		FormData: map[string]any{"name": "kim"},
		UISchema: map[string]any{"ui:order": []any{"name", "*"}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "kim"}, result.State.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	if got := fieldNames(result.State.Root.Properties)[0]; got != "name" {
		t.Fatalf("expected name first, got %q", got)
	}
}

func TestOrchestrator_AdapterSelection(t *testing.T) {
	orch := newOrchestrator(t)
	ctx := context.Background()

	_, err := orch.Normalize(ctx, orchestrator.Request{Source: schema.SourceFromFS("schemas/list.json")})
	if err == nil || !strings.Contains(err.Error(), "unable to detect") {
		t.Fatalf("expected detection error, got %v", err)
	}

	_, err = orch.Normalize(ctx, orchestrator.Request{Source: schema.SourceFromFS("schemas/signup.json"), Format: "openapi"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected unknown adapter error, got %v", err)
	}

	_, err = orch.Normalize(ctx, orchestrator.Request{Source: schema.SourceFromFS("schemas/missing.json")})
	if err == nil || !strings.Contains(err.Error(), "load document") {
		t.Fatalf("expected load error, got %v", err)
	}

	refs, err := orch.Forms(ctx, orchestrator.Request{Source: schema.SourceFromFS("schemas/signup.json")})
	if err != nil {
		t.Fatalf("forms: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "signup" {
		t.Fatalf("unexpected forms %#v", refs)
	}
}

func TestOrchestrator_DuplicateAdapters(t *testing.T) {
	loader := internalLoader.New(schema.LoaderOptions{})
	orch := orchestrator.New(orchestrator.WithAdapters(jsonschema.NewAdapter(loader), jsonschema.NewAdapter(loader)))
	if _, err := orch.Normalize(context.Background(), orchestrator.Request{Source: schema.SourceFromFS("x.json")}); err == nil {
		t.Fatalf("expected duplicate adapter error")
	}
}

func TestOrchestrator_PresetTransformer(t *testing.T) {
	preset, err := orchestrator.NewPresetTransformer([]byte("schema:\n  title: Sign up\nfields:\n  address.city:\n    default: Paris\n"))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	orch := newOrchestrator(t, orchestrator.WithSchemaTransformer(preset))

	result, err := orch.Resolve(context.Background(), orchestrator.Request{Source: schema.SourceFromFS("schemas/signup.json")})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := map[string]any{"name": "anon", "address": map[string]any{"city": "Paris"}}
	if diff := cmp.Diff(want, result.State.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	if schema.String(result.State.Schema, "title") != "Sign up" {
		t.Fatalf("schema patch missing: %#v", result.State.Schema)
	}
	defs, _ := schema.Child(result.RootSchema, "definitions")
	address, _ := schema.Child(defs, "address")
	city, _ := schema.Property(address, "city")
	if schema.Has(city, "default") {
		t.Fatalf("shared definition must not be patched")
	}

	missing, _ := orchestrator.NewPresetTransformer([]byte(`{"fields":{"nope.deep":{"default":1}}}`))
	broken := newOrchestrator(t, orchestrator.WithSchemaTransformer(missing))
	if _, err := broken.Resolve(context.Background(), orchestrator.Request{Source: schema.SourceFromFS("schemas/signup.json")}); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestOrchestrator_Check(t *testing.T) {
	orch := newOrchestrator(t)
	ctx := context.Background()

	ok, err := orch.Check(ctx, orchestrator.Request{Source: schema.SourceFromFS("schemas/signup.json")})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok.Valid {
		t.Fatalf("expected valid schema, got %#v", ok.Issues)
	}

	bad := schema.MustNewDocument(schema.SourceInline("bad"), []byte(`{"type":"object","properties":{"n":{"type":5}}}`))
	result, err := orch.Check(ctx, orchestrator.Request{Document: &bad})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Valid || len(result.Issues) == 0 {
		t.Fatalf("expected issues, got %#v", result)
	}
}

func TestAdapterRegistry(t *testing.T) {
	registry := orchestrator.NewAdapterRegistry(jsonschema.NewAdapter(nil))
	if err := registry.Register(jsonschema.NewAdapter(nil)); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := registry.Get(" JSONSCHEMA "); err != nil {
		t.Fatalf("lookup should be case-insensitive: %v", err)
	}
	if diff := cmp.Diff([]string{"jsonschema"}, registry.List()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if got := registry.Detect(nil, []byte(`{"type":"string"}`)); len(got) != 1 {
		t.Fatalf("expected one match, got %d", len(got))
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceInline("owner"), []byte(`{
  "$id": "owner",
  "type": "object",
  "properties": {
    "name": {"type": "string", "default": "anon"},
    "pets": {"type": "array", "items": {"type": "string"}}
  }
}`))
	result, err := newOrchestrator(t).Resolve(context.Background(), orchestrator.Request{
		Document: &doc,
		FormData: map[string]any{"pets": []any{"dog"}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}

	if payload["name"] != "owner" || payload["outcome"] != "resolved" {
		t.Fatalf("unexpected envelope %v", payload)
	}
	if diff := cmp.Diff(map[string]any{"name": "anon", "pets": []any{"dog"}}, payload["formData"]); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	if _, ok := payload["schema"].(map[string]any); !ok {
		t.Fatalf("missing schema in %v", payload)
	}
	ids, _ := payload["idSchema"].(map[string]any)
	pets, _ := ids["pets"].(map[string]any)
	if first, _ := pets["0"].(map[string]any); first["$id"] != "root_pets_0" {
		t.Fatalf("unexpected id schema %v", ids)
	}

	fields, _ := payload["fields"].(map[string]any)
	props, _ := fields["properties"].([]any)
	var petsField map[string]any
	for _, prop := range props {
		if field, _ := prop.(map[string]any); field["id"] == "root_pets" {
			petsField = field
		}
	}
	items, _ := petsField["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one pets item field, got %v", petsField)
	}
	if item, _ := items[0].(map[string]any); item["id"] != "root_pets_0" || item["value"] != "dog" {
		t.Fatalf("unexpected item field %v", item)
	}

	if _, err := json.MarshalIndent(result, "", "  "); err != nil {
		t.Fatalf("marshal indent: %v", err)
	}
}
