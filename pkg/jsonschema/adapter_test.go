package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/schema"
)

type memoryLoader struct {
	docs  map[string]string
	calls map[string]int
}

func (m *memoryLoader) Load(_ context.Context, src schema.Source) (schema.Document, error) {
	if m.calls != nil {
		m.calls[src.Location()]++
	}
	raw, ok := m.docs[src.Location()]
	if !ok {
		return schema.Document{}, fmt.Errorf("missing document %q", src.Location())
	}
	return schema.NewDocument(src, []byte(raw))
}

type failingLoader struct{}

func (failingLoader) Load(context.Context, schema.Source) (schema.Document, error) {
	return schema.Document{}, errors.New("unexpected loader call")
}

func TestAdapterDetect(t *testing.T) {
	adapter := NewAdapter(failingLoader{})
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "json schema", raw: `{"type":"object"}`, want: true},
		{name: "yaml schema", raw: "properties:\n  a:\n    type: string\n", want: true},
		{name: "openapi", raw: `{"openapi":"3.0.3","paths":{}}`, want: false},
		{name: "swagger", raw: "swagger: '2.0'\n", want: false},
		{name: "plain data", raw: `{"name":"x"}`, want: false},
		{name: "array", raw: `[1,2]`, want: false},
		{name: "empty", raw: "  ", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := adapter.Detect(schema.SourceFromFS("doc"), []byte(tc.raw)); got != tc.want {
				t.Fatalf("Detect = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAdapterNormalize_Dialects(t *testing.T) {
	adapter := NewAdapter(failingLoader{})
	accepted := []string{
		`{"type":"object"}`,
		`{"$schema":"http://json-schema.org/draft-07/schema#","type":"object"}`,
		`{"$schema":"https://json-schema.org/draft/2020-12/schema","type":"object"}`,
	}
	for _, raw := range accepted {
		doc := schema.MustNewDocument(schema.SourceFromFS("root.json"), []byte(raw))
		if _, err := adapter.Normalize(context.Background(), doc, schema.NormalizeOptions{}); err != nil {
			t.Fatalf("normalize %s: %v", raw, err)
		}
	}

	doc := schema.MustNewDocument(schema.SourceFromFS("root.json"), []byte(`{"$schema":"https://example.com/custom","type":"object"}`))
	if _, err := adapter.Normalize(context.Background(), doc, schema.NormalizeOptions{}); err == nil {
		t.Fatalf("expected unsupported dialect error")
	}
}

func TestAdapterNormalize_SingleForm(t *testing.T) {
	raw := `{
  "$schema":"https://json-schema.org/draft/2020-12/schema",
  "$id":"com.example.post",
  "$defs": {"name": {"type":"string"}},
  "type":"object",
  "properties": {"title": {"$ref":"#/$defs/name"}}
}`
	adapter := NewAdapter(failingLoader{})
	doc := schema.MustNewDocument(schema.SourceFromFS("root.json"), []byte(raw))

	root, err := adapter.Normalize(context.Background(), doc, schema.NormalizeOptions{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if root.Name != "com.example.post" {
		t.Fatalf("unexpected name %q", root.Name)
	}
	title, _ := schema.Property(root.Schema, "title")
	if schema.String(title, schema.KeyRef) != "#/$defs/name" {
		t.Fatalf("local refs must be left for the engine, got %#v", title)
	}
	if diff := cmp.Diff(root.Schema, root.Root); diff != "" {
		t.Fatalf("root should be the schema itself (-want +got):\n%s", diff)
	}
}

func TestAdapterNormalize_ExtensionForms(t *testing.T) {
	raw := `{
  "x-formstate": {"forms": [
    {"id": "post.create", "title": "Create", "schema": "#/$defs/Post"},
    {"id": "author.edit", "schema": "#/$defs/Author"}
  ]},
  "$defs": {
    "Post": {"type":"object","properties":{"author":{"$ref":"#/$defs/Author"}}},
    "Author": {"type":"object","properties":{"name":{"type":"string"}}}
  }
}`
	adapter := NewAdapter(failingLoader{})
	doc := schema.MustNewDocument(schema.SourceFromFS("blog.json"), []byte(raw))

	refs, err := adapter.Forms(context.Background(), doc)
	if err != nil {
		t.Fatalf("forms: %v", err)
	}
	want := []schema.FormRef{{ID: "author.edit"}, {ID: "post.create", Title: "Create"}}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}

	if _, err := adapter.Normalize(context.Background(), doc, schema.NormalizeOptions{}); err == nil {
		t.Fatalf("expected an error when several forms exist and none is selected")
	}
	root, err := adapter.Normalize(context.Background(), doc, schema.NormalizeOptions{FormID: "post.create"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"$ref": "#/$defs/Post"}, root.Schema); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}
	if _, ok := schema.Child(root.Root, schema.KeyDefs); !ok {
		t.Fatalf("root must carry definitions")
	}
	if _, err := adapter.Normalize(context.Background(), doc, schema.NormalizeOptions{FormID: "missing"}); err == nil {
		t.Fatalf("expected missing form error")
	}
}

func TestDiscoverForms_Fallbacks(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{name: "id", payload: map[string]any{"$id": "com.example.a", "title": "A"}, want: "com.example.a"},
		{name: "title", payload: map[string]any{"title": "Signup"}, want: "Signup"},
		{name: "file name", payload: map[string]any{"type": "object"}, want: "signup"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			refs, err := DiscoverForms(tc.payload, schema.SourceFromFile("forms/signup.yaml"))
			if err != nil {
				t.Fatalf("discover: %v", err)
			}
			if len(refs) != 1 || refs[0].ID != tc.want {
				t.Fatalf("unexpected refs %#v", refs)
			}
		})
	}

	bad := map[string]any{"x-formstate": map[string]any{"forms": []any{map[string]any{"title": "no id"}}}}
	if _, err := DiscoverForms(bad, nil); err == nil || !strings.Contains(err.Error(), "id is required") {
		t.Fatalf("expected id error, got %v", err)
	}
}
