// Package testsupport holds fixture helpers shared by package tests.
package testsupport

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// LoadDocument reads a fixture into a schema.Document with a file source.
func LoadDocument(t *testing.T, path string) schema.Document {
	t.Helper()

	doc, err := LoadDocumentFromPath(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// LoadDocumentFromPath returns a Document without requiring testing.T.
func LoadDocumentFromPath(path string) (schema.Document, error) {
	if path == "" {
		return schema.Document{}, errors.New("testsupport: document path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	doc, err := schema.NewDocument(schema.SourceFromFile(path), data)
	if err != nil {
		return schema.Document{}, fmt.Errorf("testsupport: new document: %w", err)
	}
	return doc, nil
}

// Case is one entry of a table fixture: a schema, optional uiSchema and form
// data, and the expected form data.
type Case struct {
	Name     string
	Schema   map[string]any
	UISchema map[string]any
	FormData any
	Want     any
}

// MustLoadCases reads a JSON or YAML list of cases. Numbers decode as
// float64 so fixtures compare equal to engine output.
func MustLoadCases(t *testing.T, path string) []Case {
	t.Helper()

	doc := LoadDocument(t, path)
	value, err := schema.Decode(doc.Raw(), doc.Encoding())
	if err != nil {
		t.Fatalf("decode cases: %v", err)
	}
	list, ok := value.([]any)
	if !ok {
		t.Fatalf("cases fixture %s must be a list", path)
	}

	cases := make([]Case, 0, len(list))
	for idx, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			t.Fatalf("case %d in %s is not an object", idx, path)
		}
		c := Case{
			Name:     schema.String(entry, "name"),
			FormData: entry["formData"],
			Want:     entry["want"],
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("case_%d", idx)
		}
		c.Schema, _ = schema.Child(entry, "schema")
		c.UISchema, _ = schema.Child(entry, "uiSchema")
		if c.Schema == nil {
			t.Fatalf("case %q in %s has no schema", c.Name, path)
		}
		cases = append(cases, c)
	}
	return cases
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}
