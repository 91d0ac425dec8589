package schema

import (
	"context"
	"sort"
)

// NormalizeOptions supplies optional hints to adapters during normalization.
type NormalizeOptions struct {
	// FormID selects one form when a document offers several: an OpenAPI
	// operation id, or an id declared under x-formstate.forms.
	FormID string
	// ContentType picks the request body media type; defaults to
	// application/json.
	ContentType string
}

// RootSchema is a normalized schema document ready for the engine: the form
// schema itself plus every definition its $refs can reach.
type RootSchema struct {
	// Name identifies the form (schema $id, title or OpenAPI operation id).
	Name string
	// Schema is the JSON Schema node for the form.
	Schema map[string]any
	// Root is the document $refs resolve against. For plain JSON Schema it is
	// Schema; for OpenAPI it also carries components.
	Root map[string]any
}

// FormatAdapter turns source documents into root schemas.
type FormatAdapter interface {
	Name() string
	Detect(src Source, raw []byte) bool
	Load(ctx context.Context, src Source) (Document, error)
	Normalize(ctx context.Context, doc Document, opts NormalizeOptions) (RootSchema, error)
	Forms(ctx context.Context, doc Document) ([]FormRef, error)
}

// FormRef provides minimal metadata about an available form.
type FormRef struct {
	ID          string
	Title       string
	Description string
}

// SortFormRefs orders refs by id.
func SortFormRefs(refs []FormRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
}
