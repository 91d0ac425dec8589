package jsonschema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
)

const DefaultAdapterName = "jsonschema"

// Adapter wraps JSON Schema parsing and bundling behind the schema adapter
// interface.
type Adapter struct {
	loader  schema.Loader
	bundler *Bundler
}

var _ schema.FormatAdapter = (*Adapter)(nil)

// AdapterOption configures a JSON Schema adapter.
type AdapterOption func(*adapterOptions)

type adapterOptions struct {
	bundler      *Bundler
	bundleConfig BundleOptions
}

// WithBundler injects a custom bundler.
func WithBundler(bundler *Bundler) AdapterOption {
	return func(opts *adapterOptions) {
		opts.bundler = bundler
	}
}

// WithBundleOptions supplies options to the default bundler.
func WithBundleOptions(options BundleOptions) AdapterOption {
	return func(opts *adapterOptions) {
		opts.bundleConfig = options
	}
}

// NewAdapter constructs a JSON Schema adapter with the supplied loader.
func NewAdapter(loader schema.Loader, options ...AdapterOption) *Adapter {
	opts := adapterOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	bundler := opts.bundler
	if bundler == nil {
		bundler = NewBundler(loader, opts.bundleConfig)
	}
	return &Adapter{loader: loader, bundler: bundler}
}

// Name returns the adapter registry identifier.
func (a *Adapter) Name() string {
	return DefaultAdapterName
}

// Detect reports whether the raw payload appears to be JSON Schema.
func (a *Adapter) Detect(_ schema.Source, raw []byte) bool {
	return detectJSONSchema(raw)
}

// Load fetches the raw JSON Schema document.
func (a *Adapter) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if a == nil || a.loader == nil {
		return schema.Document{}, errors.New("jsonschema adapter: loader is nil")
	}
	return a.loader.Load(ctx, src)
}

// Normalize bundles external refs and returns the selected form's root
// schema. The engine resolves local refs itself, so they stay in place.
func (a *Adapter) Normalize(ctx context.Context, doc schema.Document, opts schema.NormalizeOptions) (schema.RootSchema, error) {
	if a == nil || a.bundler == nil {
		return schema.RootSchema{}, errors.New("jsonschema adapter: bundler is nil")
	}
	payload, err := parseJSONSchema(doc)
	if err != nil {
		return schema.RootSchema{}, err
	}
	if err := validateDialect(payload); err != nil {
		return schema.RootSchema{}, err
	}

	forms, err := discoverForms(payload, doc.Source())
	if err != nil {
		return schema.RootSchema{}, err
	}
	selected, err := selectForm(forms, strings.TrimSpace(opts.FormID))
	if err != nil {
		return schema.RootSchema{}, err
	}

	bundled, err := a.bundler.Bundle(ctx, doc, payload)
	if err != nil {
		return schema.RootSchema{}, err
	}

	node := bundled
	if selected.Pointer != "" && selected.Pointer != "#" {
		node = map[string]any{schema.KeyRef: selected.Pointer}
	}
	return schema.RootSchema{Name: selected.ID, Schema: node, Root: bundled}, nil
}

// Forms lists the forms a document offers.
func (a *Adapter) Forms(_ context.Context, doc schema.Document) ([]schema.FormRef, error) {
	payload, err := parseJSONSchema(doc)
	if err != nil {
		return nil, err
	}
	refs, err := DiscoverForms(payload, doc.Source())
	if err != nil {
		return nil, err
	}
	schema.SortFormRefs(refs)
	return refs, nil
}

func parseJSONSchema(doc schema.Document) (map[string]any, error) {
	if doc.IsZero() {
		return nil, errors.New("jsonschema: empty document")
	}
	payload, err := schema.DecodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: parse schema: %w", err)
	}
	return payload, nil
}

// validateDialect accepts documents without $schema and the drafts whose
// keywords the engine understands.
func validateDialect(payload map[string]any) error {
	value := strings.TrimSpace(schema.String(payload, "$schema"))
	if value == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(value, "#")
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "https://"), "http://")
	switch trimmed {
	case "json-schema.org/draft-04/schema",
		"json-schema.org/draft-06/schema",
		"json-schema.org/draft-07/schema",
		"json-schema.org/draft/2019-09/schema",
		"json-schema.org/draft/2020-12/schema":
		return nil
	default:
		return fmt.Errorf("jsonschema: unsupported $schema %q", value)
	}
}

var detectKeys = []string{
	"$schema", "$id", "$defs", "definitions", "$ref",
	schema.KeyProperties, schema.KeyType, schema.KeyItems,
	schema.KeyOneOf, schema.KeyAnyOf, schema.KeyAllOf,
}

func detectJSONSchema(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	enc := schema.EncodingYAML
	if trimmed[0] == '{' {
		enc = schema.EncodingJSON
	}
	value, err := schema.Decode(trimmed, enc)
	if err != nil {
		return false
	}
	payload, ok := value.(map[string]any)
	if !ok || payload == nil {
		return false
	}
	if _, ok := payload["openapi"]; ok {
		return false
	}
	if _, ok := payload["swagger"]; ok {
		return false
	}
	for _, key := range detectKeys {
		if _, ok := payload[key]; ok {
			return true
		}
	}
	return false
}
