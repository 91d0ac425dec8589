// Package formstate resolves JSON Schema and OpenAPI request bodies into
// concrete form state: defaults merged into form data, the id tree and the
// ordered field tree a renderer walks.
package formstate

import (
	"context"

	internalLoader "github.com/goliatone/go-formstate/internal/loader"
	internalParser "github.com/goliatone/go-formstate/internal/openapi/parser"
	"github.com/goliatone/go-formstate/pkg/jsonschema"
	pkgopenapi "github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/orchestrator"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Request aliases orchestrator.Request for callers of the top-level package.
type Request = orchestrator.Request

// Result aliases orchestrator.Result.
type Result = orchestrator.Result

// NewLoader constructs the built-in document loader while keeping the
// concrete type hidden from consumers.
func NewLoader(options ...schema.LoaderOption) schema.Loader {
	return internalLoader.New(schema.NewLoaderOptions(options...))
}

// NewOpenAPIParser constructs the kin-openapi backed parser.
func NewOpenAPIParser(options ...pkgopenapi.ParserOption) pkgopenapi.Parser {
	return internalParser.New(pkgopenapi.NewParserOptions(options...))
}

// NewJSONSchemaAdapter constructs the JSON Schema adapter.
func NewJSONSchemaAdapter(loader schema.Loader, options ...jsonschema.AdapterOption) schema.FormatAdapter {
	return jsonschema.NewAdapter(loader, options...)
}

// NewOpenAPIAdapter constructs the OpenAPI adapter with the built-in parser.
func NewOpenAPIAdapter(loader schema.Loader, options ...pkgopenapi.ParserOption) schema.FormatAdapter {
	return pkgopenapi.NewAdapter(loader, NewOpenAPIParser(options...))
}

// DefaultAdapters returns factories for both stock adapters, JSON Schema
// first.
func DefaultAdapters() []orchestrator.AdapterFactory {
	return []orchestrator.AdapterFactory{
		func(loader schema.Loader) schema.FormatAdapter { return NewJSONSchemaAdapter(loader) },
		func(loader schema.Loader) schema.FormatAdapter { return NewOpenAPIAdapter(loader) },
	}
}

// NewOrchestrator builds an orchestrator with the JSON Schema and OpenAPI
// adapters registered. Options may add adapters or replace the loader; the
// stock adapters follow whichever loader is configured.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	all := make([]orchestrator.Option, 0, len(options)+1)
	all = append(all, orchestrator.WithAdapterFactories(DefaultAdapters()...))
	all = append(all, options...)
	return orchestrator.New(all...)
}

// Resolve loads source and resolves it with default settings.
func Resolve(ctx context.Context, source schema.Source, formData any, options ...orchestrator.Option) (Result, error) {
	return NewOrchestrator(options...).Resolve(ctx, Request{Source: source, FormData: formData})
}

// ResolveDocument resolves a pre-loaded document, bypassing the loader.
func ResolveDocument(ctx context.Context, doc schema.Document, formData any, options ...orchestrator.Option) (Result, error) {
	return NewOrchestrator(options...).Resolve(ctx, Request{Document: &doc, FormData: formData})
}
