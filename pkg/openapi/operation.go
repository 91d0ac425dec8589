package openapi

import (
	"context"
	"sort"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// DefaultContentType is preferred when an operation accepts several bodies.
const DefaultContentType = "application/json"

var preferredContentTypes = []string{
	DefaultContentType,
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// Spec is a parsed OpenAPI document.
type Spec struct {
	// Operations keyed by operationId, or "method:path" when none is set.
	Operations map[string]Operation
	// Root is the full document as JSON values; component refs resolve
	// against it.
	Root map[string]any
}

// Operation models the subset of OpenAPI operation metadata a form needs.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	// Bodies maps request media types to their JSON Schema nodes. Refs are
	// kept as "#/components/..." pointers.
	Bodies map[string]map[string]any
}

// Body returns the request schema for contentType, or the preferred media
// type when contentType is empty.
func (op Operation) Body(contentType string) (map[string]any, string, bool) {
	if contentType != "" {
		node, ok := op.Bodies[contentType]
		return node, contentType, ok
	}
	for _, candidate := range preferredContentTypes {
		if node, ok := op.Bodies[candidate]; ok {
			return node, candidate, true
		}
	}
	keys := schema.SortedKeys(op.Bodies)
	if len(keys) == 0 {
		return nil, "", false
	}
	return op.Bodies[keys[0]], keys[0], true
}

// FormRefs lists the operations that accept a request body.
func (s Spec) FormRefs() []schema.FormRef {
	refs := make([]schema.FormRef, 0, len(s.Operations))
	for id, op := range s.Operations {
		if len(op.Bodies) == 0 {
			continue
		}
		refs = append(refs, schema.FormRef{ID: id, Title: op.Summary, Description: op.Description})
	}
	schema.SortFormRefs(refs)
	return refs
}

// OperationIDs returns every operation id in lexical order.
func (s Spec) OperationIDs() []string {
	ids := make([]string, 0, len(s.Operations))
	for id := range s.Operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Parser turns OpenAPI documents into a Spec.
type Parser interface {
	Parse(ctx context.Context, doc schema.Document) (Spec, error)
}

// ParserOptions configures the kin-openapi backed parser.
type ParserOptions struct {
	// AllowExternalRefs lets the loader follow refs into other documents.
	AllowExternalRefs bool
	// SkipValidation disables document validation after loading.
	SkipValidation bool
}

// ParserOption mutates ParserOptions during construction.
type ParserOption func(*ParserOptions)

// WithExternalRefs toggles loading of refs that point outside the document.
func WithExternalRefs(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.AllowExternalRefs = enabled
	}
}

// WithValidation toggles document validation.
func WithValidation(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.SkipValidation = !enabled
	}
}

// NewParserOptions applies ParserOption functions in order.
func NewParserOptions(options ...ParserOption) ParserOptions {
	cfg := ParserOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
