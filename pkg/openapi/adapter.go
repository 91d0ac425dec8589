package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
)

const DefaultAdapterName = "openapi"

// Adapter wraps the OpenAPI loader/parser flow behind the schema adapter
// interface.
type Adapter struct {
	loader schema.Loader
	parser Parser
}

var _ schema.FormatAdapter = (*Adapter)(nil)

// NewAdapter constructs an OpenAPI adapter with the supplied loader and parser.
func NewAdapter(loader schema.Loader, parser Parser) *Adapter {
	return &Adapter{loader: loader, parser: parser}
}

// Name returns the adapter registry identifier.
func (a *Adapter) Name() string {
	return DefaultAdapterName
}

// Detect reports whether the raw payload appears to be OpenAPI.
func (a *Adapter) Detect(_ schema.Source, raw []byte) bool {
	return detectOpenAPI(raw)
}

// Load fetches the raw OpenAPI document.
func (a *Adapter) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if a == nil || a.loader == nil {
		return schema.Document{}, errors.New("openapi adapter: loader is nil")
	}
	return a.loader.Load(ctx, src)
}

// Normalize selects one operation's request body as the form schema. With
// no FormID the document must hold exactly one operation with a body.
func (a *Adapter) Normalize(ctx context.Context, doc schema.Document, opts schema.NormalizeOptions) (schema.RootSchema, error) {
	spec, err := a.parse(ctx, doc)
	if err != nil {
		return schema.RootSchema{}, err
	}

	id := strings.TrimSpace(opts.FormID)
	if id == "" {
		refs := spec.FormRefs()
		switch len(refs) {
		case 0:
			return schema.RootSchema{}, errors.New("openapi adapter: no operation accepts a request body")
		case 1:
			id = refs[0].ID
		default:
			return schema.RootSchema{}, fmt.Errorf("openapi adapter: %d operations accept a body, pick one by id", len(refs))
		}
	}

	op, ok := spec.Operations[id]
	if !ok {
		return schema.RootSchema{}, fmt.Errorf("openapi adapter: operation %q not found", id)
	}
	body, _, ok := op.Body(strings.TrimSpace(opts.ContentType))
	if !ok {
		return schema.RootSchema{}, fmt.Errorf("openapi adapter: operation %q has no %s request body", id, contentTypeLabel(opts.ContentType))
	}
	return schema.RootSchema{Name: op.ID, Schema: body, Root: spec.Root}, nil
}

// Forms lists the operations that accept a request body.
func (a *Adapter) Forms(ctx context.Context, doc schema.Document) ([]schema.FormRef, error) {
	spec, err := a.parse(ctx, doc)
	if err != nil {
		return nil, err
	}
	return spec.FormRefs(), nil
}

func (a *Adapter) parse(ctx context.Context, doc schema.Document) (Spec, error) {
	if a == nil || a.parser == nil {
		return Spec{}, errors.New("openapi adapter: parser is nil")
	}
	if doc.IsZero() {
		return Spec{}, errors.New("openapi adapter: empty document")
	}
	return a.parser.Parse(ctx, doc)
}

func contentTypeLabel(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return "usable"
	}
	return contentType
}

func detectOpenAPI(raw []byte) bool {
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
	if !ok {
		return false
	}
	_, openapi := payload["openapi"]
	_, swagger := payload["swagger"]
	return openapi || swagger
}
