package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	json "github.com/goccy/go-json"

	pkgopenapi "github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Parser implements pkgopenapi.Parser using kin-openapi.
type Parser struct {
	options pkgopenapi.ParserOptions
}

var _ pkgopenapi.Parser = (*Parser)(nil)

// New constructs a Parser with the given options.
func New(options pkgopenapi.ParserOptions) *Parser {
	return &Parser{options: options}
}

// Parse loads and validates the document, then extracts every operation's
// request bodies as JSON Schema nodes. Component refs are kept as pointers
// into Spec.Root.
func (p *Parser) Parse(ctx context.Context, doc schema.Document) (pkgopenapi.Spec, error) {
	if err := ctx.Err(); err != nil {
		return pkgopenapi.Spec{}, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return pkgopenapi.Spec{}, errors.New("openapi parser: document payload is empty")
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = p.options.AllowExternalRefs

	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return pkgopenapi.Spec{}, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if !p.options.SkipValidation {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return pkgopenapi.Spec{}, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}

	root, err := toNode(spec)
	if err != nil {
		return pkgopenapi.Spec{}, fmt.Errorf("openapi parser: encode document: %w", err)
	}

	operations := make(map[string]pkgopenapi.Operation)
	if spec.Paths != nil {
		for path, item := range spec.Paths.Map() {
			if item == nil {
				continue
			}
			for method, operation := range item.Operations() {
				if err := p.collectOperation(operations, method, path, operation); err != nil {
					return pkgopenapi.Spec{}, err
				}
			}
		}
	}
	return pkgopenapi.Spec{Operations: operations, Root: root}, nil
}

func (p *Parser) collectOperation(target map[string]pkgopenapi.Operation, method, path string, operation *openapi3.Operation) error {
	if operation == nil {
		return nil
	}
	opID := operation.OperationID
	if opID == "" {
		opID = strings.ToLower(method) + ":" + path
	}
	if _, dup := target[opID]; dup {
		return fmt.Errorf("openapi parser: duplicate operation id %q", opID)
	}

	bodies, err := requestBodies(operation.RequestBody)
	if err != nil {
		return fmt.Errorf("openapi parser: operation %s: %w", opID, err)
	}
	target[opID] = pkgopenapi.Operation{
		ID:          opID,
		Method:      strings.ToUpper(method),
		Path:        path,
		Summary:     operation.Summary,
		Description: operation.Description,
		Bodies:      bodies,
	}
	return nil
}

func requestBodies(body *openapi3.RequestBodyRef) (map[string]map[string]any, error) {
	if body == nil || body.Value == nil {
		return nil, nil
	}
	bodies := make(map[string]map[string]any, len(body.Value.Content))
	for mediaType, content := range body.Value.Content {
		if content == nil || content.Schema == nil {
			continue
		}
		node, err := schemaNode(content.Schema)
		if err != nil {
			return nil, fmt.Errorf("%s body: %w", mediaType, err)
		}
		bodies[mediaType] = node
	}
	if len(bodies) == 0 {
		return nil, nil
	}
	return bodies, nil
}

// schemaNode converts a kin-openapi schema back into JSON values. A SchemaRef
// with a Ref marshals as {"$ref": ...}, so nested refs survive.
func schemaNode(ref *openapi3.SchemaRef) (map[string]any, error) {
	if ref.Ref != "" {
		return map[string]any{schema.KeyRef: ref.Ref}, nil
	}
	if ref.Value == nil {
		return map[string]any{}, nil
	}
	return toNode(ref.Value)
}

func toNode(value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	decoded, err := schema.Decode(raw, schema.EncodingJSON)
	if err != nil {
		return nil, err
	}
	node, ok := decoded.(map[string]any)
	if !ok {
		return nil, errors.New("encoded value is not an object")
	}
	return node, nil
}
