package validation

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/goliatone/go-formstate/pkg/schema"
)

const (
	resourceURL = "file:///formstate/schema.json"
	rootURL     = "file:///formstate/root.json"
)

// rootCarriedKeys are copied from the root document onto the schema under
// test when the root itself cannot be compiled as a ref target.
var rootCarriedKeys = []string{schema.KeyDefinitions, schema.KeyDefs, "components"}

// literalKeys hold instance values, never subschemas.
var literalKeys = map[string]struct{}{
	schema.KeyConst: {}, schema.KeyEnum: {}, schema.KeyDefault: {}, "examples": {}, "example": {},
}

// namedKeys map names to subschemas, so their keys are not keywords.
var namedKeys = map[string]struct{}{
	schema.KeyProperties: {}, "patternProperties": {}, schema.KeyDefinitions: {}, schema.KeyDefs: {},
	schema.KeyDependencies: {}, "dependentSchemas": {},
}

// Option customises a Validator.
type Option func(*Validator)

// WithDraft sets the draft used for schemas that do not declare $schema.
func WithDraft(draft *jsonschema.Draft) Option {
	return func(v *Validator) {
		if draft != nil {
			v.draft = draft
		}
	}
}

// WithLogger routes compile failures to the supplied logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithFormatAssertions makes the "format" keyword an assertion.
func WithFormatAssertions() Option {
	return func(v *Validator) {
		v.assertFormat = true
	}
}

// Validator answers "does this data satisfy this schema" for the engine's
// branch selection. It is backed by santhosh-tekuri/jsonschema and compiles
// schemas per call, so it holds no mutable state and is safe for concurrent
// use.
type Validator struct {
	draft        *jsonschema.Draft
	logger       *slog.Logger
	assertFormat bool
}

// New constructs a Validator defaulting to draft-07.
func New(options ...Option) *Validator {
	v := &Validator{
		draft:  jsonschema.Draft7,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// IsValid reports whether data satisfies node. Refs inside node resolve
// against root. Schemas that fail to compile count as not valid.
func (v *Validator) IsValid(node map[string]any, data any, root map[string]any) bool {
	err := v.Validate(node, data, root)
	if err == nil {
		return true
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		v.logger.Debug("validation: schema not usable for matching", "error", err)
	}
	return false
}

// Validate checks data against node and returns the validator's error, a
// *jsonschema.ValidationError when the data does not conform.
func (v *Validator) Validate(node map[string]any, data any, root map[string]any) error {
	compiled, err := v.compile(node, root)
	if err != nil {
		return err
	}
	instance, err := normalizeValue(data)
	if err != nil {
		return fmt.Errorf("validation: encode data: %w", err)
	}
	return compiled.Validate(instance)
}

// compile builds node for validation. Local "#/..." refs point into root,
// so when node has any, root is added as its own resource and the refs are
// rebased onto it. Roots the compiler rejects (OpenAPI 3.0 keyword forms,
// for one) fall back to carrying their definition sections onto node.
func (v *Validator) compile(node map[string]any, root map[string]any) (*jsonschema.Schema, error) {
	if node == nil {
		node = map[string]any{}
	}
	doc := schema.Without(node, "$id")
	if root != nil {
		rebased, refs := rebaseRefs(doc, rootURL)
		if refs > 0 {
			compiled, err := v.compileResources(rebased, schema.Without(root, "$id"))
			if err == nil {
				return compiled, nil
			}
			v.logger.Debug("validation: root not usable as ref target, carrying definitions", "error", err)
		}
	}
	for _, key := range rootCarriedKeys {
		if _, ok := doc[key]; ok {
			continue
		}
		if value, ok := root[key]; ok {
			doc[key] = value
		}
	}
	return v.compileResources(doc, nil)
}

func (v *Validator) compileResources(doc, root map[string]any) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(v.draft)
	if v.assertFormat {
		compiler.AssertFormat()
	}
	if root != nil {
		normalizedRoot, err := normalizeValue(root)
		if err != nil {
			return nil, fmt.Errorf("validation: encode root schema: %w", err)
		}
		if err := compiler.AddResource(rootURL, normalizedRoot); err != nil {
			return nil, fmt.Errorf("validation: add root schema: %w", err)
		}
	}
	normalized, err := normalizeValue(doc)
	if err != nil {
		return nil, fmt.Errorf("validation: encode schema: %w", err)
	}
	if err := compiler.AddResource(resourceURL, normalized); err != nil {
		return nil, fmt.Errorf("validation: add schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("validation: compile schema: %w", err)
	}
	return compiled, nil
}

// rebaseRefs copies node with every local "$ref" prefixed by base and
// reports how many it rewrote. Literal keywords are copied untouched.
func rebaseRefs(node map[string]any, base string) (map[string]any, int) {
	count := 0
	out, _ := rebase(node, base, false, &count).(map[string]any)
	return out, count
}

// rebase walks value; named is set for maps keyed by property or definition
// names rather than keywords.
func rebase(value any, base string, named bool, count *int) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			switch {
			case named:
				out[key] = rebase(child, base, false, count)
			case key == schema.KeyRef:
				ref, ok := child.(string)
				if ok && strings.HasPrefix(ref, "#") {
					out[key] = base + ref
					*count++
				} else {
					out[key] = child
				}
			default:
				if _, literal := literalKeys[key]; literal {
					out[key] = child
					continue
				}
				_, isNamed := namedKeys[key]
				out[key] = rebase(child, base, isNamed, count)
			}
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = rebase(child, base, false, count)
		}
		return out
	default:
		return value
	}
}

// normalizeValue round-trips value through JSON so numbers and containers
// take the shapes the compiler expects.
func normalizeValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}
