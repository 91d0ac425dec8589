package engine

import (
	"github.com/goliatone/go-formstate/pkg/uischema"
)

// Input is everything one resolution pass reads. RootSchema is the document
// $refs resolve against and defaults to Schema.
type Input struct {
	Schema     map[string]any
	UISchema   uischema.UISchema
	FormData   any
	RootSchema map[string]any
}

// Result is a resolved form: the concrete root schema, form data with
// defaults applied, the id tree and the field tree the ids were taken from.
type Result struct {
	Schema   map[string]any `json:"schema"`
	FormData any            `json:"formData"`
	IDSchema *IDSchema      `json:"idSchema"`
	Root     *Field         `json:"fields"`
	// Outcome is the most severe outcome found anywhere in the tree.
	Outcome Outcome `json:"outcome"`
}

// Resolve runs the full pass: defaults are computed and merged into the form
// data, then the field tree is resolved against that data. It never fails;
// problems surface as field outcomes.
func (e *Engine) Resolve(in Input) Result {
	root := in.RootSchema
	if root == nil {
		root = in.Schema
	}

	formData := e.DefaultFormState(in.Schema, root, in.FormData)
	field := e.buildField(in.Schema, root, formData, in.UISchema, e.rootID(), false, nil)

	return Result{
		Schema:   field.Schema,
		FormData: formData,
		IDSchema: field.IDSchema(),
		Root:     field,
		Outcome:  field.Outcomes(),
	}
}
