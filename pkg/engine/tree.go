package engine

import (
	"strconv"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/uischema"
)

// Field is one node of the resolved form: the concrete schema at a location,
// its classification, the form data found there, and its ordered children.
type Field struct {
	FieldPathID
	Schema     map[string]any    `json:"schema"`
	Type       schema.Type       `json:"type"`
	Nullable   bool              `json:"nullable,omitempty"`
	Required   bool              `json:"required,omitempty"`
	Additional bool              `json:"additional,omitempty"`
	Outcome    Outcome           `json:"outcome"`
	Reason     string            `json:"reason,omitempty"`
	Option     int               `json:"option"`
	UI         uischema.UISchema `json:"ui,omitempty"`
	Value      any               `json:"value,omitempty"`
	Properties []*Field          `json:"properties,omitempty"`
	Items      []*Field          `json:"items,omitempty"`

	separator string
}

// Walk visits f and its descendants depth-first, parents first. Returning
// false from fn skips the children of that field.
func (f *Field) Walk(fn func(*Field) bool) {
	if f == nil || !fn(f) {
		return
	}
	for _, child := range f.Properties {
		child.Walk(fn)
	}
	for _, child := range f.Items {
		child.Walk(fn)
	}
}

// Outcomes returns the most severe outcome in the subtree.
func (f *Field) Outcomes() Outcome {
	worst := Resolved
	f.Walk(func(node *Field) bool {
		worst = worst.join(node.Outcome)
		return true
	})
	return worst
}

// IDSchema projects the id tree out of the field tree.
func (f *Field) IDSchema() *IDSchema {
	if f == nil {
		return nil
	}
	out := &IDSchema{FieldPathID: f.FieldPathID, separator: f.separator}
	if len(f.Properties) > 0 {
		out.Properties = make(map[string]*IDSchema, len(f.Properties))
		for _, child := range f.Properties {
			out.Properties[child.Path[len(child.Path)-1]] = child.IDSchema()
		}
	}
	for _, child := range f.Items {
		out.Items = append(out.Items, child.IDSchema())
	}
	return out
}

func (e *Engine) buildField(node map[string]any, root map[string]any, formData any, ui uischema.UISchema, id FieldPathID, required bool, seen trail) *Field {
	res, next := e.retrieve(node, root, formData, seen)
	concrete := res.Schema
	class := schema.Classify(concrete)
	field := &Field{
		FieldPathID: id,
		Schema:      concrete,
		Type:        class.Type,
		Nullable:    class.Nullable,
		Required:    required,
		Additional:  schema.Bool(concrete, schema.AdditionalPropertyFlag),
		Outcome:     res.Outcome,
		Reason:      res.Reason,
		Option:      res.Option,
		UI:          ui,
		Value:       formData,
		separator:   e.opts.IDSeparator,
	}
	if schema.Has(concrete, schema.KeyRef) {
		return field
	}

	switch class.Type {
	case schema.TypeObject:
		props := schema.Properties(concrete)
		names := schema.SortedKeys(props)
		ordered, err := OrderProperties(names, ui.Order())
		if err != nil {
			e.opts.Logger.Warn("engine: ignoring ui:order", "field", id.ID, "error", err)
			ordered = names
		}
		data, _ := formData.(map[string]any)
		for _, name := range ordered {
			child, _ := schema.Node(props[name])
			value := data[name]
			field.Properties = append(field.Properties, e.buildField(
				child, root, value, ui.Child(name), e.childID(id, name),
				schema.IsRequired(concrete, name), childTrail(next, value),
			))
		}
	case schema.TypeArray:
		data, _ := formData.([]any)
		count := len(data)
		if tuple, ok := schema.List(concrete, schema.KeyItems); ok && len(tuple) > count {
			count = len(tuple)
		}
		for idx := 0; idx < count; idx++ {
			var value any
			if idx < len(data) {
				value = data[idx]
			}
			field.Items = append(field.Items, e.buildField(
				arrayItemSchema(concrete, idx), root, value, ui.ItemAt(idx),
				e.childID(id, strconv.Itoa(idx)), false, childTrail(next, value),
			))
		}
	}
	return field
}
