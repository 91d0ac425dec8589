package engine

import (
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Retrieve produces the concrete schema for node given the current form
// data: its $ref is expanded, allOf branches are merged in, the matching
// oneOf/anyOf branch is selected and merged, dependencies and if/then/else
// apply, and keys present only in formData are stubbed from
// additionalProperties. Only node itself is resolved; its children are
// resolved as callers descend into them.
func (e *Engine) Retrieve(node map[string]any, root map[string]any, formData any) Resolution {
	res, _ := e.retrieve(node, root, formData, nil)
	return res
}

func (e *Engine) retrieve(node map[string]any, root map[string]any, formData any, seen trail) (Resolution, trail) {
	if node == nil {
		res := resolved(nil)
		res.degrade(Unsupported, "schema is not an object")
		return res, seen
	}

	current, next, res := e.expandRef(node, root, seen)
	if schema.Has(current, schema.KeyRef) {
		return res, next
	}

	if branches, ok := schema.List(current, schema.KeyAllOf); ok {
		merged := schema.Without(current, schema.KeyAllOf)
		for _, raw := range branches {
			branch, ok := schema.Node(raw)
			if !ok {
				continue
			}
			sub, _ := e.retrieve(branch, root, formData, next)
			res.absorb(sub)
			merged = MergeSchemas(merged, sub.Schema)
		}
		current = merged
	}

	for _, key := range []string{schema.KeyOneOf, schema.KeyAnyOf} {
		options, ok := schema.List(current, key)
		if !ok || len(options) == 0 {
			continue
		}
		idx := e.FirstMatchingOption(formData, options, root, schema.DiscriminatorField(current))
		base := schema.Without(current, key)
		branch, ok := schema.Node(options[idx])
		if !ok {
			current = base
			continue
		}
		sub, _ := e.retrieve(branch, root, formData, next)
		res.absorb(sub)
		current = MergeSchemas(base, sub.Schema)
		if res.Option == NoOption {
			res.Option = idx
		}
	}

	if deps, ok := schema.Child(current, schema.KeyDependencies); ok {
		current = e.applyDependencies(schema.Without(current, schema.KeyDependencies), deps, root, formData, next, &res)
	}

	if condition, ok := schema.Child(current, schema.KeyIf); ok {
		current = e.applyCondition(current, condition, root, formData, next, &res)
	}

	if extra, ok := current[schema.KeyAdditionalProperties]; ok && extra != false {
		current = e.stubAdditionalProperties(current, extra, root, formData, next)
	}

	res.Schema = current
	return res, next
}

func (e *Engine) applyDependencies(base, deps map[string]any, root map[string]any, formData any, seen trail, res *Resolution) map[string]any {
	data, ok := formData.(map[string]any)
	if !ok {
		return base
	}
	props := schema.Properties(base)
	for _, key := range schema.SortedKeys(deps) {
		if _, present := data[key]; !present {
			continue
		}
		if props != nil {
			if _, declared := props[key]; !declared {
				continue
			}
		}
		switch dependency := deps[key].(type) {
		case []any:
			required, _ := schema.List(base, schema.KeyRequired)
			base = schema.Without(base)
			base[schema.KeyRequired] = unionList(required, dependency)
		case map[string]any:
			var sub Resolution
			base, sub = e.dependentSchema(base, key, dependency, root, formData, seen)
			res.absorb(sub)
		}
	}
	return base
}

func (e *Engine) applyCondition(node, condition map[string]any, root map[string]any, formData any, seen trail, res *Resolution) map[string]any {
	base := schema.Without(node, schema.KeyIf, schema.KeyThen, schema.KeyElse)
	data := formData
	if data == nil {
		data = map[string]any{}
	}
	branchKey := schema.KeyElse
	if e.opts.Validator.IsValid(condition, data, root) {
		branchKey = schema.KeyThen
	}
	branch, ok := schema.Child(node, branchKey)
	if !ok {
		return base
	}
	sub, _ := e.retrieve(branch, root, formData, seen)
	res.absorb(sub)
	return MergeSchemas(base, sub.Schema)
}

// stubAdditionalProperties declares a property schema for every formData key
// the node does not list, flagged with AdditionalPropertyFlag.
func (e *Engine) stubAdditionalProperties(node map[string]any, extra any, root map[string]any, formData any, seen trail) map[string]any {
	data, ok := formData.(map[string]any)
	if !ok || len(data) == 0 {
		return node
	}
	props := schema.Properties(node)
	var stubbed map[string]any
	for _, key := range schema.SortedKeys(data) {
		if _, declared := props[key]; declared {
			continue
		}
		if stubbed == nil {
			stubbed = schema.Without(props)
		}
		stub := additionalPropertySchema(extra, data[key])
		if schema.Has(stub, schema.KeyRef) {
			sub, _ := e.retrieve(stub, root, data[key], seen)
			stub = schema.Without(sub.Schema)
		}
		stub[schema.AdditionalPropertyFlag] = true
		stubbed[key] = stub
	}
	if stubbed == nil {
		return node
	}
	out := schema.Without(node)
	out[schema.KeyProperties] = stubbed
	return out
}

func additionalPropertySchema(extra any, value any) map[string]any {
	guessed := map[string]any{schema.KeyType: schema.GuessType(value).String()}
	node, ok := schema.Node(extra)
	if !ok {
		return guessed
	}
	switch {
	case schema.Has(node, schema.KeyRef):
		return map[string]any{schema.KeyRef: node[schema.KeyRef]}
	case schema.Has(node, schema.KeyType):
		return schema.Without(node)
	case schema.Has(node, schema.KeyAnyOf), schema.Has(node, schema.KeyOneOf):
		out := schema.Without(node)
		out[schema.KeyType] = "object"
		return out
	default:
		return guessed
	}
}
