package engine

import (
	"reflect"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// FirstMatchingOption picks the oneOf/anyOf branch that formData satisfies.
// A simple discriminator (a property whose const or enum identifies the
// branch) is consulted first. Otherwise each option is validated, with object
// options relaxed to "at least one declared property present" so partially
// filled data still selects a branch. The first match wins; when nothing
// matches, or formData is absent, option 0 is returned.
func (e *Engine) FirstMatchingOption(formData any, options []any, root map[string]any, discriminatorField string) int {
	if formData == nil || len(options) == 0 {
		return 0
	}
	if idx, ok := matchDiscriminator(formData, options, root, discriminatorField); ok {
		return idx
	}

	for idx, raw := range options {
		option, ok := schema.Node(raw)
		if !ok {
			continue
		}
		option, _, _ = e.expandRef(option, root, nil)
		if e.opts.Validator.IsValid(augmentOption(option), formData, root) {
			return idx
		}
	}
	return 0
}

// augmentOption relaxes an object option for matching: its own required list
// is dropped and at least one of its declared properties must be present.
func augmentOption(option map[string]any) map[string]any {
	props := schema.Properties(option)
	if props == nil {
		return option
	}
	names := schema.SortedKeys(props)
	requiresAnyOf := make([]any, 0, len(names))
	for _, name := range names {
		requiresAnyOf = append(requiresAnyOf, map[string]any{schema.KeyRequired: []any{name}})
	}

	augmented := schema.Without(option, schema.KeyRequired)
	if !schema.Has(option, schema.KeyAnyOf) {
		augmented[schema.KeyAnyOf] = requiresAnyOf
		return augmented
	}
	allOf, _ := schema.List(option, schema.KeyAllOf)
	extended := make([]any, 0, len(allOf)+1)
	extended = append(extended, allOf...)
	augmented[schema.KeyAllOf] = append(extended, map[string]any{schema.KeyAnyOf: requiresAnyOf})
	return augmented
}

func matchDiscriminator(formData any, options []any, root map[string]any, field string) (int, bool) {
	if field == "" {
		return 0, false
	}
	data, ok := formData.(map[string]any)
	if !ok {
		return 0, false
	}
	value, ok := data[field]
	if !ok {
		return 0, false
	}
	for idx, raw := range options {
		option, ok := schema.Node(raw)
		if !ok {
			continue
		}
		if ref := schema.String(option, schema.KeyRef); ref != "" {
			if target, err := FindDefinition(ref, root); err == nil {
				option = overlayRef(target, option)
			}
		}
		prop, ok := schema.Property(option, field)
		if !ok {
			continue
		}
		if t := schema.TypeOf(prop); t == schema.TypeObject || t == schema.TypeArray {
			continue
		}
		if constant, ok := prop[schema.KeyConst]; ok && jsonEqual(constant, value) {
			return idx, true
		}
		if enum, ok := schema.List(prop, schema.KeyEnum); ok {
			for _, entry := range enum {
				if jsonEqual(entry, value) {
					return idx, true
				}
			}
		}
	}
	return 0, false
}

// dependentSchema merges a schema dependency into base. When the dependency
// carries a oneOf, exactly one branch must accept formData at key; any other
// count leaves base untouched.
func (e *Engine) dependentSchema(base map[string]any, key string, dependency map[string]any, root map[string]any, formData any, seen trail) (map[string]any, Resolution) {
	dep, _ := e.retrieve(schema.Without(dependency, schema.KeyOneOf), root, formData, seen)
	merged := MergeSchemas(base, dep.Schema)

	oneOf, ok := schema.List(dependency, schema.KeyOneOf)
	if !ok {
		return merged, dep
	}

	var matches []map[string]any
	for _, raw := range oneOf {
		branch, ok := schema.Node(raw)
		if !ok {
			continue
		}
		branch, _, _ = e.expandRef(branch, root, seen)
		condition, ok := schema.Property(branch, key)
		if !ok {
			continue
		}
		conditionSchema := map[string]any{
			schema.KeyType:       "object",
			schema.KeyProperties: map[string]any{key: condition},
		}
		if e.opts.Validator.IsValid(conditionSchema, formData, root) {
			matches = append(matches, branch)
		}
	}
	if len(matches) != 1 {
		e.opts.Logger.Debug("engine: ignoring oneOf in dependencies, need exactly one valid branch",
			"dependency", key, "valid", len(matches))
		return merged, dep
	}

	branch := matches[0]
	props := schema.Without(schema.Properties(branch), key)
	rest := schema.Without(branch)
	rest[schema.KeyProperties] = props
	resolvedBranch, _ := e.retrieve(rest, root, formData, seen)
	dep.absorb(resolvedBranch)
	return MergeSchemas(merged, resolvedBranch.Schema), dep
}

// jsonEqual compares two JSON-compatible values, treating every Go numeric
// type as its float64 value.
func jsonEqual(a, b any) bool {
	return reflect.DeepEqual(normalizeNumbers(a), normalizeNumbers(b))
}

func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[key] = normalizeNumbers(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, val := range typed {
			out[idx] = normalizeNumbers(val)
		}
		return out
	case int:
		return float64(typed)
	case int8:
		return float64(typed)
	case int16:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint:
		return float64(typed)
	case uint8:
		return float64(typed)
	case uint16:
		return float64(typed)
	case uint32:
		return float64(typed)
	case uint64:
		return float64(typed)
	case float32:
		return float64(typed)
	default:
		return value
	}
}
