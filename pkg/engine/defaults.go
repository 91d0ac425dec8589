package engine

import (
	"github.com/goliatone/go-formstate/pkg/schema"
)

// defaultsArgs carries the per-node inputs of a default computation.
type defaultsArgs struct {
	// parent is the default inherited from an ancestor's default value.
	parent    any
	hasParent bool
	formData  any
	// required is whether the property holding this node is required. Nil at
	// the root, where nothing holds it.
	required *bool
}

// DefaultFormState computes the defaults for node and merges them with
// formData. Object and array form data are merged key by key; any other
// present value is returned as is. With no form data the bare defaults are
// returned, nil when there are none.
func (e *Engine) DefaultFormState(node map[string]any, root map[string]any, formData any) any {
	concrete := e.Retrieve(node, root, formData)
	defaults, ok := e.computeDefaults(concrete.Schema, root, defaultsArgs{formData: formData}, nil)

	switch formData.(type) {
	case nil:
		if !ok {
			return nil
		}
		return defaults
	case map[string]any, []any:
		return MergeDefaultsWithFormData(defaults, formData, e.opts.ArrayMinItems.MergeExtraDefaults)
	default:
		return formData
	}
}

// ComputeDefaults derives the default value tree for node. parentDefault is
// a default declared by an ancestor for this location (nil when none) and
// takes effect when node declares no default of its own. The boolean is false
// when no default exists at all; scalars never get invented values.
func (e *Engine) ComputeDefaults(node map[string]any, root map[string]any, formData any, parentDefault any) (any, bool) {
	return e.computeDefaults(node, root, defaultsArgs{
		parent:    parentDefault,
		hasParent: parentDefault != nil,
		formData:  formData,
	}, nil)
}

func (e *Engine) computeDefaults(node map[string]any, root map[string]any, args defaultsArgs, seen trail) (any, bool) {
	if node == nil {
		node = map[string]any{}
	}
	defaults, has := args.parent, args.hasParent

	var next map[string]any
	nextSeen := seen
	own, hasOwn := node[schema.KeyDefault]
	parentObject, parentIsObject := defaults.(map[string]any)
	ownObject, ownIsObject := own.(map[string]any)

	switch {
	case has && parentIsObject && ownIsObject:
		defaults = MergeObjects(parentObject, ownObject, false)
	case hasOwn:
		defaults, has = own, true
	case schema.Has(node, schema.KeyRef):
		expanded, after, _ := e.expandRef(node, root, seen)
		if !schema.Has(expanded, schema.KeyRef) {
			next, nextSeen = expanded, after
		}
	case schema.Has(node, schema.KeyDependencies):
		deps, _ := schema.Child(node, schema.KeyDependencies)
		var res Resolution
		next = e.applyDependencies(schema.Without(node, schema.KeyDependencies), deps, root, args.formData, seen, &res)
	case isFixedItems(node):
		items, _ := schema.List(node, schema.KeyItems)
		parentList, _ := defaults.([]any)
		dataList, _ := args.formData.([]any)
		out := make([]any, len(items))
		for idx, raw := range items {
			item, _ := schema.Node(raw)
			sub := defaultsArgs{required: args.required}
			if idx < len(parentList) {
				sub.parent, sub.hasParent = parentList[idx], true
			}
			if idx < len(dataList) {
				sub.formData = dataList[idx]
			}
			out[idx], _ = e.computeDefaults(item, root, sub, seen)
		}
		defaults, has = out, true
	case schema.Has(node, schema.KeyOneOf), schema.Has(node, schema.KeyAnyOf):
		key := schema.KeyOneOf
		if !schema.Has(node, key) {
			key = schema.KeyAnyOf
		}
		options, _ := schema.List(node, key)
		if len(options) == 0 {
			return nil, false
		}
		idx := e.FirstMatchingOption(matchableData(args.formData), options, root, schema.DiscriminatorField(node))
		option, _ := schema.Node(options[idx])
		next = MergeSchemas(schema.Without(node, key), option)
	}

	if next != nil {
		return e.computeDefaults(next, root, defaultsArgs{
			parent:    defaults,
			hasParent: has,
			formData:  args.formData,
			required:  args.required,
		}, nextSeen)
	}

	switch schema.TypeOf(node) {
	case schema.TypeObject:
		return e.objectDefaults(node, root, defaults, args, seen), true
	case schema.TypeArray:
		return e.arrayDefaults(node, root, defaults, has, args, seen)
	}
	if !has {
		return nil, false
	}
	return defaults, true
}

func (e *Engine) objectDefaults(node map[string]any, root map[string]any, defaults any, args defaultsArgs, seen trail) map[string]any {
	target := node
	if schema.Has(node, schema.KeyAllOf) {
		target = e.Retrieve(node, root, args.formData).Schema
	}
	props := schema.Properties(target)
	parentMap, _ := defaults.(map[string]any)
	data, _ := args.formData.(map[string]any)
	requiredFields := schema.Required(target)
	out := map[string]any{}

	compute := func(key string, child map[string]any) {
		isRequired := schema.IsRequired(target, key)
		sub := defaultsArgs{formData: data[key], required: &isRequired}
		sub.parent, sub.hasParent = parentMap[key]
		value, ok := e.computeDefaults(child, root, sub, childTrail(seen, data[key]))
		e.addObjectDefault(out, key, value, ok, args.required, requiredFields)
	}

	for _, key := range schema.SortedKeys(props) {
		child, _ := schema.Node(props[key])
		compute(key, child)
	}

	extra, ok := target[schema.KeyAdditionalProperties]
	if !ok || extra == false || extra == nil {
		return out
	}
	extraSchema, _ := schema.Node(extra)
	keys := map[string]struct{}{}
	for key := range parentMap {
		if _, declared := props[key]; !declared {
			keys[key] = struct{}{}
		}
	}
	for key := range data {
		if _, declared := props[key]; !declared {
			keys[key] = struct{}{}
		}
	}
	for _, key := range schema.SortedKeys(keys) {
		compute(key, extraSchema)
	}
	return out
}

// addObjectDefault applies the EmptyObjectFields policy to one computed
// property default.
func (e *Engine) addObjectDefault(out map[string]any, key string, value any, ok bool, parentRequired *bool, requiredFields []string) {
	if e.opts.IncludeUndefinedValues {
		out[key] = value
		return
	}
	policy := e.opts.EmptyObjectFields
	if policy == SkipDefaults || !ok {
		return
	}

	keyRequired := contains(requiredFields, key)
	selfOrParentRequired := keyRequired
	if parentRequired != nil {
		selfOrParentRequired = *parentRequired
	}

	if object, isObject := value.(map[string]any); isObject {
		keepEmpty := keyRequired && policy != SkipEmptyDefaults
		if (len(object) > 0 || keepEmpty) && (selfOrParentRequired || policy != PopulateRequiredDefaults) {
			out[key] = value
		}
		return
	}
	if policy == PopulateAllDefaults || policy == SkipEmptyDefaults || (selfOrParentRequired && keyRequired) {
		out[key] = value
	}
}

func (e *Engine) arrayDefaults(node map[string]any, root map[string]any, defaults any, has bool, args defaultsArgs, seen trail) (any, bool) {
	policy := e.opts.ArrayMinItems.Populate

	if list, ok := defaults.([]any); ok {
		out := make([]any, len(list))
		for idx, item := range list {
			out[idx], _ = e.computeDefaults(arrayItemSchema(node, idx), root, defaultsArgs{
				parent:    item,
				hasParent: true,
				required:  args.required,
			}, seen)
		}
		defaults = out
	}

	if dataList, ok := args.formData.([]any); ok {
		if policy == PopulateNever {
			defaults, has = dataList, true
		} else {
			existing, _ := defaults.([]any)
			out := make([]any, len(dataList))
			for idx, item := range dataList {
				sub := defaultsArgs{formData: item, required: args.required}
				if idx < len(existing) {
					sub.parent, sub.hasParent = existing[idx], true
				}
				out[idx], _ = e.computeDefaults(arrayItemSchema(node, idx), root, sub, childTrail(seen, item))
			}
			defaults, has = out, true
		}
	}

	if policy == PopulateNever {
		if has && defaults != nil {
			return defaults, true
		}
		return []any{}, true
	}
	if policy == PopulateRequiredOnly && (args.required == nil || !*args.required) {
		if has && defaults != nil {
			return defaults, true
		}
		return nil, false
	}

	current, _ := defaults.([]any)
	minItems, _ := schema.Int(node, schema.KeyMinItems)
	if minItems == 0 || minItems <= len(current) || e.isMultiSelect(node, root) {
		if has && defaults != nil {
			return defaults, true
		}
		return []any{}, true
	}

	filler := fillerSchema(node)
	fillerDefault, hasFillerDefault := filler[schema.KeyDefault]
	value, _ := e.computeDefaults(filler, root, defaultsArgs{
		parent:    fillerDefault,
		hasParent: hasFillerDefault,
		required:  args.required,
	}, seen)

	out := make([]any, 0, minItems)
	out = append(out, current...)
	for len(out) < minItems {
		out = append(out, schema.Clone(value))
	}
	return out, true
}

// arrayItemSchema returns the schema for the element at idx: the tuple
// position when items is a list, additionalItems past the tuple, otherwise
// the single items schema.
func arrayItemSchema(node map[string]any, idx int) map[string]any {
	if list, ok := schema.List(node, schema.KeyItems); ok {
		if idx >= 0 && idx < len(list) {
			if item, ok := schema.Node(list[idx]); ok {
				return item
			}
		}
		if extra, ok := schema.Child(node, schema.KeyAdditionalItems); ok {
			return extra
		}
		return map[string]any{}
	}
	if item, ok := schema.Child(node, schema.KeyItems); ok {
		return item
	}
	return map[string]any{}
}

// fillerSchema is the schema used to pad an array up to minItems.
func fillerSchema(node map[string]any) map[string]any {
	if _, tuple := schema.List(node, schema.KeyItems); tuple {
		if extra, ok := schema.Child(node, schema.KeyAdditionalItems); ok {
			return extra
		}
		return map[string]any{}
	}
	return arrayItemSchema(node, -1)
}

func isFixedItems(node map[string]any) bool {
	items, ok := schema.List(node, schema.KeyItems)
	if !ok || len(items) == 0 {
		return false
	}
	for _, item := range items {
		if _, ok := schema.Node(item); !ok {
			return false
		}
	}
	return true
}

// isMultiSelect reports arrays of unique values drawn from a fixed set,
// which are never padded with filler entries.
func (e *Engine) isMultiSelect(node map[string]any, root map[string]any) bool {
	if !schema.Bool(node, schema.KeyUniqueItems) {
		return false
	}
	items, ok := schema.Child(node, schema.KeyItems)
	if !ok {
		return false
	}
	return e.isSelect(items, root)
}

func (e *Engine) isSelect(node map[string]any, root map[string]any) bool {
	node, _, _ = e.expandRef(node, root, nil)
	if _, ok := schema.List(node, schema.KeyEnum); ok {
		return true
	}
	alternatives, ok := schema.List(node, schema.KeyOneOf)
	if !ok {
		alternatives, ok = schema.List(node, schema.KeyAnyOf)
	}
	if !ok {
		return false
	}
	for _, raw := range alternatives {
		alt, ok := schema.Node(raw)
		if !ok || !isConstant(alt) {
			return false
		}
	}
	return true
}

func isConstant(node map[string]any) bool {
	if enum, ok := schema.List(node, schema.KeyEnum); ok && len(enum) == 1 {
		return true
	}
	return schema.Has(node, schema.KeyConst)
}

// matchableData hides empty objects from branch matching, so untouched
// forms select the first option.
func matchableData(formData any) any {
	if data, ok := formData.(map[string]any); ok && len(data) == 0 {
		return nil
	}
	return formData
}

// childTrail restarts ref cycle tracking below locations that carry form
// data. Form data is finite, so expansion stays bounded while recursive
// schemas still unfold as deep as the data goes.
func childTrail(seen trail, formData any) trail {
	if formData != nil {
		return nil
	}
	return seen
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
