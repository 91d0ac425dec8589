package engine

import "github.com/goliatone/go-formstate/pkg/schema"

// MergeSchemas deep-merges b over a. When both sides hold an object under a
// key the merge recurses, otherwise b wins. The one exception is required:
// if either side is an object schema the two lists are unioned, a's entries
// first. Neither input is modified.
func MergeSchemas(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for key, value := range a {
		out[key] = value
	}
	if len(b) == 0 {
		return out
	}
	objectTyped := schema.TypeOf(a) == schema.TypeObject || schema.TypeOf(b) == schema.TypeObject

	for key, right := range b {
		left, inA := a[key]
		if rightNode, ok := right.(map[string]any); ok && inA {
			if leftNode, ok := left.(map[string]any); ok {
				out[key] = MergeSchemas(leftNode, rightNode)
				continue
			}
		}
		if key == schema.KeyRequired && objectTyped {
			leftList, lok := left.([]any)
			rightList, rok := right.([]any)
			if lok && rok {
				out[key] = unionList(leftList, rightList)
				continue
			}
		}
		out[key] = right
	}
	return out
}

// MergeObjects deep-merges b into a copy of a. Nested objects recurse; with
// concatArrays, arrays on both sides are concatenated instead of replaced.
func MergeObjects(a, b map[string]any, concatArrays bool) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for key, value := range a {
		out[key] = value
	}
	for key, right := range b {
		left, ok := a[key]
		if !ok {
			out[key] = right
			continue
		}
		switch rightTyped := right.(type) {
		case map[string]any:
			if leftNode, ok := left.(map[string]any); ok {
				out[key] = MergeObjects(leftNode, rightTyped, concatArrays)
				continue
			}
		case []any:
			if leftList, ok := left.([]any); ok && concatArrays {
				joined := make([]any, 0, len(leftList)+len(rightTyped))
				joined = append(joined, leftList...)
				out[key] = append(joined, rightTyped...)
				continue
			}
		}
		out[key] = right
	}
	return out
}

func unionList(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	seen := make(map[any]struct{}, len(a)+len(b))
	for _, list := range [][]any{a, b} {
		for _, entry := range list {
			key := entry
			if !hashable(entry) {
				out = append(out, entry)
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, entry)
		}
	}
	return out
}

func hashable(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}
