package schema

import (
	"net/url"
	"sort"
	"strings"
)

// JSON Schema keywords the engine understands.
const (
	KeyRef                  = "$ref"
	KeyDefs                 = "$defs"
	KeyDefinitions          = "definitions"
	KeyType                 = "type"
	KeyProperties           = "properties"
	KeyItems                = "items"
	KeyAdditionalItems      = "additionalItems"
	KeyAdditionalProperties = "additionalProperties"
	KeyRequired             = "required"
	KeyDefault              = "default"
	KeyEnum                 = "enum"
	KeyConst                = "const"
	KeyOneOf                = "oneOf"
	KeyAnyOf                = "anyOf"
	KeyAllOf                = "allOf"
	KeyDependencies         = "dependencies"
	KeyIf                   = "if"
	KeyThen                 = "then"
	KeyElse                 = "else"
	KeyMinItems             = "minItems"
	KeyUniqueItems          = "uniqueItems"
	KeyDiscriminator        = "discriminator"
	KeyNullable             = "nullable"
	KeyTitle                = "title"
	KeyDescription          = "description"

	// AdditionalPropertyFlag marks property schemas synthesised from
	// additionalProperties for keys that only exist in form data.
	AdditionalPropertyFlag = "__additional_property"
)

// Node returns value as a schema node when it is a JSON object.
func Node(value any) (map[string]any, bool) {
	node, ok := value.(map[string]any)
	return node, ok
}

// Has reports whether node declares key.
func Has(node map[string]any, key string) bool {
	if node == nil {
		return false
	}
	_, ok := node[key]
	return ok
}

// String reads a string keyword, returning "" when absent or mistyped.
func String(node map[string]any, key string) string {
	if node == nil {
		return ""
	}
	value, _ := node[key].(string)
	return value
}

// Child reads a keyword holding a subschema.
func Child(node map[string]any, key string) (map[string]any, bool) {
	if node == nil {
		return nil, false
	}
	return Node(node[key])
}

// List reads a keyword holding an array.
func List(node map[string]any, key string) ([]any, bool) {
	if node == nil {
		return nil, false
	}
	list, ok := node[key].([]any)
	return list, ok
}

// Properties returns the properties map of an object schema.
func Properties(node map[string]any) map[string]any {
	props, _ := Child(node, KeyProperties)
	return props
}

// Property returns the schema declared for a single property.
func Property(node map[string]any, name string) (map[string]any, bool) {
	return Node(Properties(node)[name])
}

// Required returns the string entries of the required keyword.
func Required(node map[string]any) []string {
	list, ok := List(node, KeyRequired)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if name, ok := item.(string); ok {
			out = append(out, name)
		}
	}
	return out
}

// IsRequired reports whether name is listed in node.required.
func IsRequired(node map[string]any, name string) bool {
	for _, entry := range Required(node) {
		if entry == name {
			return true
		}
	}
	return false
}

// Int reads a non-negative integral keyword such as minItems.
func Int(node map[string]any, key string) (int, bool) {
	if node == nil {
		return 0, false
	}
	switch value := node[key].(type) {
	case float64:
		if value < 0 || value != float64(int(value)) {
			return 0, false
		}
		return int(value), true
	case int:
		return value, value >= 0
	case int64:
		return int(value), value >= 0
	default:
		return 0, false
	}
}

// Bool reads a boolean keyword.
func Bool(node map[string]any, key string) bool {
	if node == nil {
		return false
	}
	value, _ := node[key].(bool)
	return value
}

// Without returns a shallow copy of node minus the listed keys.
func Without(node map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(node))
	for key, value := range node {
		out[key] = value
	}
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// SortedKeys returns the keys of a map in lexical order.
func SortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies a JSON-compatible value tree.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[key] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, val := range typed {
			out[idx] = Clone(val)
		}
		return out
	default:
		return typed
	}
}

// CloneNode deep-copies a schema node.
func CloneNode(node map[string]any) map[string]any {
	if node == nil {
		return nil
	}
	return Clone(node).(map[string]any)
}

// DiscriminatorField returns discriminator.propertyName when declared.
func DiscriminatorField(node map[string]any) string {
	disc, ok := Child(node, KeyDiscriminator)
	if !ok {
		return ""
	}
	return strings.TrimSpace(String(disc, "propertyName"))
}

// EscapePointer escapes a single JSON Pointer segment.
func EscapePointer(segment string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(segment)
}

// UnescapePointer reverses EscapePointer and percent-decoding for one segment.
func UnescapePointer(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", err
	}
	decoded = strings.ReplaceAll(decoded, "~1", "/")
	return strings.ReplaceAll(decoded, "~0", "~"), nil
}

// JoinPointer appends escaped segments to a "#"-rooted pointer.
func JoinPointer(pointer string, segments ...string) string {
	if pointer == "" {
		pointer = "#"
	}
	for _, segment := range segments {
		pointer += "/" + EscapePointer(segment)
	}
	return pointer
}
