package schema

import "strings"

// Type is the effective JSON Schema type of a node. TypeUnknown means the
// type could not be determined; renderers treat it as an unsupported field.
type Type int

const (
	TypeUnknown Type = iota
	TypeObject
	TypeArray
	TypeString
	TypeNumber
	TypeInteger
	TypeBoolean
	TypeNull
)

var typeNames = [...]string{
	TypeUnknown: "",
	TypeObject:  "object",
	TypeArray:   "array",
	TypeString:  "string",
	TypeNumber:  "number",
	TypeInteger: "integer",
	TypeBoolean: "boolean",
	TypeNull:    "null",
}

// String returns the JSON Schema spelling, or "" for TypeUnknown.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return ""
	}
	return typeNames[t]
}

// MarshalText keeps the JSON spelling when a Type is encoded.
func (t Type) MarshalText() ([]byte, error) {
	if t == TypeUnknown {
		return []byte("unknown"), nil
	}
	return []byte(t.String()), nil
}

// IsScalar reports whether values of this type have no children.
func (t Type) IsScalar() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeNull:
		return true
	default:
		return false
	}
}

// ParseType maps a JSON Schema type name to a Type.
func ParseType(name string) Type {
	switch strings.TrimSpace(name) {
	case "object":
		return TypeObject
	case "array":
		return TypeArray
	case "string":
		return TypeString
	case "number":
		return TypeNumber
	case "integer":
		return TypeInteger
	case "boolean":
		return TypeBoolean
	case "null":
		return TypeNull
	default:
		return TypeUnknown
	}
}

// Classification is the outcome of classifying a schema node.
type Classification struct {
	// Type is the type used for rendering: the first non-null entry of a type
	// union.
	Type Type
	// Nullable is set when null is part of the declared union or the node
	// carries OpenAPI's nullable flag.
	Nullable bool
	// Types lists every declared type in order, null included.
	Types []Type
}

// Known reports whether a concrete type was determined.
func (c Classification) Known() bool {
	return c.Type != TypeUnknown
}

// TypeOf is shorthand for Classify(node).Type.
func TypeOf(node map[string]any) Type {
	return Classify(node).Type
}

// Classify determines the effective type of a schema node, inferring it from
// properties, items, const or enum when "type" is absent.
func Classify(node map[string]any) Classification {
	if node == nil {
		return Classification{}
	}
	out := Classification{Nullable: Bool(node, KeyNullable)}

	switch declared := node[KeyType].(type) {
	case string:
		t := ParseType(declared)
		out.Types = []Type{t}
		if t == TypeNull {
			out.Nullable = true
		}
		out.Type = t
		return out
	case []any:
		for _, entry := range declared {
			name, ok := entry.(string)
			if !ok {
				continue
			}
			t := ParseType(name)
			if t == TypeUnknown {
				continue
			}
			out.Types = append(out.Types, t)
			if t == TypeNull {
				out.Nullable = true
				continue
			}
			if out.Type == TypeUnknown {
				out.Type = t
			}
		}
		if out.Type == TypeUnknown && out.Nullable {
			out.Type = TypeNull
		}
		return out
	}

	switch {
	case Has(node, KeyProperties), Has(node, KeyAdditionalProperties):
		out.Type = TypeObject
	case Has(node, KeyItems):
		out.Type = TypeArray
	case Has(node, KeyConst):
		out.Type = GuessType(node[KeyConst])
	default:
		if enum, ok := List(node, KeyEnum); ok && len(enum) > 0 {
			out.Type = GuessType(enum[0])
		}
	}
	if out.Type != TypeUnknown {
		out.Types = []Type{out.Type}
	}
	return out
}

// GuessType maps a runtime value to the type a schema for it would declare.
func GuessType(value any) Type {
	switch value.(type) {
	case nil:
		return TypeNull
	case map[string]any:
		return TypeObject
	case []any:
		return TypeArray
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case float64, float32:
		return TypeNumber
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	default:
		return TypeString
	}
}
