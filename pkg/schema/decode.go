package schema

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Decode parses a JSON or YAML payload into JSON-compatible values: objects
// become map[string]any, arrays []any and every number float64.
func Decode(raw []byte, enc Encoding) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("schema: payload is empty")
	}

	if enc != EncodingYAML {
		var value any
		err := json.Unmarshal(trimmed, &value)
		if err == nil {
			return value, nil
		}
		if enc == EncodingJSON {
			return nil, fmt.Errorf("schema: parse json: %w", err)
		}
	}

	var value any
	if err := yaml.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("schema: parse yaml: %w", err)
	}
	return normalizeYAML(value)
}

// DecodeDocument decodes a document that must hold a single JSON object.
func DecodeDocument(doc Document) (map[string]any, error) {
	value, err := Decode(doc.raw, doc.encoding)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, doc.Location())
	}
	node, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema: %s is not an object", doc.Location())
	}
	return node, nil
}

func normalizeYAML(value any) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		for key, entry := range typed {
			normalized, err := normalizeYAML(entry)
			if err != nil {
				return nil, err
			}
			typed[key] = normalized
		}
		return typed, nil
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, entry := range typed {
			name, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("schema: non-string key %v", key)
			}
			normalized, err := normalizeYAML(entry)
			if err != nil {
				return nil, err
			}
			out[name] = normalized
		}
		return out, nil
	case []any:
		for idx, entry := range typed {
			normalized, err := normalizeYAML(entry)
			if err != nil {
				return nil, err
			}
			typed[idx] = normalized
		}
		return typed, nil
	case int:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case uint64:
		return float64(typed), nil
	default:
		return typed, nil
	}
}
