package uischema

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	keyOperations = "operations"
	keyFields     = "fields"
	keyPresets    = "fieldOrderPresets"
)

// Store keeps the uiSchemas parsed from a directory, keyed by form id. It is
// safe for concurrent readers once built.
type Store struct {
	forms map[string]UISchema
}

// Parse decodes one uiSchema document, JSON first and YAML as a fallback.
// A top-level "fields" map of dotted paths is folded into the tree.
func Parse(data []byte, source string) (UISchema, error) {
	raw, err := decode(data, source)
	if err != nil {
		return nil, err
	}
	return normaliseForm(raw, source, nil)
}

// LoadFS walks fsys for JSON/YAML uiSchema files. A file holding an
// "operations" map contributes one form per entry; any other file is a
// single form keyed by its base name. A nil fsys yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]UISchema)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(name) {
			return nil
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("uischema: read %s: %w", name, err)
		}
		raw, err := decode(data, name)
		if err != nil {
			return err
		}

		operations, ok := raw[keyOperations].(map[string]any)
		if !ok {
			id := strings.TrimSuffix(path.Base(name), path.Ext(name))
			return store.add(id, raw, name, nil)
		}

		presets, err := normalisePresets(raw[keyPresets], name)
		if err != nil {
			return err
		}
		for opID, value := range operations {
			form, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("uischema: operation %q (file %s) is not an object", opID, name)
			}
			if err := store.add(opID, form, name, presets); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) add(id string, raw map[string]any, source string, presets map[string][]string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("uischema: file %s defines an empty form id", source)
	}
	if _, exists := s.forms[id]; exists {
		return fmt.Errorf("uischema: duplicate form %q (file %s)", id, source)
	}
	form, err := normaliseForm(raw, source, presets)
	if err != nil {
		return err
	}
	s.forms[id] = form
	return nil
}

// Form returns the uiSchema registered under id.
func (s *Store) Form(id string) (UISchema, bool) {
	if s == nil {
		return nil, false
	}
	form, ok := s.forms[id]
	return form, ok
}

// IDs lists the registered form ids in lexical order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

func decode(data []byte, source string) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("uischema: file %s is empty", source)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	doc = nil
	if err := yaml.Unmarshal(data, &doc); err == nil && doc != nil {
		return doc, nil
	}
	return nil, fmt.Errorf("uischema: parse %s: invalid JSON or YAML object", source)
}

// normaliseForm folds the flat "fields" overlay into the tree and expands
// ui:order values that name a preset.
func normaliseForm(raw map[string]any, source string, presets map[string][]string) (UISchema, error) {
	form := UISchema(cloneTree(raw).(map[string]any))

	if fields, ok := form[keyFields].(map[string]any); ok {
		delete(form, keyFields)
		seen := make(map[string]string, len(fields))
		for _, key := range sortedKeys(fields) {
			normalised := NormalizeFieldPath(key)
			if normalised == "" {
				return nil, fmt.Errorf("uischema: file %s field key %q normalises to empty path", source, key)
			}
			if prev, dup := seen[normalised]; dup {
				return nil, fmt.Errorf("uischema: file %s defines duplicate field path %q (%q and %q)", source, normalised, prev, key)
			}
			seen[normalised] = key
			hints, ok := fields[key].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("uischema: file %s field %q is not an object", source, key)
			}
			setPath(form, strings.Split(normalised, "."), hints)
		}
	}

	if err := expandPresets(form, source, presets); err != nil {
		return nil, err
	}
	return form, nil
}

func setPath(node map[string]any, segments []string, hints map[string]any) {
	for _, segment := range segments {
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[segment] = child
		}
		node = child
	}
	for key, value := range hints {
		node[key] = value
	}
}

func expandPresets(node map[string]any, source string, presets map[string][]string) error {
	if name, ok := node[KeyOrder].(string); ok {
		preset, ok := presets[strings.TrimSpace(name)]
		if !ok {
			return fmt.Errorf("uischema: file %s references unknown order preset %q", source, name)
		}
		order := make([]any, len(preset))
		for idx, entry := range preset {
			order[idx] = entry
		}
		node[KeyOrder] = order
	}
	for key, value := range node {
		if strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		switch typed := value.(type) {
		case map[string]any:
			if err := expandPresets(typed, source, presets); err != nil {
				return err
			}
		case []any:
			for _, entry := range typed {
				if child, ok := entry.(map[string]any); ok {
					if err := expandPresets(child, source, presets); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func normalisePresets(raw any, source string) (map[string][]string, error) {
	entries, ok := raw.(map[string]any)
	if !ok || len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(entries))
	for name, value := range entries {
		trimmedName := strings.TrimSpace(name)
		if trimmedName == "" {
			return nil, fmt.Errorf("uischema: file %s defines a fieldOrderPresets entry with an empty name", source)
		}
		list, ok := value.([]any)
		if !ok || len(list) == 0 {
			return nil, fmt.Errorf("uischema: file %s preset %q is empty", source, trimmedName)
		}
		cloned := make([]string, len(list))
		for idx, entry := range list {
			text, _ := entry.(string)
			text = strings.TrimSpace(text)
			if text == "" {
				return nil, fmt.Errorf("uischema: file %s preset %q contains an empty entry at index %d", source, trimmedName, idx)
			}
			cloned[idx] = text
		}
		out[trimmedName] = cloned
	}
	return out, nil
}

func cloneTree(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[key] = cloneTree(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, val := range typed {
			out[idx] = cloneTree(val)
		}
		return out
	default:
		return typed
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func isSchemaFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
