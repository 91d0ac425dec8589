package uischema

import (
	"strconv"
	"strings"
)

// Keys understood by the accessors below. Other "ui:" keys are preserved.
const (
	KeyOrder       = "ui:order"
	KeyWidget      = "ui:widget"
	KeyOptions     = "ui:options"
	KeyField       = "ui:field"
	KeyTitle       = "ui:title"
	KeyDescription = "ui:description"
	KeyHelp        = "ui:help"
	KeyPlaceholder = "ui:placeholder"
	KeyVisibleIf   = "ui:visibleIf"
	KeyItems       = "items"
	KeyPrefix      = "ui:"
)

// UISchema is one node of the presentation tree. Children sit under their
// property name, array element hints under "items" (an object, or a list
// for tuples).
type UISchema map[string]any

// Child returns the hints for a named property, nil when none exist.
func (u UISchema) Child(name string) UISchema {
	return asUISchema(u[name])
}

// Items returns the hints shared by every array element.
func (u UISchema) Items() UISchema {
	return asUISchema(u[KeyItems])
}

// ItemAt returns element hints for position idx, honouring tuple lists.
func (u UISchema) ItemAt(idx int) UISchema {
	if list, ok := u[KeyItems].([]any); ok {
		if idx >= 0 && idx < len(list) {
			return asUISchema(list[idx])
		}
		return nil
	}
	return u.Items()
}

// Order returns the ui:order list, nil when unset.
func (u UISchema) Order() []string {
	raw, ok := u[KeyOrder].([]any)
	if !ok {
		if typed, ok := u[KeyOrder].([]string); ok {
			return append([]string(nil), typed...)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if name, ok := entry.(string); ok {
			out = append(out, name)
		}
	}
	return out
}

// Widget returns ui:widget, falling back to ui:options.widget.
func (u UISchema) Widget() string {
	if widget, ok := u[KeyWidget].(string); ok {
		return widget
	}
	widget, _ := u.Options()["widget"].(string)
	return widget
}

// VisibleIf returns the ui:visibleIf rule, empty when the field is always
// shown.
func (u UISchema) VisibleIf() string {
	if rule, ok := u[KeyVisibleIf].(string); ok {
		return strings.TrimSpace(rule)
	}
	rule, _ := u.Options()["visibleIf"].(string)
	return strings.TrimSpace(rule)
}

// Options flattens ui:options together with the other ui: keys of this
// node. Keys inside ui:options win.
func (u UISchema) Options() map[string]any {
	out := map[string]any{}
	for key, value := range u {
		if key == KeyOptions || !strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		out[strings.TrimPrefix(key, KeyPrefix)] = value
	}
	if opts, ok := u[KeyOptions].(map[string]any); ok {
		for key, value := range opts {
			out[key] = value
		}
	}
	return out
}

// Lookup walks a dotted field path ("address.city", "tags.items.label",
// "tags[0].label") to the hints stored for it.
func (u UISchema) Lookup(path string) UISchema {
	normalised := NormalizeFieldPath(path)
	if normalised == "" {
		return u
	}
	current := u
	for _, segment := range strings.Split(normalised, ".") {
		if current == nil {
			return nil
		}
		if segment == KeyItems {
			current = current.Items()
			continue
		}
		if idx, err := strconv.Atoi(segment); err == nil {
			if _, tuple := current[KeyItems].([]any); tuple {
				current = current.ItemAt(idx)
				continue
			}
		}
		current = current.Child(segment)
	}
	return current
}

func asUISchema(value any) UISchema {
	switch typed := value.(type) {
	case UISchema:
		return typed
	case map[string]any:
		return UISchema(typed)
	default:
		return nil
	}
}

// NormalizeFieldPath converts field keys into dot/".items" notation.
func NormalizeFieldPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"[].", ".items.",
		"[]", ".items",
		"[", ".",
		"]", "",
	)
	normalised := replacer.Replace(trimmed)
	normalised = strings.TrimPrefix(normalised, ".")
	for strings.Contains(normalised, "..") {
		normalised = strings.ReplaceAll(normalised, "..", ".")
	}
	return strings.Trim(normalised, ".")
}
