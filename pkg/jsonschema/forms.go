package jsonschema

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// ExtensionKey names the vendor extension that declares several forms in
// one schema document.
const ExtensionKey = "x-formstate"

// form is a discovered form: its public ref plus the pointer of the subschema
// it edits ("" for the document root).
type form struct {
	schema.FormRef
	Pointer string
}

// DiscoverForms lists the forms a JSON Schema document offers. Forms come
// from x-formstate.forms when present; otherwise the document itself is one
// form identified by $id, then title, then the source file name.
func DiscoverForms(payload map[string]any, src schema.Source) ([]schema.FormRef, error) {
	forms, err := discoverForms(payload, src)
	if err != nil {
		return nil, err
	}
	refs := make([]schema.FormRef, 0, len(forms))
	for _, f := range forms {
		refs = append(refs, f.FormRef)
	}
	return refs, nil
}

func discoverForms(payload map[string]any, src schema.Source) ([]form, error) {
	if payload == nil {
		return nil, errors.New("jsonschema: schema is nil")
	}

	if forms, ok, err := formsFromExtension(payload); err != nil {
		return nil, err
	} else if ok {
		return forms, nil
	}

	ref := schema.FormRef{
		ID:          strings.TrimSpace(schema.String(payload, "$id")),
		Title:       strings.TrimSpace(schema.String(payload, schema.KeyTitle)),
		Description: strings.TrimSpace(schema.String(payload, schema.KeyDescription)),
	}
	if ref.ID == "" {
		ref.ID = ref.Title
	}
	if ref.ID == "" && src != nil {
		base := path.Base(strings.ReplaceAll(src.Location(), "\\", "/"))
		ref.ID = strings.TrimSuffix(base, path.Ext(base))
	}
	if ref.ID == "" {
		ref.ID = DefaultAdapterName
	}
	return []form{{FormRef: ref}}, nil
}

func formsFromExtension(payload map[string]any) ([]form, bool, error) {
	raw, ok := payload[ExtensionKey]
	if !ok {
		return nil, false, nil
	}
	meta, ok := raw.(map[string]any)
	if !ok {
		return nil, true, fmt.Errorf("jsonschema: %s must be an object", ExtensionKey)
	}
	list, ok := schema.List(meta, "forms")
	if !ok {
		return nil, false, nil
	}
	if len(list) == 0 {
		return nil, true, fmt.Errorf("jsonschema: %s.forms is empty", ExtensionKey)
	}

	forms := make([]form, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for idx, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, true, fmt.Errorf("jsonschema: %s.forms[%d] must be an object", ExtensionKey, idx)
		}
		id := strings.TrimSpace(schema.String(entry, "id"))
		if id == "" {
			return nil, true, fmt.Errorf("jsonschema: %s.forms[%d].id is required", ExtensionKey, idx)
		}
		if _, dup := seen[id]; dup {
			return nil, true, fmt.Errorf("jsonschema: duplicate form id %q", id)
		}
		seen[id] = struct{}{}

		pointer := strings.TrimSpace(schema.String(entry, "schema"))
		if pointer != "" && !strings.HasPrefix(pointer, "#") {
			return nil, true, fmt.Errorf("jsonschema: %s.forms[%d].schema must be a local ref", ExtensionKey, idx)
		}
		forms = append(forms, form{
			FormRef: schema.FormRef{
				ID:          id,
				Title:       strings.TrimSpace(schema.String(entry, schema.KeyTitle)),
				Description: strings.TrimSpace(schema.String(entry, schema.KeyDescription)),
			},
			Pointer: pointer,
		})
	}
	return forms, true, nil
}

func selectForm(forms []form, id string) (form, error) {
	if id == "" {
		if len(forms) == 1 {
			return forms[0], nil
		}
		return form{}, fmt.Errorf("jsonschema: document declares %d forms, pick one by id", len(forms))
	}
	for _, f := range forms {
		if f.ID == id {
			return f, nil
		}
	}
	return form{}, fmt.Errorf("jsonschema: form %q not found", id)
}
