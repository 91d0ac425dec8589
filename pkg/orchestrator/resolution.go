package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/uischema"
)

func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (schema.Document, error) {
	if req.Document != nil {
		return *req.Document, nil
	}
	if req.Source == nil {
		return schema.Document{}, errors.New("orchestrator: source or document is required")
	}
	doc, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return schema.Document{}, fmt.Errorf("orchestrator: load document: %w", err)
	}
	return doc, nil
}

func (o *Orchestrator) resolveAdapter(req Request, doc schema.Document) (schema.FormatAdapter, error) {
	if o.adapterRegistry == nil {
		return nil, errors.New("orchestrator: adapter registry is nil")
	}

	if format := strings.TrimSpace(req.Format); format != "" {
		return o.adapterRegistry.Get(format)
	}

	matches := o.adapterRegistry.Detect(doc.Source(), doc.Raw())
	switch len(matches) {
	case 0:
		if o.defaultAdapter == "" {
			return nil, fmt.Errorf("orchestrator: unable to detect format of %s", doc.Location())
		}
		return o.adapterRegistry.Get(o.defaultAdapter)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("orchestrator: multiple adapters matched payload (%s), specify format", formatAdapterNames(matches))
	}
}

func (o *Orchestrator) uiSchemaFor(ctx context.Context, req Request, formName string) (uischema.UISchema, error) {
	if req.UISchema != nil {
		return req.UISchema, nil
	}
	if req.UISchemaSource != nil {
		doc, err := o.loader.Load(ctx, req.UISchemaSource)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: load ui schema: %w", err)
		}
		ui, err := uischema.Parse(doc.Raw(), doc.Location())
		if err != nil {
			return nil, fmt.Errorf("orchestrator: %w", err)
		}
		return ui, nil
	}
	if o.uiStore == nil {
		return nil, nil
	}
	for _, key := range []string{req.FormID, formName} {
		if key == "" {
			continue
		}
		if ui, ok := o.uiStore.Form(key); ok {
			return ui, nil
		}
	}
	return nil, nil
}

func (o *Orchestrator) formDataFor(ctx context.Context, req Request) (any, error) {
	if req.FormData != nil || req.FormDataSource == nil {
		return req.FormData, nil
	}
	doc, err := o.loader.Load(ctx, req.FormDataSource)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load form data: %w", err)
	}
	value, err := schema.Decode(doc.Raw(), doc.Encoding())
	if err != nil {
		return nil, fmt.Errorf("orchestrator: form data: %w", err)
	}
	return value, nil
}

func formatAdapterNames(adapters []schema.FormatAdapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		if name := strings.TrimSpace(adapter.Name()); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
