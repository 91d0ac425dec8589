package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	json "github.com/goccy/go-json"

	internalLoader "github.com/goliatone/go-formstate/internal/loader"
	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/uischema"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects the loader used for schema, uiSchema and form data
// sources.
func WithLoader(loader schema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithAdapterRegistry replaces the adapter registry.
func WithAdapterRegistry(registry *AdapterRegistry) Option {
	return func(o *Orchestrator) {
		o.adapterRegistry = registry
	}
}

// WithAdapters registers format adapters on the orchestrator's registry.
func WithAdapters(adapters ...schema.FormatAdapter) Option {
	return func(o *Orchestrator) {
		o.pendingAdapters = append(o.pendingAdapters, adapters...)
	}
}

// AdapterFactory builds an adapter around the orchestrator's loader.
type AdapterFactory func(loader schema.Loader) schema.FormatAdapter

// WithAdapterFactories registers adapters that need the loader the
// orchestrator ends up with, whether injected or defaulted.
func WithAdapterFactories(factories ...AdapterFactory) Option {
	return func(o *Orchestrator) {
		o.adapterFactories = append(o.adapterFactories, factories...)
	}
}

// WithDefaultAdapter names the adapter used when detection finds nothing.
func WithDefaultAdapter(name string) Option {
	return func(o *Orchestrator) {
		o.defaultAdapter = name
	}
}

// WithEngine injects a configured engine.
func WithEngine(e *engine.Engine) Option {
	return func(o *Orchestrator) {
		o.engine = e
	}
}

// WithEngineOptions configures the default engine. Ignored when WithEngine
// is also supplied.
func WithEngineOptions(options ...engine.Option) Option {
	return func(o *Orchestrator) {
		o.engineOptions = append(o.engineOptions, options...)
	}
}

// WithValidator injects the validator used by Check.
func WithValidator(v *validation.Validator) Option {
	return func(o *Orchestrator) {
		o.validator = v
	}
}

// WithSchemaTransformer registers a Transformer applied to every normalized
// schema before resolution.
func WithSchemaTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.transformers = append(o.transformers, t)
		}
	}
}

// WithUISchemaFS supplies an fs.FS holding uiSchema documents keyed by form
// id. Requests without an explicit uiSchema pick theirs from this store.
func WithUISchemaFS(fsys fs.FS) Option {
	return func(o *Orchestrator) {
		o.uiSchemaFS = fsys
	}
}

// WithLogger sets the structured logger shared with the default engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// Orchestrator coordinates load → detect → normalize → resolve. Missing
// dependencies are initialised with the built-in implementations.
type Orchestrator struct {
	loader           schema.Loader
	adapterRegistry  *AdapterRegistry
	pendingAdapters  []schema.FormatAdapter
	adapterFactories []AdapterFactory
	defaultAdapter   string
	engine           *engine.Engine
	engineOptions    []engine.Option
	validator        *validation.Validator
	transformers     []Transformer
	uiSchemaFS       fs.FS
	uiStore          *uischema.Store
	logger           *slog.Logger
	initialiseErr    error
}

// New constructs an Orchestrator. Adapters come from WithAdapters or
// WithAdapterRegistry; the root formstate package supplies both stock ones.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	o.applyDefaults()
	return o
}

// Request describes one resolution.
type Request struct {
	// Source identifies where the schema document lives. Optional when
	// Document is supplied.
	Source schema.Source
	// Document bypasses the loader.
	Document *schema.Document
	// Format forces an adapter by name and skips detection.
	Format string
	// FormID selects a form in documents that offer several.
	FormID string
	// ContentType picks an OpenAPI request body media type.
	ContentType string

	// UISchema is used as is when set; otherwise UISchemaSource is loaded,
	// then the WithUISchemaFS store is consulted by form name.
	UISchema       uischema.UISchema
	UISchemaSource schema.Source

	// FormData is used as is when set; otherwise FormDataSource is loaded.
	FormData       any
	FormDataSource schema.Source
}

// Result is the engine result plus the name and normalized root schema it
// was computed from. It encodes as the engine result's fields plus "name".
type Result struct {
	State      engine.Result
	Name       string
	RootSchema map[string]any
}

// MarshalJSON emits the flat result object. The engine result is placed in a
// map so its field tree is encoded through its own type.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"name":     r.Name,
		"schema":   r.State.Schema,
		"formData": r.State.FormData,
		"idSchema": r.State.IDSchema,
		"fields":   r.State.Root,
		"outcome":  r.State.Outcome,
	})
}

// Resolve runs the full pipeline.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (Result, error) {
	in, root, err := o.Prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}
	result := o.engine.Resolve(in)
	if result.Outcome != engine.Resolved {
		o.logger.Warn("orchestrator: resolution degraded", "form", root.Name, "outcome", result.Outcome.String())
	}
	return Result{State: result, Name: root.Name, RootSchema: root.Root}, nil
}

// Prepare normalizes the document and gathers the uiSchema and form data,
// returning the engine input Resolve would run. Interactive callers use it
// to resolve repeatedly as the data changes.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (engine.Input, schema.RootSchema, error) {
	root, err := o.Normalize(ctx, req)
	if err != nil {
		return engine.Input{}, schema.RootSchema{}, err
	}
	ui, err := o.uiSchemaFor(ctx, req, root.Name)
	if err != nil {
		return engine.Input{}, schema.RootSchema{}, err
	}
	formData, err := o.formDataFor(ctx, req)
	if err != nil {
		return engine.Input{}, schema.RootSchema{}, err
	}
	return engine.Input{
		Schema:     root.Schema,
		UISchema:   ui,
		FormData:   formData,
		RootSchema: root.Root,
	}, root, nil
}

// Normalize loads the document, picks an adapter and returns the form's
// root schema with every transformer applied.
func (o *Orchestrator) Normalize(ctx context.Context, req Request) (schema.RootSchema, error) {
	if err := o.ready(ctx); err != nil {
		return schema.RootSchema{}, err
	}
	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return schema.RootSchema{}, err
	}
	adapter, err := o.resolveAdapter(req, doc)
	if err != nil {
		return schema.RootSchema{}, err
	}

	root, err := adapter.Normalize(ctx, doc, schema.NormalizeOptions{FormID: req.FormID, ContentType: req.ContentType})
	if err != nil {
		return schema.RootSchema{}, fmt.Errorf("orchestrator: normalize %s: %w", adapter.Name(), err)
	}
	o.logger.Debug("orchestrator: normalized", "adapter", adapter.Name(), "form", root.Name, "source", doc.Location())

	if len(o.transformers) == 0 {
		return root, nil
	}
	root.Schema = schema.CloneNode(root.Schema)
	root.Root = schema.CloneNode(root.Root)
	for _, t := range o.transformers {
		if err := t.Transform(ctx, &root); err != nil {
			return schema.RootSchema{}, fmt.Errorf("orchestrator: transform schema: %w", err)
		}
	}
	return root, nil
}

// Forms lists the forms a document offers.
func (o *Orchestrator) Forms(ctx context.Context, req Request) ([]schema.FormRef, error) {
	if err := o.ready(ctx); err != nil {
		return nil, err
	}
	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	adapter, err := o.resolveAdapter(req, doc)
	if err != nil {
		return nil, err
	}
	refs, err := adapter.Forms(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list forms: %w", err)
	}
	return refs, nil
}

// Check normalizes the document and validates the form schema against its
// metaschema.
func (o *Orchestrator) Check(ctx context.Context, req Request) (validation.SchemaValidationResult, error) {
	root, err := o.Normalize(ctx, req)
	if err != nil {
		return validation.SchemaValidationResult{}, err
	}
	return o.validator.CheckSchema(root), nil
}

// Engine exposes the configured engine.
func (o *Orchestrator) Engine() *engine.Engine {
	return o.engine
}

// Loader exposes the configured loader.
func (o *Orchestrator) Loader() schema.Loader {
	return o.loader
}

func (o *Orchestrator) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.initialiseErr
}

func (o *Orchestrator) applyDefaults() {
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.loader == nil {
		o.loader = internalLoader.New(schema.NewLoaderOptions())
	}
	if o.adapterRegistry == nil {
		o.adapterRegistry = NewAdapterRegistry()
	}
	for _, factory := range o.adapterFactories {
		if factory != nil {
			o.pendingAdapters = append(o.pendingAdapters, factory(o.loader))
		}
	}
	for _, adapter := range o.pendingAdapters {
		if err := o.adapterRegistry.Register(adapter); err != nil {
			o.initialiseErr = err
			return
		}
	}
	o.pendingAdapters = nil
	o.adapterFactories = nil

	if o.engine == nil {
		options := append([]engine.Option{engine.WithLogger(o.logger)}, o.engineOptions...)
		o.engine = engine.New(options...)
	}
	if o.validator == nil {
		o.validator = validation.New(validation.WithLogger(o.logger))
	}

	store, err := uischema.LoadFS(o.uiSchemaFS)
	if err != nil {
		o.initialiseErr = fmt.Errorf("orchestrator: load ui schema: %w", err)
		return
	}
	o.uiStore = store
}
