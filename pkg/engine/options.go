package engine

import (
	"log/slog"
	"strings"
)

const (
	defaultIDPrefix    = "root"
	defaultIDSeparator = "_"
	defaultMaxRefDepth = 64
)

// EmptyObjectFields controls which computed property defaults are kept on
// object defaults.
type EmptyObjectFields string

const (
	// PopulateAllDefaults keeps every defined default, including empty
	// nested objects for required properties.
	PopulateAllDefaults EmptyObjectFields = "populateAllDefaults"
	// PopulateRequiredDefaults only keeps object defaults on required
	// properties.
	PopulateRequiredDefaults EmptyObjectFields = "populateRequiredDefaults"
	// SkipEmptyDefaults drops empty nested objects even when required.
	SkipEmptyDefaults EmptyObjectFields = "skipEmptyDefaults"
	// SkipDefaults computes nothing for object properties.
	SkipDefaults EmptyObjectFields = "skipDefaults"
)

// ArrayPopulate controls minItems padding for array defaults.
type ArrayPopulate string

const (
	// PopulateAll pads every array to minItems and defaults missing arrays
	// to an empty list.
	PopulateAll ArrayPopulate = "all"
	// PopulateRequiredOnly pads only arrays whose property is required.
	PopulateRequiredOnly ArrayPopulate = "requiredOnly"
	// PopulateNever never pads and keeps existing form data as-is.
	PopulateNever ArrayPopulate = "never"
)

// ArrayMinItems is the minItems-driven array default policy.
type ArrayMinItems struct {
	Populate ArrayPopulate
	// MergeExtraDefaults appends default entries beyond the length of the
	// existing form data array.
	MergeExtraDefaults bool
}

// Validator decides whether data satisfies a schema. Refs inside node resolve
// against root. pkg/validation provides the default implementation.
type Validator interface {
	IsValid(node map[string]any, data any, root map[string]any) bool
}

// Options is the immutable configuration threaded through every resolution.
type Options struct {
	// IDPrefix is the id of the root field.
	IDPrefix string
	// IDSeparator joins id path segments. It may not contain "%" or the
	// upper-case hex digits used by segment escaping; such separators fall
	// back to the default.
	IDSeparator string
	// IncludeUndefinedValues keeps properties whose computed default is
	// undefined, stored as nil.
	IncludeUndefinedValues bool
	// EmptyObjectFields is the object default inclusion policy.
	EmptyObjectFields EmptyObjectFields
	// ArrayMinItems is the array padding policy.
	ArrayMinItems ArrayMinItems
	// MaxRefDepth caps chained $ref expansion on one path.
	MaxRefDepth int
	// Validator backs combination branch selection and if/then/else.
	Validator Validator
	// Logger receives soft-failure diagnostics.
	Logger *slog.Logger
}

// Option mutates Options prior to construction.
type Option func(*Options)

// WithIDPrefix sets the root id.
func WithIDPrefix(prefix string) Option {
	return func(opts *Options) {
		opts.IDPrefix = prefix
	}
}

// WithIDSeparator sets the id separator.
func WithIDSeparator(separator string) Option {
	return func(opts *Options) {
		opts.IDSeparator = separator
	}
}

// WithIncludeUndefinedValues toggles keeping undefined property defaults.
func WithIncludeUndefinedValues(include bool) Option {
	return func(opts *Options) {
		opts.IncludeUndefinedValues = include
	}
}

// WithEmptyObjectFields sets the object default inclusion policy.
func WithEmptyObjectFields(policy EmptyObjectFields) Option {
	return func(opts *Options) {
		opts.EmptyObjectFields = policy
	}
}

// WithArrayMinItems sets the array padding policy.
func WithArrayMinItems(policy ArrayMinItems) Option {
	return func(opts *Options) {
		opts.ArrayMinItems = policy
	}
}

// WithMaxRefDepth caps chained $ref expansion.
func WithMaxRefDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxRefDepth = depth
	}
}

// WithValidator replaces the branch-selection validator.
func WithValidator(validator Validator) Option {
	return func(opts *Options) {
		opts.Validator = validator
	}
}

// WithLogger routes diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// NewOptions applies options over the defaults.
func NewOptions(options ...Option) Options {
	cfg := Options{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.IDPrefix == "" {
		o.IDPrefix = defaultIDPrefix
	}
	if o.IDSeparator == "" {
		o.IDSeparator = defaultIDSeparator
	}
	if o.EmptyObjectFields == "" {
		o.EmptyObjectFields = PopulateAllDefaults
	}
	if o.ArrayMinItems.Populate == "" {
		o.ArrayMinItems.Populate = PopulateAll
	}
	if o.MaxRefDepth <= 0 {
		o.MaxRefDepth = defaultMaxRefDepth
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if strings.ContainsAny(o.IDSeparator, escapeAlphabet) {
		o.Logger.Warn("engine: id separator clashes with segment escaping, using default", "separator", o.IDSeparator)
		o.IDSeparator = defaultIDSeparator
	}
	return o
}
