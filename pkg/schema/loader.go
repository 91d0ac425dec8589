package schema

import (
	"context"
	"io/fs"
	"net/http"
	"time"
)

// Loader fetches raw documents (schemas, uiSchemas, form data). The concrete
// implementation lives in internal/loader.
type Loader interface {
	Load(ctx context.Context, src Source) (Document, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, src Source) (Document, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, src Source) (Document, error) {
	return f(ctx, src)
}

// LoaderOptions configures how a Loader resolves sources.
type LoaderOptions struct {
	// FileSystem backs SourceKindFS locations.
	FileSystem fs.FS

	// HTTPClient is used for URL sources. Nil means URL sources are disabled
	// unless AllowHTTPFallback is set.
	HTTPClient *http.Client

	// AllowHTTPFallback enables URL loading with a default client.
	AllowHTTPFallback bool

	// RequestTimeout caps remote fetches.
	RequestTimeout time.Duration

	// MaxDocumentBytes rejects larger payloads. Zero means no limit.
	MaxDocumentBytes int64
}

// LoaderOption mutates LoaderOptions prior to construction.
type LoaderOption func(*LoaderOptions)

// WithFileSystem injects an fs.FS for SourceKindFS locations.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.FileSystem = files
	}
}

// WithHTTPClient injects a custom HTTP client for remote documents.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.HTTPClient = client
	}
}

// WithHTTPFallback enables HTTP loading with a default client and an optional
// timeout.
func WithHTTPFallback(timeout time.Duration) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.AllowHTTPFallback = true
		opts.RequestTimeout = timeout
	}
}

// WithMaxDocumentBytes caps the size of any loaded document.
func WithMaxDocumentBytes(limit int64) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.MaxDocumentBytes = limit
	}
}

// NewLoaderOptions applies options in order.
func NewLoaderOptions(options ...LoaderOption) LoaderOptions {
	cfg := LoaderOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
