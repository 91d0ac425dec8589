package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// Loader implements schema.Loader by delegating to file, fs.FS, or HTTP
// strategies.
type Loader struct {
	fs        fs.FS
	http      *http.Client
	allowHTTP bool
	timeout   time.Duration
	maxBytes  int64
}

var _ schema.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options schema.LoaderOptions) *Loader {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTPFallback:
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Loader{
		fs:        options.FileSystem,
		http:      httpClient,
		allowHTTP: httpClient != nil,
		timeout:   timeout,
		maxBytes:  options.MaxDocumentBytes,
	}
}

// Load fetches a document from the provided source and wraps it in a Document.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src == nil {
		return schema.Document{}, errors.New("loader: source is nil")
	}

	var (
		data []byte
		err  error
	)

	switch src.Kind() {
	case schema.SourceKindFile:
		data, err = loadFile(ctx, src.Location())
	case schema.SourceKindFS:
		data, err = loadFromFS(ctx, l.fs, src.Location())
	case schema.SourceKindURL:
		if !l.allowHTTP {
			return schema.Document{}, fmt.Errorf("loader: http support disabled (%s)", src.Location())
		}
		data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout, l.maxBytes)
	case schema.SourceKindInline:
		err = fmt.Errorf("loader: inline source %q has no backing store", src.Location())
	default:
		err = fmt.Errorf("loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return schema.Document{}, err
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return schema.Document{}, fmt.Errorf("loader: %s exceeds %d bytes", src.Location(), l.maxBytes)
	}

	return schema.NewDocument(src, data)
}
