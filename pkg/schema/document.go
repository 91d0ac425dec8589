package schema

import (
	"bytes"
	"errors"
	"path"
	"strings"
)

// Encoding describes the surface syntax of a document payload.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// Document wraps a raw payload and its origin.
type Document struct {
	source   Source
	raw      []byte
	encoding Encoding
}

// NewDocument validates the inputs, copies the payload and sniffs whether it
// is JSON or YAML.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, errors.New("schema: raw document is empty")
	}

	clone := append([]byte(nil), raw...)
	return Document{source: src, raw: clone, encoding: sniffEncoding(src, clone)}, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Encoding reports the sniffed payload syntax.
func (d Document) Encoding() Encoding {
	return d.encoding
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// IsZero reports whether the document was never initialised.
func (d Document) IsZero() bool {
	return d.source == nil && len(d.raw) == 0
}

func sniffEncoding(src Source, raw []byte) Encoding {
	if src != nil {
		switch strings.ToLower(path.Ext(src.Location())) {
		case ".yaml", ".yml":
			return EncodingYAML
		case ".json":
			return EncodingJSON
		}
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return EncodingJSON
	}
	return EncodingYAML
}
