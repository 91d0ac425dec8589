package schema

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Source identifies where a schema, uiSchema or form data document came from.
// Loaders switch on Kind; Location is whatever the kind needs to fetch it.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindURL    SourceKind = "url"
	SourceKindInline SourceKind = "inline"
)

type source struct {
	kind     SourceKind
	location string
}

func (s source) Kind() SourceKind {
	return s.kind
}

func (s source) Location() string {
	return s.location
}

func (s source) String() string {
	return string(s.kind) + ":" + s.location
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// SourceFromFS returns a Source naming an entry inside an fs.FS.
func SourceFromFS(name string) Source {
	return source{kind: SourceKindFS, location: strings.TrimPrefix(name, "/")}
}

// SourceFromURL parses the supplied URL string and returns a Source. It panics
// on malformed input so configuration mistakes surface at start-up.
func SourceFromURL(raw string) Source {
	if raw == "" {
		panic("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		panic(fmt.Sprintf("schema: invalid URL %q: %v", raw, err))
	}
	return source{kind: SourceKindURL, location: raw}
}

// SourceInline labels a payload that arrived in-process (HTTP body, CLI
// stdin). The name only shows up in error messages.
func SourceInline(name string) Source {
	if strings.TrimSpace(name) == "" {
		name = "inline"
	}
	return source{kind: SourceKindInline, location: name}
}

// ParseSource maps a CLI-style location to a Source: http(s) URLs become URL
// sources, "-" becomes an inline stdin source, everything else is a file.
func ParseSource(raw string) Source {
	location := strings.TrimSpace(raw)
	switch {
	case location == "":
		return nil
	case location == "-":
		return SourceInline("stdin")
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return SourceFromURL(location)
	default:
		return SourceFromFile(location)
	}
}
