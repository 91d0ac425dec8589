package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
)

const defaultMaxDocuments = 128

// BundleOptions configures cross-document $ref bundling.
type BundleOptions struct {
	// AllowHTTPRefs toggles HTTP/HTTPS ref resolution.
	AllowHTTPRefs bool
	// AllowPathTraversal permits refs to escape the root document's directory.
	AllowPathTraversal bool
	// MaxDocuments caps the number of documents pulled into one bundle.
	MaxDocuments int
}

// Bundler rewrites a schema so every $ref is local: referenced documents are
// copied under the root's $defs and refs into them become "#/$defs/<name>/..".
// Anchor refs ("#name") are rewritten to JSON pointers. Local pointer refs
// are left alone, including cyclic ones.
type Bundler struct {
	loader schema.Loader
	opts   BundleOptions
}

type bundleSession struct {
	loader schema.Loader
	opts   BundleOptions
	root   *bundledDocument
	docs   map[string]*bundledDocument
	defs   map[string]any
	taken  map[string]struct{}
}

type bundledDocument struct {
	key      string
	kind     schema.SourceKind
	location string
	baseDir  string
	name     string
	data     map[string]any
	anchors  map[string]string
}

// NewBundler constructs a bundler that fetches referenced documents through
// loader. A nil loader still bundles anchors but fails on external refs.
func NewBundler(loader schema.Loader, opts BundleOptions) *Bundler {
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = defaultMaxDocuments
	}
	return &Bundler{loader: loader, opts: opts}
}

// Bundle returns a copy of payload with every external $ref inlined.
func (b *Bundler) Bundle(ctx context.Context, doc schema.Document, payload map[string]any) (map[string]any, error) {
	if b == nil {
		return nil, errors.New("jsonschema bundle: bundler is nil")
	}
	if payload == nil {
		return nil, errors.New("jsonschema bundle: payload is nil")
	}
	if doc.Source() == nil {
		return nil, errors.New("jsonschema bundle: source is nil")
	}

	session := &bundleSession{
		loader: b.loader,
		opts:   b.opts,
		docs:   make(map[string]*bundledDocument),
		defs:   make(map[string]any),
		taken:  make(map[string]struct{}),
	}

	out := schema.CloneNode(payload)
	root, err := session.register(doc.Source(), out)
	if err != nil {
		return nil, err
	}
	session.root = root
	if existing, ok := schema.Child(out, schema.KeyDefs); ok {
		for name := range existing {
			session.taken[name] = struct{}{}
		}
	}

	if err := session.rewrite(ctx, root, out); err != nil {
		return nil, err
	}
	if len(session.defs) == 0 {
		return out, nil
	}

	defs, ok := schema.Child(out, schema.KeyDefs)
	if !ok {
		defs = make(map[string]any, len(session.defs))
	}
	for name, value := range session.defs {
		defs[name] = value
	}
	out[schema.KeyDefs] = defs
	return out, nil
}

func (s *bundleSession) register(src schema.Source, data map[string]any) (*bundledDocument, error) {
	key, location, baseDir, err := canonicalLocation(src)
	if err != nil {
		return nil, err
	}
	anchors := make(map[string]string)
	if err := indexAnchors(data, "", anchors); err != nil {
		return nil, err
	}
	doc := &bundledDocument{
		key:      key,
		kind:     src.Kind(),
		location: location,
		baseDir:  baseDir,
		data:     data,
		anchors:  anchors,
	}
	s.docs[key] = doc
	return doc, nil
}

// rewrite walks value in place. Keywords holding instance data are skipped.
func (s *bundleSession) rewrite(ctx context.Context, doc *bundledDocument, value any) error {
	switch typed := value.(type) {
	case map[string]any:
		if ref, ok := typed[schema.KeyRef].(string); ok {
			local, err := s.localRef(ctx, doc, strings.TrimSpace(ref))
			if err != nil {
				return err
			}
			typed[schema.KeyRef] = local
		}
		for key, child := range typed {
			if isDataKeyword(key) {
				continue
			}
			if err := s.rewrite(ctx, doc, child); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range typed {
			if err := s.rewrite(ctx, doc, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *bundleSession) localRef(ctx context.Context, doc *bundledDocument, ref string) (string, error) {
	refPath, fragment := splitRef(ref)
	target := doc
	if refPath != "" {
		loaded, err := s.resolveDocument(ctx, doc, refPath)
		if err != nil {
			return "", err
		}
		target = loaded
	}

	pointer, err := target.pointer(fragment)
	if err != nil {
		return "", fmt.Errorf("jsonschema bundle: %s: %w", ref, err)
	}
	if target == s.root {
		return "#" + pointer, nil
	}
	return schema.JoinPointer("#", schema.KeyDefs, target.name) + pointer, nil
}

func (s *bundleSession) resolveDocument(ctx context.Context, doc *bundledDocument, refPath string) (*bundledDocument, error) {
	parsed, err := url.Parse(refPath)
	if err != nil {
		return nil, fmt.Errorf("jsonschema bundle: invalid ref %q", refPath)
	}

	var src schema.Source
	switch {
	case parsed.Scheme == "http" || parsed.Scheme == "https":
		if !s.opts.AllowHTTPRefs {
			return nil, fmt.Errorf("jsonschema bundle: http refs disabled (%s)", refPath)
		}
		src = schema.SourceFromURL(parsed.String())
	case parsed.Scheme == "file":
		src = schema.SourceFromFile(parsed.Path)
	case parsed.Scheme != "":
		return nil, fmt.Errorf("jsonschema bundle: unsupported ref scheme %q", parsed.Scheme)
	default:
		src, err = s.relativeSource(doc, parsed.Path)
		if err != nil {
			return nil, err
		}
	}

	key, _, _, err := canonicalLocation(src)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.docs[key]; ok {
		return cached, nil
	}
	if len(s.docs) >= s.opts.MaxDocuments {
		return nil, fmt.Errorf("jsonschema bundle: exceeded max documents (%d)", s.opts.MaxDocuments)
	}
	if s.loader == nil {
		return nil, fmt.Errorf("jsonschema bundle: no loader for %s", src.Location())
	}

	loaded, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	payload, err := schema.DecodeDocument(loaded)
	if err != nil {
		return nil, err
	}

	target, err := s.register(src, payload)
	if err != nil {
		return nil, err
	}
	target.name = s.defName(target.location)
	s.defs[target.name] = payload

	if err := s.rewrite(ctx, target, payload); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *bundleSession) relativeSource(doc *bundledDocument, refPath string) (schema.Source, error) {
	switch doc.kind {
	case schema.SourceKindFile:
		resolved, err := s.cleanFilePath(doc.baseDir, refPath)
		if err != nil {
			return nil, err
		}
		return schema.SourceFromFile(resolved), nil
	case schema.SourceKindFS:
		resolved, err := s.cleanFSPath(doc.baseDir, refPath)
		if err != nil {
			return nil, err
		}
		return schema.SourceFromFS(resolved), nil
	case schema.SourceKindURL:
		if !s.opts.AllowHTTPRefs {
			return nil, fmt.Errorf("jsonschema bundle: http refs disabled (%s)", refPath)
		}
		base, err := url.Parse(doc.location)
		if err != nil {
			return nil, err
		}
		rel, err := url.Parse(refPath)
		if err != nil {
			return nil, err
		}
		return schema.SourceFromURL(base.ResolveReference(rel).String()), nil
	default:
		return nil, fmt.Errorf("jsonschema bundle: relative ref %q from %s source", refPath, doc.kind)
	}
}

func (s *bundleSession) rootDir() string {
	if s.root == nil {
		return ""
	}
	return s.root.baseDir
}

func (s *bundleSession) cleanFilePath(baseDir, refPath string) (string, error) {
	candidate := refPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, refPath)
	}
	candidate = filepath.Clean(candidate)
	if s.opts.AllowPathTraversal {
		return candidate, nil
	}
	rel, err := filepath.Rel(s.rootDir(), candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("jsonschema bundle: ref path escapes root (%s)", refPath)
	}
	return candidate, nil
}

func (s *bundleSession) cleanFSPath(baseDir, refPath string) (string, error) {
	candidate := strings.TrimPrefix(path.Clean(path.Join(baseDir, refPath)), "/")
	if s.opts.AllowPathTraversal {
		return candidate, nil
	}
	root := strings.TrimPrefix(path.Clean(s.rootDir()), "/")
	switch {
	case candidate == ".." || strings.HasPrefix(candidate, "../"):
		return "", fmt.Errorf("jsonschema bundle: ref path escapes root (%s)", refPath)
	case root == "." || root == "":
		return candidate, nil
	case candidate == root || strings.HasPrefix(candidate, root+"/"):
		return candidate, nil
	default:
		return "", fmt.Errorf("jsonschema bundle: ref path escapes root (%s)", refPath)
	}
}

// defName derives a unique $defs key from a document location.
func (s *bundleSession) defName(location string) string {
	base := path.Base(strings.ReplaceAll(location, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "document"
	}

	candidate := name
	for idx := 2; ; idx++ {
		if _, exists := s.taken[candidate]; !exists {
			break
		}
		candidate = name + "_" + strconv.Itoa(idx)
	}
	s.taken[candidate] = struct{}{}
	return candidate
}

// pointer maps a ref fragment onto a JSON pointer inside the document.
func (d *bundledDocument) pointer(fragment string) (string, error) {
	switch {
	case fragment == "":
		return "", nil
	case strings.HasPrefix(fragment, "/"):
		return fragment, nil
	default:
		pointer, ok := d.anchors[fragment]
		if !ok {
			return "", fmt.Errorf("anchor %q not found", fragment)
		}
		return pointer, nil
	}
}

func canonicalLocation(src schema.Source) (key, location, baseDir string, err error) {
	if src == nil {
		return "", "", "", errors.New("jsonschema bundle: source is nil")
	}
	location = src.Location()
	switch src.Kind() {
	case schema.SourceKindFile:
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", "", "", err
		}
		return "file:" + abs, abs, filepath.Dir(abs), nil
	case schema.SourceKindFS:
		cleaned := path.Clean(strings.TrimPrefix(location, "/"))
		return "fs:" + cleaned, cleaned, path.Dir(cleaned), nil
	case schema.SourceKindURL:
		return "url:" + location, location, path.Dir(location), nil
	case schema.SourceKindInline:
		return "inline:" + location, location, "", nil
	default:
		return "", "", "", fmt.Errorf("jsonschema bundle: unsupported source kind %q", src.Kind())
	}
}

func splitRef(ref string) (string, string) {
	refPath, fragment, _ := strings.Cut(ref, "#")
	return refPath, fragment
}

func indexAnchors(node any, pointer string, anchors map[string]string) error {
	switch typed := node.(type) {
	case map[string]any:
		if name, ok := typed["$anchor"].(string); ok {
			name = strings.TrimSpace(name)
			if name != "" {
				if _, exists := anchors[name]; exists {
					return fmt.Errorf("jsonschema bundle: duplicate anchor %q", name)
				}
				anchors[name] = pointer
			}
		}
		for key, value := range typed {
			if isDataKeyword(key) || strings.HasPrefix(key, "x-") {
				continue
			}
			if err := indexAnchors(value, pointer+"/"+schema.EscapePointer(key), anchors); err != nil {
				return err
			}
		}
	case []any:
		for idx, value := range typed {
			if err := indexAnchors(value, pointer+"/"+strconv.Itoa(idx), anchors); err != nil {
				return err
			}
		}
	}
	return nil
}

func isDataKeyword(key string) bool {
	switch key {
	case schema.KeyDefault, schema.KeyConst, schema.KeyEnum, "examples", "example":
		return true
	}
	return false
}
