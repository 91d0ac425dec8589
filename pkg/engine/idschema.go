package engine

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// FieldPathID locates one node of a resolved form. ID is the prefix and the
// path segments joined by the separator; Path keeps the raw segments
// (property names, element indices) for correlating changes with form data.
type FieldPathID struct {
	ID   string   `json:"id"`
	Path []string `json:"path"`
}

// Name is the dotted form data path, "" at the root.
func (f FieldPathID) Name() string {
	return strings.Join(f.Path, ".")
}

func (e *Engine) rootID() FieldPathID {
	return FieldPathID{ID: e.opts.IDPrefix, Path: []string{}}
}

// escapeAlphabet holds the characters escaped segments are written with.
const escapeAlphabet = "%0123456789ABCDEF"

// childID derives the id of a child location. Every byte of a segment that
// is "%" or occurs in the separator is percent-encoded, so segments never
// contain separator characters and distinct paths never collide.
func (e *Engine) childID(parent FieldPathID, segment string) FieldPathID {
	path := make([]string, len(parent.Path), len(parent.Path)+1)
	copy(path, parent.Path)
	return FieldPathID{
		ID:   parent.ID + e.opts.IDSeparator + e.escapeSegment(segment),
		Path: append(path, segment),
	}
}

func (e *Engine) escapeSegment(segment string) string {
	sep := e.opts.IDSeparator
	escape := func(b byte) bool { return b == '%' || strings.IndexByte(sep, b) >= 0 }
	if !strings.ContainsAny(segment, "%"+sep) {
		return segment
	}
	var encoded strings.Builder
	for i := 0; i < len(segment); i++ {
		if b := segment[i]; escape(b) {
			fmt.Fprintf(&encoded, "%%%02X", b)
		} else {
			encoded.WriteByte(b)
		}
	}
	return encoded.String()
}

// IDSchema mirrors a resolved schema with the id of every location.
// Properties are keyed by property name, Items by element position.
type IDSchema struct {
	FieldPathID
	Properties map[string]*IDSchema
	Items      []*IDSchema
	separator  string
}

// ItemID returns the id an array element at idx has, whether or not the
// element exists yet.
func (s *IDSchema) ItemID(idx int) string {
	return s.ID + s.separator + strconv.Itoa(idx)
}

// Lookup walks property names and element indices down the tree.
func (s *IDSchema) Lookup(segments ...string) (*IDSchema, bool) {
	current := s
	for _, segment := range segments {
		if current == nil {
			return nil, false
		}
		if child, ok := current.Properties[segment]; ok {
			current = child
			continue
		}
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(current.Items) {
			return nil, false
		}
		current = current.Items[idx]
	}
	return current, current != nil
}

// MarshalJSON writes the tree in the familiar shape
// {"$id": "root", "$name": "", "name": {"$id": "root_name", ...}}, with
// array elements keyed by index.
func (s *IDSchema) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Properties)+len(s.Items)+2)
	for name, child := range s.Properties {
		out[name] = child
	}
	for idx, child := range s.Items {
		out[strconv.Itoa(idx)] = child
	}
	out["$id"] = s.ID
	out["$name"] = s.Name()
	return json.Marshal(out)
}

// IDSchema builds the id tree for node and formData. Array elements get ids
// for every form data entry and every tuple position.
func (e *Engine) IDSchema(node map[string]any, root map[string]any, formData any) *IDSchema {
	return e.buildField(node, root, formData, nil, e.rootID(), false, nil).IDSchema()
}
