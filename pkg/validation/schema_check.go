package validation

import (
	"errors"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// SchemaIssue represents a problem with optional location metadata.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures the outcome of CheckSchema.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

var printer = message.NewPrinter(language.English)

// CheckSchema compiles the form schema against its metaschema and reports
// each violation with the offending JSON pointer and dotted field path.
func (v *Validator) CheckSchema(root schema.RootSchema) SchemaValidationResult {
	result := SchemaValidationResult{Valid: true}
	if root.Schema == nil {
		result.Valid = false
		result.Issues = []SchemaIssue{{Message: "schema is nil"}}
		return result
	}

	if _, err := v.compile(root.Schema, root.Root); err != nil {
		result.Valid = false
		result.Issues = issuesFromError(err)
	}
	return result
}

func issuesFromError(err error) []SchemaIssue {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []SchemaIssue{issueFromMessage(err.Error())}
	}

	var issues []SchemaIssue
	collectLeaves(verr, &issues)
	if len(issues) == 0 {
		return []SchemaIssue{issueFromMessage(err.Error())}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues
}

func collectLeaves(verr *jsonschema.ValidationError, out *[]SchemaIssue) {
	if len(verr.Causes) > 0 {
		for _, cause := range verr.Causes {
			collectLeaves(cause, out)
		}
		return
	}
	pointer := "#"
	if len(verr.InstanceLocation) > 0 {
		pointer = schema.JoinPointer("#", verr.InstanceLocation...)
	}
	msg := ""
	if verr.ErrorKind != nil {
		msg = verr.ErrorKind.LocalizedString(printer)
	}
	*out = append(*out, SchemaIssue{
		Path:    pointer,
		Field:   fieldPathFromPointer(pointer),
		Message: strings.TrimSpace(msg),
	})
}

func issueFromMessage(msg string) SchemaIssue {
	msg = strings.TrimSpace(msg)
	path := extractJSONPointer(msg)
	msg = strings.TrimPrefix(msg, "validation: ")
	return SchemaIssue{
		Path:    path,
		Field:   fieldPathFromPointer(path),
		Message: msg,
	}
}

func extractJSONPointer(message string) string {
	if idx := strings.Index(message, "at '/"); idx >= 0 {
		candidate := message[idx+len("at '"):]
		if end := strings.IndexByte(candidate, '\''); end >= 0 {
			return "#" + candidate[:end]
		}
	}
	idx := strings.LastIndex(message, "#/")
	if idx < 0 {
		return ""
	}
	candidate := message[idx:]
	if end := strings.IndexAny(candidate, " '\"\n"); end >= 0 {
		candidate = candidate[:end]
	}
	return strings.TrimRight(candidate, ".)];,")
}

// fieldPathFromPointer converts a schema pointer such as
// #/properties/address/properties/city into "address.city".
func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(pointer), "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for idx := 0; idx < len(parts); idx++ {
		segment, err := schema.UnescapePointer(parts[idx])
		if err != nil {
			segment = parts[idx]
		}
		switch segment {
		case schema.KeyProperties:
			if idx+1 < len(parts) {
				next, err := schema.UnescapePointer(parts[idx+1])
				if err != nil {
					next = parts[idx+1]
				}
				out = append(out, next)
				idx++
			}
		case schema.KeyItems:
			out = append(out, "items")
		case schema.KeyOneOf, schema.KeyAnyOf, schema.KeyAllOf:
			if idx+1 < len(parts) && isNumeric(parts[idx+1]) {
				idx++
			}
		case schema.KeyDefs, schema.KeyDefinitions:
			if idx+1 < len(parts) {
				idx++
			}
		case "":
		default:
			if isKeyword(segment) {
				continue
			}
			out = append(out, segment)
		}
	}
	return strings.Join(out, ".")
}

func isKeyword(segment string) bool {
	switch segment {
	case schema.KeyType, schema.KeyRequired, schema.KeyDefault, schema.KeyEnum, schema.KeyConst,
		schema.KeyMinItems, "minLength", "maxLength", "minimum", "maximum", "pattern", "format":
		return true
	default:
		return false
	}
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
