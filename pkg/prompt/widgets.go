package prompt

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Prompt kinds a field can be asked with.
const (
	WidgetInput       = "input"
	WidgetPassword    = "password"
	WidgetTextArea    = "textarea"
	WidgetConfirm     = "confirm"
	WidgetSelect      = "select"
	WidgetMultiSelect = "multiselect"
)

// widgetAliases maps common ui:widget names onto prompt kinds.
var widgetAliases = map[string]string{
	"text":        WidgetInput,
	"email":       WidgetInput,
	"uri":         WidgetInput,
	"updown":      WidgetInput,
	"range":       WidgetInput,
	"date":        WidgetInput,
	"datetime":    WidgetInput,
	"password":    WidgetPassword,
	"textarea":    WidgetTextArea,
	"checkbox":    WidgetConfirm,
	"toggle":      WidgetConfirm,
	"select":      WidgetSelect,
	"radio":       WidgetSelect,
	"checkboxes":  WidgetMultiSelect,
	"multiselect": WidgetMultiSelect,
	"chips":       WidgetMultiSelect,
}

// Matcher reports whether a prompt kind suits a field. root is the schema
// local refs resolve against.
type Matcher func(field *engine.Field, root map[string]any) bool

type widgetRule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// WidgetRegistry picks the prompt kind for a field. A ui:widget hint naming a
// known kind wins; otherwise the highest priority matcher decides, ties going
// to the earliest registration.
type WidgetRegistry struct {
	mu    sync.RWMutex
	rules []widgetRule
}

// NewWidgetRegistry returns a registry with the built-in matchers.
func NewWidgetRegistry() *WidgetRegistry {
	reg := &WidgetRegistry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher. Later registrations of a name do not replace
// earlier ones; priority decides.
func (r *WidgetRegistry) Register(name string, priority int, matcher Matcher) {
	name = strings.TrimSpace(name)
	if r == nil || matcher == nil || name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, widgetRule{name: name, priority: priority, match: matcher, order: len(r.rules)})
	sort.SliceStable(r.rules, func(i, j int) bool {
		if r.rules[i].priority == r.rules[j].priority {
			return r.rules[i].order < r.rules[j].order
		}
		return r.rules[i].priority > r.rules[j].priority
	})
}

// Resolve returns the prompt kind for field, WidgetInput when nothing
// matches.
func (r *WidgetRegistry) Resolve(field *engine.Field, root map[string]any) string {
	if field == nil {
		return WidgetInput
	}
	if hint := strings.ToLower(strings.TrimSpace(field.UI.Widget())); hint != "" {
		if kind, ok := widgetAliases[hint]; ok {
			return kind
		}
	}
	if r == nil {
		return WidgetInput
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range r.rules {
		if rule.match(field, root) {
			return rule.name
		}
	}
	return WidgetInput
}

func (r *WidgetRegistry) registerBuiltins() {
	r.Register(WidgetConfirm, 90, func(field *engine.Field, _ map[string]any) bool {
		return field.Type == schema.TypeBoolean
	})

	r.Register(WidgetMultiSelect, 80, func(field *engine.Field, root map[string]any) bool {
		return field.Type == schema.TypeArray &&
			schema.Bool(field.Schema, schema.KeyUniqueItems) &&
			len(selectOptions(field.Schema, root)) > 0
	})

	r.Register(WidgetSelect, 70, func(field *engine.Field, _ map[string]any) bool {
		if field.Type == schema.TypeArray || field.Type == schema.TypeObject {
			return false
		}
		options, _ := schema.List(field.Schema, schema.KeyEnum)
		return len(options) > 0
	})

	r.Register(WidgetPassword, 60, func(field *engine.Field, _ map[string]any) bool {
		return field.Type == schema.TypeString && schema.String(field.Schema, "format") == "password"
	})

	r.Register(WidgetTextArea, 50, func(field *engine.Field, _ map[string]any) bool {
		if field.Type != schema.TypeString {
			return false
		}
		switch strings.ToLower(schema.String(field.Schema, "format")) {
		case "json", "yaml", "toml", "markdown":
			return true
		}
		return false
	})
}
