package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/uischema"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

const defaultMaxPrompts = 500

// ErrTooManyPrompts stops sessions that keep revealing new fields.
var ErrTooManyPrompts = errors.New("prompt: prompt limit reached")

// Option configures a Filler.
type Option func(*Filler)

// WithEngine sets the engine used to resolve form state between answers.
func WithEngine(e *engine.Engine) Option {
	return func(f *Filler) {
		if e != nil {
			f.engine = e
		}
	}
}

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithValidator sets the validator answers are checked with.
func WithValidator(v *validation.Validator) Option {
	return func(f *Filler) {
		if v != nil {
			f.validator = v
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithWidgets replaces the registry that picks each field's prompt kind.
func WithWidgets(registry *WidgetRegistry) Option {
	return func(f *Filler) {
		if registry != nil {
			f.widgets = registry
		}
	}
}

// WithMaxPrompts caps the number of questions asked in one session.
func WithMaxPrompts(limit int) Option {
	return func(f *Filler) {
		if limit > 0 {
			f.maxPrompts = limit
		}
	}
}

// Filler collects form data interactively. It asks for every editable field
// of a resolved form and resolves the form again after each answer, so
// dependencies, conditionals and the defaults of newly revealed fields apply
// before the next question.
type Filler struct {
	engine     *engine.Engine
	driver     Driver
	validator  *validation.Validator
	widgets    *WidgetRegistry
	rules      *visibility.Cache
	logger     *slog.Logger
	maxPrompts int
}

// New constructs a Filler backed by the survey driver.
func New(options ...Option) *Filler {
	f := &Filler{maxPrompts: defaultMaxPrompts, rules: &visibility.Cache{}}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	if f.engine == nil {
		f.engine = engine.New(engine.WithLogger(f.logger))
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(nil)
	}
	if f.validator == nil {
		f.validator = validation.New(validation.WithLogger(f.logger))
	}
	if f.widgets == nil {
		f.widgets = NewWidgetRegistry()
	}
	return f
}

type stepKind int

const (
	askValue stepKind = iota
	askAppend
)

type step struct {
	field *engine.Field
	kind  stepKind
	key   string
}

type answer struct {
	value  any
	remove bool
	keep   bool
}

// Fill runs the session and returns the final resolution. The input form
// data is not modified.
func (f *Filler) Fill(ctx context.Context, in engine.Input) (engine.Result, error) {
	if ctx == nil {
		return engine.Result{}, errors.New("prompt: context is required")
	}
	root := in.RootSchema
	if root == nil {
		root = in.Schema
	}
	w := &walker{filler: f, root: root, asked: make(map[string]struct{})}
	in.FormData = schema.Clone(in.FormData)

	for count := 0; ; count++ {
		if err := ctx.Err(); err != nil {
			return engine.Result{}, err
		}
		result := f.engine.Resolve(in)
		w.data = result.FormData
		next, ok := w.next(result.Root, true)
		if !ok {
			return result, nil
		}
		if count >= f.maxPrompts {
			return result, ErrTooManyPrompts
		}
		w.asked[next.key] = struct{}{}

		ans, err := f.ask(ctx, next, root)
		if err != nil {
			return result, err
		}
		f.logger.Debug("prompt: answered", "field", next.field.ID, "kind", next.kind, "removed", ans.remove)
		if ans.keep {
			in.FormData = result.FormData
			continue
		}
		in.FormData = assign(result.Root, result.FormData, next.field.Path, ans)
	}
}

func (f *Filler) ask(ctx context.Context, s step, root map[string]any) (answer, error) {
	field := s.field
	if s.kind == askAppend {
		return f.askAppend(ctx, field, root)
	}
	widget := f.widgets.Resolve(field, root)
	if field.Type == schema.TypeArray {
		return f.askMultiSelect(ctx, field, root)
	}
	if options, ok := schema.List(field.Schema, schema.KeyEnum); ok && len(options) > 0 && widget == WidgetSelect {
		return f.askEnum(ctx, field, options)
	}
	switch field.Type {
	case schema.TypeBoolean:
		current, _ := field.Value.(bool)
		value, err := f.driver.Confirm(ctx, ConfirmConfig{Message: label(field), Default: current, Help: help(field)})
		if err != nil {
			return answer{}, err
		}
		return answer{value: value}, nil
	case schema.TypeInteger, schema.TypeNumber:
		return f.askText(ctx, field, widget, root, parseNumber(field.Type == schema.TypeInteger))
	default:
		return f.askText(ctx, field, widget, root, func(text string) (any, error) { return text, nil })
	}
}

func (f *Filler) askText(ctx context.Context, field *engine.Field, widget string, root map[string]any, parse func(string) (any, error)) (answer, error) {
	current := ""
	if field.Value != nil {
		current = fmt.Sprint(field.Value)
	}
	for {
		cfg := InputConfig{
			Message: label(field),
			Default: current,
			Help:    help(field),
			Validator: func(text string) error {
				if strings.TrimSpace(text) == "" {
					return nil
				}
				_, err := parse(text)
				return err
			},
		}
		var (
			text string
			err  error
		)
		switch {
		case widget == WidgetPassword:
			text, err = f.driver.Password(ctx, cfg)
		case widget == WidgetTextArea:
			text, err = f.driver.TextArea(ctx, TextAreaConfig{Message: cfg.Message, Default: current, Help: cfg.Help})
		default:
			text, err = f.driver.Input(ctx, cfg)
		}
		if err != nil {
			return answer{}, err
		}

		if strings.TrimSpace(text) == "" {
			if !field.Required {
				return answer{remove: true}, nil
			}
			if err := f.driver.Info(ctx, fmt.Sprintf("Invalid %s: required", field.Name())); err != nil {
				return answer{}, err
			}
			continue
		}

		value, err := parse(text)
		if err == nil {
			err = f.validator.Validate(field.Schema, value, root)
		}
		if err != nil {
			if infoErr := f.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", field.Name(), err)); infoErr != nil {
				return answer{}, infoErr
			}
			continue
		}
		return answer{value: value}, nil
	}
}

func (f *Filler) askEnum(ctx context.Context, field *engine.Field, options []any) (answer, error) {
	labels := stringify(options)
	current := -1
	for idx, option := range options {
		if field.Value != nil && fmt.Sprint(option) == fmt.Sprint(field.Value) {
			current = idx
			break
		}
	}
	for {
		idx, err := f.driver.Select(ctx, SelectConfig{Message: label(field), Options: labels, DefaultIndex: current, Help: help(field)})
		if err != nil {
			return answer{}, err
		}
		if idx >= 0 && idx < len(options) {
			return answer{value: schema.Clone(options[idx])}, nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("Invalid %s selection", field.Name())); err != nil {
			return answer{}, err
		}
	}
}

func (f *Filler) askMultiSelect(ctx context.Context, field *engine.Field, root map[string]any) (answer, error) {
	options := selectOptions(field.Schema, root)
	labels := stringify(options)
	current, _ := field.Value.([]any)
	selected := indicesOf(labels, stringify(current))

	for {
		indices, err := f.driver.MultiSelect(ctx, SelectConfig{Message: label(field), Options: labels, Defaults: selected, Help: help(field)})
		if err != nil {
			return answer{}, err
		}
		values := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(options) {
				values = append(values, schema.Clone(options[idx]))
			}
		}
		if err := f.validator.Validate(field.Schema, values, root); err != nil {
			if infoErr := f.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", field.Name(), err)); infoErr != nil {
				return answer{}, infoErr
			}
			continue
		}
		return answer{value: values}, nil
	}
}

func (f *Filler) askAppend(ctx context.Context, field *engine.Field, root map[string]any) (answer, error) {
	current, _ := field.Value.([]any)
	add, err := f.driver.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("Add an item to %s?", label(field)),
		Help:    help(field),
	})
	if err != nil || !add {
		return answer{keep: true}, err
	}

	items := make([]any, 0, len(current)+1)
	for _, item := range current {
		items = append(items, schema.Clone(item))
	}
	return answer{value: append(items, f.newItem(field, root))}, nil
}

// newItem seeds an appended element with its computed defaults, or an empty
// container so nested fields are asked for.
func (f *Filler) newItem(field *engine.Field, root map[string]any) any {
	itemSchema, ok := schema.Child(field.Schema, schema.KeyItems)
	if !ok {
		itemSchema, _ = schema.Child(field.Schema, schema.KeyAdditionalItems)
	}
	if itemSchema == nil {
		return nil
	}
	if value, ok := f.engine.ComputeDefaults(itemSchema, root, nil, nil); ok && value != nil {
		return value
	}
	switch schema.Classify(f.engine.Retrieve(itemSchema, root, nil).Schema).Type {
	case schema.TypeObject:
		return map[string]any{}
	case schema.TypeArray:
		return []any{}
	default:
		return nil
	}
}

// walker finds the next unanswered question in a field tree, depth-first in
// display order. Fields whose ui:visibleIf rule fails are passed over along
// with their children.
type walker struct {
	filler *Filler
	root   map[string]any
	data   any
	asked  map[string]struct{}
}

func (w *walker) next(field *engine.Field, visible bool) (step, bool) {
	if field == nil || !visible || skipped(field) {
		return step{}, false
	}
	switch field.Type {
	case schema.TypeObject:
		for _, child := range field.Properties {
			if s, ok := w.next(child, w.visible(child, field.Value)); ok {
				return s, true
			}
		}
		return step{}, false
	case schema.TypeArray:
		if w.filler.widgets.Resolve(field, w.root) == WidgetMultiSelect && len(selectOptions(field.Schema, w.root)) > 0 {
			return w.question(field, askValue, "value:"+field.ID)
		}
		for _, child := range field.Items {
			if s, ok := w.next(child, w.visible(child, field.Value)); ok {
				return s, true
			}
		}
		if !canAppend(field) {
			return step{}, false
		}
		return w.question(field, askAppend, "append:"+field.ID+":"+strconv.Itoa(len(field.Items)))
	case schema.TypeString, schema.TypeNumber, schema.TypeInteger, schema.TypeBoolean:
		return w.question(field, askValue, "value:"+field.ID)
	default:
		return step{}, false
	}
}

// visible evaluates the field's ui:visibleIf rule against the value of the
// container holding it. Broken rules are logged and leave the field shown.
func (w *walker) visible(field *engine.Field, container any) bool {
	rule := field.UI.VisibleIf()
	if rule == "" {
		return true
	}
	ok, err := w.filler.rules.Visible(rule, visibility.Scope{Local: container, Root: w.data})
	if err != nil {
		w.filler.logger.Warn("prompt: invalid visibility rule", "field", field.ID, "rule", rule, "error", err)
	}
	return ok
}

func (w *walker) question(field *engine.Field, kind stepKind, key string) (step, bool) {
	if _, done := w.asked[key]; done {
		return step{}, false
	}
	return step{field: field, kind: kind, key: key}, true
}

func skipped(field *engine.Field) bool {
	if field.Outcome == engine.Unsupported {
		return true
	}
	if schema.Has(field.Schema, schema.KeyConst) || schema.Bool(field.Schema, "readOnly") {
		return true
	}
	if field.UI.Widget() == "hidden" {
		return true
	}
	readonly, _ := field.UI.Options()["readonly"].(bool)
	return readonly
}

func canAppend(field *engine.Field) bool {
	if _, tuple := schema.List(field.Schema, schema.KeyItems); tuple {
		if extra, ok := field.Schema[schema.KeyAdditionalItems]; !ok || extra == false {
			return false
		}
	}
	if limit, ok := schema.Int(field.Schema, "maxItems"); ok && len(field.Items) >= limit {
		return false
	}
	return true
}

// selectOptions returns the enum of an array's items, expanding an items $ref.
func selectOptions(node, root map[string]any) []any {
	items, ok := schema.Child(node, schema.KeyItems)
	if !ok {
		return nil
	}
	if ref := schema.String(items, schema.KeyRef); ref != "" {
		target, err := engine.FindDefinition(ref, root)
		if err != nil {
			return nil
		}
		items = target
	}
	options, _ := schema.List(items, schema.KeyEnum)
	return options
}

// assign writes ans at path, using the field tree to tell arrays from
// objects. Containers along the path are copied.
func assign(field *engine.Field, data any, path []string, ans answer) any {
	if len(path) == 0 {
		if ans.remove {
			return nil
		}
		return ans.value
	}
	segment := path[0]
	child := childField(field, segment)

	if field != nil && field.Type == schema.TypeArray {
		list, _ := data.([]any)
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 {
			return data
		}
		out := make([]any, max(len(list), idx+1))
		copy(out, list)
		out[idx] = assign(child, out[idx], path[1:], ans)
		return out
	}

	obj, _ := data.(map[string]any)
	out := make(map[string]any, len(obj)+1)
	for key, value := range obj {
		out[key] = value
	}
	if len(path) == 1 && ans.remove {
		delete(out, segment)
		return out
	}
	out[segment] = assign(child, out[segment], path[1:], ans)
	return out
}

func childField(field *engine.Field, segment string) *engine.Field {
	if field == nil {
		return nil
	}
	for _, list := range [][]*engine.Field{field.Properties, field.Items} {
		for _, child := range list {
			if len(child.Path) > 0 && child.Path[len(child.Path)-1] == segment {
				return child
			}
		}
	}
	return nil
}

func parseNumber(integer bool) func(string) (any, error) {
	return func(text string) (any, error) {
		text = strings.TrimSpace(text)
		if integer {
			value, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", text)
			}
			return float64(value), nil
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", text)
		}
		return value, nil
	}
}

func label(field *engine.Field) string {
	if title, ok := field.UI[uischema.KeyTitle].(string); ok && title != "" {
		return title
	}
	if title := schema.String(field.Schema, schema.KeyTitle); title != "" {
		return title
	}
	if name := field.Name(); name != "" {
		return name
	}
	return "value"
}

func help(field *engine.Field) string {
	if text, ok := field.UI[uischema.KeyHelp].(string); ok && text != "" {
		return text
	}
	return schema.String(field.Schema, schema.KeyDescription)
}

func stringify(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}
