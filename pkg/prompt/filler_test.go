package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/engine"
)

type stubDriver struct {
	inputs     []string
	selectIdx  []int
	multiIdx   [][]int
	confirm    []bool
	infos      []string
	messages   []string
	inputPos   int
	selectPos  int
	multiPos   int
	confirmPos int
	err        error
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted for " + cfg.Message)
	}
	s.messages = append(s.messages, cfg.Message)
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	return s.Input(ctx, cfg)
}

func (s *stubDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	return s.Input(ctx, InputConfig{Message: cfg.Message, Default: cfg.Default})
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted for " + cfg.Message)
	}
	s.messages = append(s.messages, cfg.Message)
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted for " + cfg.Message)
	}
	s.messages = append(s.messages, cfg.Message)
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted for " + cfg.Message)
	}
	s.messages = append(s.messages, cfg.Message)
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

var profileSchema = map[string]any{
	"type":     "object",
	"required": []any{"name"},
	"properties": map[string]any{
		"name":      map[string]any{"type": "string", "title": "Name"},
		"age":       map[string]any{"type": "integer", "minimum": 0.0},
		"role":      map[string]any{"type": "string", "enum": []any{"admin", "user"}, "default": "user"},
		"subscribe": map[string]any{"type": "boolean"},
		"tags":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "maxItems": 1.0},
		"colors": map[string]any{
			"type":        "array",
			"uniqueItems": true,
			"items":       map[string]any{"enum": []any{"red", "green", "blue"}},
		},
	},
	"if": map[string]any{
		"properties": map[string]any{"subscribe": map[string]any{"const": true}},
		"required":   []any{"subscribe"},
	},
	"then": map[string]any{
		"properties": map[string]any{"email": map[string]any{"type": "string"}},
	},
}

func TestFiller_Fill(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"abc", "-1", "42", "", "Ada", "", "go"},
		multiIdx:  [][]int{{0, 2}},
		selectIdx: []int{0},
		confirm:   []bool{true, true},
	}
	filler := New(WithDriver(driver))

	result, err := filler.Fill(context.Background(), engine.Input{Schema: profileSchema})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := map[string]any{
		"age":       42.0,
		"colors":    []any{"red", "blue"},
		"name":      "Ada",
		"role":      "admin",
		"subscribe": true,
		"tags":      []any{"go"},
	}
	if diff := cmp.Diff(want, result.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}

	wantMessages := []string{
		"age", "age", "age", "colors", "Name", "Name", "role", "subscribe", "email",
		"Add an item to tags?", "tags.0",
	}
	if diff := cmp.Diff(wantMessages, driver.messages); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	if len(driver.infos) != 3 {
		t.Fatalf("expected 3 validation messages, got %v", driver.infos)
	}
	if !strings.Contains(driver.infos[2], "required") {
		t.Fatalf("expected required message, got %q", driver.infos[2])
	}
}

func TestFiller_DoesNotMutateInput(t *testing.T) {
	driver := &stubDriver{inputs: []string{"Bo"}}
	data := map[string]any{"nick": "x"}
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"nick": map[string]any{"type": "string"}},
	}

	result, err := New(WithDriver(driver)).Fill(context.Background(), engine.Input{Schema: schema, FormData: data})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if data["nick"] != "x" {
		t.Fatalf("input mutated: %#v", data)
	}
	if diff := cmp.Diff(map[string]any{"nick": "Bo"}, result.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
}

func TestFiller_SkipsReadOnlyAndHidden(t *testing.T) {
	driver := &stubDriver{}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":      map[string]any{"type": "string", "readOnly": true},
			"kind":    map[string]any{"const": "user"},
			"secret":  map[string]any{"type": "string"},
			"created": map[string]any{"type": "string", "default": "now"},
		},
	}
	ui := map[string]any{
		"secret":  map[string]any{"ui:widget": "hidden"},
		"created": map[string]any{"ui:readonly": true},
	}

	result, err := New(WithDriver(driver)).Fill(context.Background(), engine.Input{Schema: schema, UISchema: ui})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(driver.messages) != 0 {
		t.Fatalf("expected no prompts, got %v", driver.messages)
	}
	if diff := cmp.Diff(map[string]any{"created": "now"}, result.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
}

func TestFiller_Errors(t *testing.T) {
	schema := map[string]any{"type": "string"}

	aborted := &stubDriver{err: ErrAborted}
	if _, err := New(WithDriver(aborted)).Fill(context.Background(), engine.Input{Schema: schema}); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected abort, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(WithDriver(&stubDriver{})).Fill(ctx, engine.Input{Schema: schema}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	list := map[string]any{"type": "array", "items": map[string]any{"type": "object"}}
	endless := &stubDriver{confirm: []bool{true, true, true, true}}
	if _, err := New(WithDriver(endless), WithMaxPrompts(3)).Fill(context.Background(), engine.Input{Schema: list}); !errors.Is(err, ErrTooManyPrompts) {
		t.Fatalf("expected prompt limit, got %v", err)
	}
}

func TestAssign(t *testing.T) {
	e := engine.New()
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"list": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object", "properties": map[string]any{"v": map[string]any{"type": "string"}}},
			},
		},
	}
	data := map[string]any{"list": []any{map[string]any{"v": "a"}}}
	tree := e.Resolve(engine.Input{Schema: schema, FormData: data}).Root

	got := assign(tree, data, []string{"list", "0", "v"}, answer{value: "b"})
	want := map[string]any{"list": []any{map[string]any{"v": "b"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("assign mismatch (-want +got):\n%s", diff)
	}
	if data["list"].([]any)[0].(map[string]any)["v"] != "a" {
		t.Fatalf("assign mutated its input")
	}

	removed := assign(tree, got, []string{"list", "0", "v"}, answer{remove: true})
	if diff := cmp.Diff(map[string]any{"list": []any{map[string]any{}}}, removed); diff != "" {
		t.Fatalf("remove mismatch (-want +got):\n%s", diff)
	}
}

func TestFiller_VisibilityRules(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subscribe": map[string]any{"type": "boolean"},
			"email":     map[string]any{"type": "string"},
			"plan":      map[string]any{"type": "string", "enum": []any{"free", "pro"}},
			"seats":     map[string]any{"type": "integer"},
			"note":      map[string]any{"type": "string"},
		},
	}
	ui := map[string]any{
		"ui:order": []any{"subscribe", "email", "plan", "seats", "note"},
		"email":    map[string]any{"ui:visibleIf": "subscribe"},
		"seats":    map[string]any{"ui:visibleIf": `plan == "pro"`},
		"note":     map[string]any{"ui:options": map[string]any{"visibleIf": "plan =="}},
	}
	driver := &stubDriver{
		confirm:   []bool{false},
		selectIdx: []int{1},
		inputs:    []string{"4", ""},
	}

	result, err := New(WithDriver(driver)).Fill(context.Background(), engine.Input{Schema: schema, UISchema: ui})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if diff := cmp.Diff([]string{"subscribe", "plan", "seats", "note"}, driver.messages); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{"subscribe": false, "plan": "pro", "seats": 4.0}
	if diff := cmp.Diff(want, result.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
}
