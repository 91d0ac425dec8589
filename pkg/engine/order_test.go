package engine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/engine"
)

func TestOrderProperties(t *testing.T) {
	names := []string{"a", "b", "c"}
	cases := []struct {
		name  string
		order []string
		want  []string
	}{
		{name: "no order", order: nil, want: []string{"a", "b", "c"}},
		{name: "leading pick", order: []string{"c", "*"}, want: []string{"c", "a", "b"}},
		{name: "trailing pick", order: []string{"*", "a"}, want: []string{"b", "c", "a"}},
		{name: "complete", order: []string{"b", "c", "a"}, want: []string{"b", "c", "a"}},
		{name: "unknown entries ignored", order: []string{"x", "*", "y"}, want: []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.OrderProperties(names, tc.order)
			if err != nil {
				t.Fatalf("OrderProperties: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOrderProperties_Errors(t *testing.T) {
	_, err := engine.OrderProperties([]string{"a", "b", "c"}, []string{"b"})
	if err == nil || !strings.Contains(err.Error(), "properties 'a', 'c'") {
		t.Fatalf("expected missing properties error, got %v", err)
	}

	_, err = engine.OrderProperties([]string{"a", "b"}, []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "property 'b'") {
		t.Fatalf("expected missing property error, got %v", err)
	}

	_, err = engine.OrderProperties([]string{"a"}, []string{"*", "a", "*"})
	if !errors.Is(err, engine.ErrOrderWildcards) {
		t.Fatalf("expected wildcard error, got %v", err)
	}
}
