package engine

import (
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Outcome tags how completely a schema node was resolved. Soft failures are
// reported here instead of as errors so callers can always render something.
type Outcome int

const (
	// Resolved means every reference and combination was expanded.
	Resolved Outcome = iota
	// Truncated means a $ref cycle or the depth cap stopped expansion; the
	// node still carries the $ref that was not followed.
	Truncated
	// Unsupported means part of the node could not be interpreted (missing
	// $ref target, non-object schema); the raw fragment is kept.
	Unsupported
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Truncated:
		return "truncated"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// join keeps the more severe of two outcomes.
func (o Outcome) join(other Outcome) Outcome {
	if other > o {
		return other
	}
	return o
}

// NoOption marks a Resolution without a oneOf/anyOf selection.
const NoOption = -1

// Resolution is a schema node after resolution plus how it got there.
type Resolution struct {
	Schema  map[string]any
	Outcome Outcome
	// Option is the oneOf/anyOf branch merged into Schema, or NoOption.
	Option int
	// Reason explains a non-Resolved outcome.
	Reason string
}

func resolved(node map[string]any) Resolution {
	return Resolution{Schema: node, Outcome: Resolved, Option: NoOption}
}

func (r *Resolution) degrade(outcome Outcome, reason string) {
	if outcome > r.Outcome {
		r.Outcome = outcome
		r.Reason = reason
	}
}

func (r *Resolution) absorb(other Resolution) {
	r.degrade(other.Outcome, other.Reason)
}

// Engine resolves schemas and computes form state. It holds only immutable
// configuration, so one Engine can serve concurrent callers.
type Engine struct {
	opts Options
}

// New constructs an Engine. Without an explicit validator the
// santhosh-tekuri/jsonschema backed validator is used.
func New(options ...Option) *Engine {
	opts := NewOptions(options...)
	if opts.Validator == nil {
		opts.Validator = validation.New(validation.WithLogger(opts.Logger))
	}
	return &Engine{opts: opts}
}

// Options returns a copy of the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}
