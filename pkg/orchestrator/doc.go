// Package orchestrator wires document loading, format detection, adapter
// normalization and the form engine into one entry point. Callers that only
// need the engine can use pkg/engine directly.
package orchestrator
